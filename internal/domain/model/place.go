package model

// Place is a candidate point of interest, either fetched from OSM or
// taken from the demo catalog. Optional fields are pointers so a missing
// value is distinguishable from zero; scoring fills documented defaults.
type Place struct {
	Name            string       `json:"name"`
	Type            string       `json:"type"`
	City            string       `json:"city,omitempty"`
	Lat             *float64     `json:"lat,omitempty"`
	Lon             *float64     `json:"lon,omitempty"`
	OSMID           int64        `json:"osm_id,omitempty"`
	OSMKind         string       `json:"osm_kind,omitempty"`
	Rating          *float64     `json:"rating,omitempty"`
	PopularityScore *float64     `json:"popularity_score,omitempty"`
	PriceTier       *int         `json:"price_tier,omitempty"`
	BestFor         []string     `json:"best_for,omitempty"`
	IdealPeople     *PeopleRange `json:"ideal_people,omitempty"`

	// DistanceKM is the distance from the request origin. Sources may
	// pre-fill it for places without coordinates; scoring overwrites it
	// with the derived great-circle distance when coordinates exist.
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

// PeopleRange is an inclusive [min, max] party-size range.
// It serializes as a two-element JSON array.
type PeopleRange [2]int

// Min returns the lower inclusive bound.
func (r PeopleRange) Min() int { return r[0] }

// Max returns the upper inclusive bound.
func (r PeopleRange) Max() int { return r[1] }

// Breakdown is the per-signal score breakdown shown to users.
// Slot maxima are 30/25/20/15/10/10; MaxRaw is their 110 sum.
type Breakdown struct {
	Activity float64 `json:"activity"`
	Distance float64 `json:"distance"`
	Group    float64 `json:"group"`
	Budget   float64 `json:"budget"`
	People   float64 `json:"people"`
	Quality  float64 `json:"quality"`
	MaxRaw   float64 `json:"max_raw"`
}

// ScoredPlace is a Place with derived ranking output appended.
// The embedded Place keeps every original field so the record
// round-trips losslessly through the ranking log.
type ScoredPlace struct {
	Place

	PlaceID     string    `json:"place_id"`
	Score       int       `json:"score"`
	ScoreRaw    float64   `json:"score_raw"`
	Breakdown   Breakdown `json:"breakdown"`
	Explanation string    `json:"explanation"`

	// Set after ranking, before the response is logged.
	Rank        int    `json:"rank,omitempty"`
	BudgetLabel string `json:"budget,omitempty"`
	Group       string `json:"group,omitempty"`
}

// Context is the immutable snapshot of one ranking request. It is
// persisted verbatim with the ranking result so feedback-time learning
// can rebuild the exact feature inputs.
type Context struct {
	Lang              string     `json:"lang"`
	Activity          string     `json:"user_activity"`
	Activities        []string   `json:"user_activities,omitempty"`
	PrimaryActivities []string   `json:"user_primary_activities,omitempty"`
	GroupType         string     `json:"user_group_type"`
	Budget            string     `json:"user_budget"`
	PeopleCount       int        `json:"people_count"`
	HasCar            bool       `json:"has_car"`
	Origin            [2]float64 `json:"origin"`
	RadiusM           int        `json:"radius_m"`
	SearchMode        string     `json:"search_mode"`
	City              string     `json:"city,omitempty"`
}

// CityInfo is a geocoded city: center point plus the Overpass area id
// and bounding box when the geocoder could derive them.
type CityInfo struct {
	Query       string      `json:"query"`
	Lat         float64     `json:"lat"`
	Lon         float64     `json:"lon"`
	OSMType     string      `json:"osm_type,omitempty"`
	OSMID       int64       `json:"osm_id,omitempty"`
	AreaID      int64       `json:"area_id,omitempty"`
	BBox        *[4]float64 `json:"bbox,omitempty"` // south, west, north, east
	DisplayName string      `json:"display_name,omitempty"`
}

// Event is one append-only audit record.
type Event struct {
	SessionID string         `json:"session_id,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Action    string         `json:"action"`
	PlaceID   string         `json:"place_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}
