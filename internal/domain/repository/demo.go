package repository

import "smarttrip/internal/domain/model"

// DemoCatalog is the static fallback place source: ten deterministic
// places offset from a center point, used when live OSM data is
// unavailable or too sparse.
type DemoCatalog struct{}

// NewDemoCatalog returns the static demo place source.
func NewDemoCatalog() *DemoCatalog {
	return &DemoCatalog{}
}

type demoEntry struct {
	name        string
	placeType   string
	dLat, dLon  float64
	priceTier   int
	rating      float64
	bestFor     []string
	idealPeople model.PeopleRange
}

var demoEntries = []demoEntry{
	{"Aurora Park", model.ActivityNature, 0.012, -0.006, 1, 4.7, []string{"family", "friends", "solo"}, model.PeopleRange{2, 10}},
	{"Neon Brew Café", model.ActivityCafe, -0.008, 0.010, 2, 4.5, []string{"friends", "solo"}, model.PeopleRange{1, 5}},
	{"Skyline Bistro", model.ActivityRestaurant, 0.004, 0.014, 2, 4.6, []string{"family", "friends", "solo"}, model.PeopleRange{2, 6}},
	{"Pulse Arcade", model.ActivityEntertainment, -0.014, -0.004, 2, 4.4, []string{"friends", "family"}, model.PeopleRange{2, 10}},
	{"Crystal Garden", model.ActivityNature, 0.018, 0.003, 1, 4.8, []string{"family", "friends", "solo"}, model.PeopleRange{2, 10}},
	{"Midnight Espresso", model.ActivityCafe, -0.003, -0.015, 2, 4.3, []string{"friends", "solo"}, model.PeopleRange{1, 4}},
	{"Orbit Cinema", model.ActivityEntertainment, 0.010, 0.020, 2, 4.2, []string{"friends", "family"}, model.PeopleRange{2, 8}},
	{"Nova Diner", model.ActivityRestaurant, -0.020, 0.006, 3, 4.5, []string{"friends", "family"}, model.PeopleRange{2, 8}},
	{"Riverwalk Green", model.ActivityNature, 0.006, -0.020, 1, 4.6, []string{"family", "friends", "solo"}, model.PeopleRange{2, 12}},
	{"Electric Lounge", model.ActivityEntertainment, -0.010, 0.018, 3, 4.3, []string{"friends"}, model.PeopleRange{2, 8}},
}

// Around returns the demo catalog positioned around the given center.
func (c *DemoCatalog) Around(lat, lon float64) []model.Place {
	places := make([]model.Place, 0, len(demoEntries))
	for _, e := range demoEntries {
		placeLat := lat + e.dLat
		placeLon := lon + e.dLon
		rating := e.rating
		tier := e.priceTier
		ideal := e.idealPeople
		places = append(places, model.Place{
			Name:        e.name,
			Type:        e.placeType,
			Lat:         &placeLat,
			Lon:         &placeLon,
			Rating:      &rating,
			PriceTier:   &tier,
			BestFor:     append([]string(nil), e.bestFor...),
			IdealPeople: &ideal,
		})
	}
	return places
}
