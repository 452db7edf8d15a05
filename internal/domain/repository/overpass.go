package repository

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/serjvanilla/go-overpass"

	"smarttrip/internal/cache"
	"smarttrip/internal/domain/model"
)

// tagFilter is one Overpass key=value selector.
type tagFilter struct {
	key   string
	value string
}

// activityFilters maps each request activity to its OSM tag selectors.
var activityFilters = map[string][]tagFilter{
	"fast_food":      {{"amenity", "fast_food"}, {"amenity", "food_court"}},
	"juice":          {{"amenity", "juice_bar"}, {"amenity", "cafe"}},
	"ice_cream":      {{"amenity", "ice_cream"}},
	"park":           {{"leisure", "park"}, {"leisure", "garden"}},
	"attraction":     {{"tourism", "attraction"}, {"tourism", "viewpoint"}, {"tourism", "picnic_site"}},
	"nature_tourism": {{"boundary", "national_park"}, {"leisure", "nature_reserve"}, {"tourism", "viewpoint"}, {"tourism", "picnic_site"}, {"natural", "beach"}, {"natural", "wood"}},
	"historical":     {{"historic", "monument"}, {"historic", "castle"}, {"historic", "yes"}, {"tourism", "museum"}},
	"cinema":         {{"amenity", "cinema"}},
	"amusement_park": {{"tourism", "theme_park"}, {"leisure", "amusement_arcade"}, {"leisure", "water_park"}},
	"theatre":        {{"amenity", "theatre"}, {"amenity", "arts_centre"}},
	"museum":         {{"tourism", "museum"}, {"tourism", "gallery"}},
	"pool":           {{"leisure", "swimming_pool"}, {"sport", "swimming"}},
	"hotel":          {{"tourism", "hotel"}, {"tourism", "motel"}},
	"eco_lodge":      {{"tourism", "guest_house"}, {"tourism", "chalet"}, {"tourism", "camp_site"}},
	"hostel":         {{"tourism", "hostel"}, {"tourism", "guest_house"}, {"tourism", "apartment"}},
	"market":         {{"shop", "supermarket"}, {"amenity", "marketplace"}},
	"shopping_mall":  {{"shop", "mall"}, {"shop", "department_store"}, {"building", "retail"}},
	"cafe":           {{"amenity", "cafe"}, {"amenity", "ice_cream"}},
	"restaurant":     {{"amenity", "restaurant"}, {"amenity", "fast_food"}, {"amenity", "food_court"}},
	"entertainment": {
		{"amenity", "cinema"}, {"amenity", "theatre"}, {"amenity", "arts_centre"},
		{"leisure", "bowling_alley"}, {"leisure", "amusement_arcade"}, {"leisure", "water_park"},
		{"tourism", "attraction"}, {"tourism", "museum"}, {"tourism", "gallery"},
		{"tourism", "zoo"}, {"tourism", "theme_park"}, {"tourism", "aquarium"},
	},
	"nature": {
		{"leisure", "park"}, {"leisure", "garden"}, {"boundary", "national_park"},
		{"leisure", "nature_reserve"}, {"tourism", "viewpoint"}, {"tourism", "picnic_site"},
	},
}

func filtersFor(activity string) []tagFilter {
	if filters, ok := activityFilters[activity]; ok {
		return filters
	}
	return activityFilters["nature"]
}

// sourceDefaults are the per-family place defaults applied at fetch
// time; OSM tags rarely carry ratings or price information.
type sourceDefaults struct {
	priceTier   int
	rating      float64
	bestFor     []string
	idealPeople model.PeopleRange
}

var defaultsByFamily = map[string]sourceDefaults{
	model.ActivityNature:        {1, 4.6, []string{"family", "friends", "solo"}, model.PeopleRange{2, 12}},
	model.ActivityCafe:          {2, 4.3, []string{"friends", "solo"}, model.PeopleRange{1, 5}},
	model.ActivityRestaurant:    {2, 4.4, []string{"family", "friends", "solo"}, model.PeopleRange{2, 6}},
	model.ActivityEntertainment: {2, 4.2, []string{"friends", "family"}, model.PeopleRange{2, 10}},
}

// cityGeocoder resolves a city to its Overpass search area.
type cityGeocoder interface {
	GeocodeCity(ctx context.Context, city string) (*model.CityInfo, error)
}

// OverpassRepository fetches candidate places from OSM via Overpass.
// Responses are cached in memory (radius queries briefly, city queries
// longer since they are the expensive ones).
type OverpassRepository struct {
	client      *overpass.Client
	geocoder    cityGeocoder
	timeout     time.Duration
	radiusCache *cache.Cache
	cityCache   *cache.Cache
}

// NewOverpassRepository builds the Overpass place source against the
// given interpreter endpoint.
func NewOverpassRepository(endpoint string, timeout time.Duration, geocoder cityGeocoder) *OverpassRepository {
	httpClient := &http.Client{Timeout: timeout}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &OverpassRepository{
		client:      &client,
		geocoder:    geocoder,
		timeout:     timeout,
		radiusCache: cache.New(60 * time.Second),
		cityCache:   cache.New(5 * time.Minute),
	}
}

// Nearby fetches places of one activity around a point. Returns an
// empty slice when Overpass is unavailable rather than failing the
// request; the caller falls back to the demo catalog.
func (r *OverpassRepository) Nearby(ctx context.Context, lat, lon float64, radiusM int, activity string, limit int) ([]model.Place, error) {
	activity = strings.ToLower(strings.TrimSpace(activity))
	if activity == "" {
		activity = model.ActivityNature
	}
	radiusM = clampInt(radiusM, 250, 20000)
	limit = clampInt(limit, 1, 200)
	candidateLimit := clampInt(limit*2, 100, 280)

	key := fmt.Sprintf("%.4f:%.4f:%d:%s", lat, lon, radiusM, activity)
	if cached, ok := r.radiusCache.Get(key); ok {
		return cached.([]model.Place), nil
	}

	var blocks []string
	for _, f := range filtersFor(activity) {
		blocks = append(blocks,
			fmt.Sprintf(`node[%q=%q](around:%d,%f,%f);`, f.key, f.value, radiusM, lat, lon),
			fmt.Sprintf(`way[%q=%q](around:%d,%f,%f);`, f.key, f.value, radiusM, lat, lon),
		)
	}
	query := buildQuery(blocks, r.overpassTimeout(), candidateLimit)

	result, err := r.executeQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute nearby query: %w", err)
	}

	places := r.collectPlaces(result, activity, "", candidateLimit, limit)
	r.radiusCache.Set(key, places)
	return places, nil
}

// InCity fetches places of one activity across a whole city, trying the
// geocoded Overpass area first and the bounding box when the area query
// comes back empty.
func (r *OverpassRepository) InCity(ctx context.Context, city, activity string, limit int) ([]model.Place, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, nil
	}
	activity = strings.ToLower(strings.TrimSpace(activity))
	if activity == "" {
		activity = model.ActivityNature
	}
	limit = clampInt(limit, 1, 250)
	candidateLimit := clampInt(limit*2, 120, 350)

	key := strings.ToLower(city) + ":" + activity
	if cached, ok := r.cityCache.Get(key); ok {
		return cached.([]model.Place), nil
	}

	geo, err := r.geocoder.GeocodeCity(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode city: %w", err)
	}
	if geo == nil {
		return nil, nil
	}

	var queries []string
	if geo.AreaID != 0 {
		var blocks []string
		for _, f := range filtersFor(activity) {
			blocks = append(blocks,
				fmt.Sprintf(`node[%q=%q](area.searchArea);`, f.key, f.value),
				fmt.Sprintf(`way[%q=%q](area.searchArea);`, f.key, f.value),
			)
		}
		queries = append(queries, buildAreaQuery(geo.AreaID, blocks, r.overpassTimeout(), candidateLimit))
	}
	if geo.BBox != nil {
		south, west, north, east := geo.BBox[0], geo.BBox[1], geo.BBox[2], geo.BBox[3]
		var blocks []string
		for _, f := range filtersFor(activity) {
			blocks = append(blocks,
				fmt.Sprintf(`node[%q=%q](%f,%f,%f,%f);`, f.key, f.value, south, west, north, east),
				fmt.Sprintf(`way[%q=%q](%f,%f,%f,%f);`, f.key, f.value, south, west, north, east),
			)
		}
		queries = append(queries, buildQuery(blocks, r.overpassTimeout(), candidateLimit))
	}
	if len(queries) == 0 {
		return nil, nil
	}

	var places []model.Place
	for _, query := range queries {
		result, err := r.executeQuery(ctx, query)
		if err != nil {
			continue
		}
		places = r.collectPlaces(result, activity, city, candidateLimit, limit)
		// Some area ids resolve but match nothing; try the bbox next.
		if len(places) > 0 {
			break
		}
	}

	r.cityCache.Set(key, places)
	return places, nil
}

func (r *OverpassRepository) overpassTimeout() int {
	secs := int(r.timeout.Round(time.Second) / time.Second)
	return clampInt(secs, 5, 25)
}

func buildQuery(blocks []string, timeoutS, candidateLimit int) string {
	return fmt.Sprintf("[out:json][timeout:%d];(\n  %s\n);\nout body qt %d;\n>;\nout skel qt;",
		timeoutS, strings.Join(blocks, "\n  "), candidateLimit)
}

func buildAreaQuery(areaID int64, blocks []string, timeoutS, candidateLimit int) string {
	return fmt.Sprintf("[out:json][timeout:%d];area(%d)->.searchArea;(\n  %s\n);\nout body qt %d;\n>;\nout skel qt;",
		timeoutS, areaID, strings.Join(blocks, "\n  "), candidateLimit)
}

func (r *OverpassRepository) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.client.Query(query)
	if err != nil {
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}
	return &result, nil
}

// collectPlaces converts Overpass nodes and ways into Place records:
// center extraction, name fallback chain, tag-derived popularity,
// rating override, per-family defaults, dedupe and ordering.
func (r *OverpassRepository) collectPlaces(result *overpass.Result, activity, city string, candidateLimit, limit int) []model.Place {
	family := model.CanonicalActivity(activity)
	defaults, ok := defaultsByFamily[family]
	if !ok {
		defaults = defaultsByFamily[model.ActivityNature]
	}

	type candidate struct {
		id   int64
		kind string
		lat  float64
		lon  float64
		tags map[string]string
	}

	var candidates []candidate
	for _, node := range result.Nodes {
		if len(node.Tags) == 0 {
			continue
		}
		candidates = append(candidates, candidate{node.ID, string(overpass.ElementTypeNode), node.Lat, node.Lon, node.Tags})
	}
	for _, way := range result.Ways {
		if len(way.Tags) == 0 || len(way.Nodes) == 0 {
			continue
		}
		var lat, lon float64
		for _, n := range way.Nodes {
			lat += n.Lat
			lon += n.Lon
		}
		count := float64(len(way.Nodes))
		candidates = append(candidates, candidate{way.ID, string(overpass.ElementTypeWay), lat / count, lon / count, way.Tags})
	}

	type sig struct {
		name     string
		lat, lon float64
	}
	seen := map[sig]struct{}{}
	var places []model.Place
	for _, c := range candidates {
		name := firstTag(c.tags, "name", "brand", "operator", "name:en")
		if name == "" {
			name = "Unnamed place"
		}

		s := sig{strings.ToLower(strings.TrimSpace(name)), round6(c.lat), round6(c.lon)}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}

		lat, lon := c.lat, c.lon
		popularity := float64(scorePopularity(c.tags))
		rating := defaults.rating
		if override, ok := ratingOverride(c.tags); ok {
			rating = override
		}
		tier := defaults.priceTier
		ideal := defaults.idealPeople

		places = append(places, model.Place{
			Name:            name,
			Type:            activity,
			City:            city,
			Lat:             &lat,
			Lon:             &lon,
			OSMID:           c.id,
			OSMKind:         c.kind,
			Rating:          &rating,
			PopularityScore: &popularity,
			PriceTier:       &tier,
			BestFor:         append([]string(nil), defaults.bestFor...),
			IdealPeople:     &ideal,
		})
		if len(places) >= candidateLimit {
			break
		}
	}

	sort.SliceStable(places, func(i, j int) bool {
		if *places[i].PopularityScore != *places[j].PopularityScore {
			return *places[i].PopularityScore > *places[j].PopularityScore
		}
		return *places[i].Rating > *places[j].Rating
	})
	if len(places) > limit {
		places = places[:limit]
	}
	return places
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(tags[key]); v != "" {
			return v
		}
	}
	return ""
}

func ratingOverride(tags map[string]string) (float64, bool) {
	raw := firstTag(tags, "rating", "stars")
	if raw == "" {
		return 0, false
	}
	rating, err := strconv.ParseFloat(raw, 64)
	if err != nil || rating < 0 || rating > 5 {
		return 0, false
	}
	return rating, true
}

// scorePopularity derives a coarse 0-100 popularity from OSM tag
// richness: documented places (wikipedia, wikidata, contact details)
// tend to be the notable ones.
func scorePopularity(tags map[string]string) int {
	if len(tags) == 0 {
		return 10
	}

	score := 0
	if firstTag(tags, "name", "brand", "operator", "name:en") != "" {
		score += 18
	} else {
		score += 6
	}

	if firstTag(tags, "wikipedia", "wikipedia:en") != "" {
		score += 30
	}
	if tags["wikidata"] != "" {
		score += 25
	}
	if firstTag(tags, "website", "contact:website") != "" {
		score += 8
	}
	if tags["opening_hours"] != "" {
		score += 4
	}
	if firstTag(tags, "phone", "contact:phone", "email", "contact:email") != "" {
		score += 4
	}
	if firstTag(tags, "image", "wikimedia_commons") != "" {
		score += 4
	}
	if firstTag(tags, "contact:instagram", "contact:facebook", "contact:twitter") != "" {
		score += 4
	}

	switch strings.ToLower(strings.TrimSpace(tags["tourism"])) {
	case "attraction", "museum", "gallery", "zoo", "theme_park", "aquarium":
		score += 18
	case "viewpoint", "picnic_site":
		score += 10
	}

	historic := strings.ToLower(strings.TrimSpace(tags["historic"]))
	if historic != "" && historic != "no" {
		score += 10
	}
	if tags["heritage"] != "" {
		score += 8
	}

	switch strings.ToLower(strings.TrimSpace(tags["amenity"])) {
	case "restaurant", "cafe", "cinema", "theatre", "arts_centre":
		score += 6
	}
	switch strings.ToLower(strings.TrimSpace(tags["leisure"])) {
	case "park", "garden", "nature_reserve", "water_park", "bowling_alley", "amusement_arcade":
		score += 6
	}

	for key := range tags {
		if strings.HasPrefix(key, "addr:") {
			score += 3
			break
		}
	}

	return clampInt(score, 0, 100)
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
