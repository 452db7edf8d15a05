package core

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smarttrip/internal/domain/model"
)

// DefaultOrigin is used when neither the request nor geocoding yields
// an origin (Tehran city center).
var DefaultOrigin = [2]float64{35.6892, 51.3890}

const (
	recommendLimit = 5

	defaultRadiusCarM   = 7000
	defaultRadiusNoCarM = 4500
	minRadiusM          = 1000
	maxRadiusM          = 15000

	cityFallbackRadiusM = 15000
)

// PlaceSource supplies candidate places from the map provider.
type PlaceSource interface {
	Nearby(ctx context.Context, lat, lon float64, radiusM int, activity string, limit int) ([]model.Place, error)
	InCity(ctx context.Context, city, activity string, limit int) ([]model.Place, error)
}

// Geocoder resolves a city name to a center point and search area.
type Geocoder interface {
	GeocodeCity(ctx context.Context, city string) (*model.CityInfo, error)
}

// DemoSource supplies the deterministic demo catalog around a point.
type DemoSource interface {
	Around(lat, lon float64) []model.Place
}

// WeightStore is the durable two-layer weight mapping. Consistency is
// last-write-wins; concurrent feedback for one session can lose an
// update, which is accepted.
type WeightStore interface {
	LoadGlobal(ctx context.Context) (model.WeightVector, error)
	LoadUser(ctx context.Context, sessionID string) (model.WeightVector, error)
	SaveGlobal(ctx context.Context, weights model.WeightVector) error
	SaveUser(ctx context.Context, sessionID string, weights model.WeightVector) error
	SeedIfEmpty(ctx context.Context, seed model.WeightVector) error
}

// RankingLog persists (request id, context, ranked places) tuples with
// exact round-trip, since feedback rebuilds feature vectors from them.
type RankingLog interface {
	Save(ctx context.Context, requestID, sessionID string, reqCtx model.Context, places []model.ScoredPlace) error
	Load(ctx context.Context, requestID string) (*model.Context, []model.ScoredPlace, error)
}

// EventLog is the append-only audit trail. Fire-and-forget: the service
// logs append failures but never fails a request over them.
type EventLog interface {
	Append(ctx context.Context, event model.Event) error
}

// Recommender orchestrates place fetching, ranking, persistence and
// feedback learning.
type Recommender struct {
	places  PlaceSource
	geo     Geocoder
	demo    DemoSource
	weights WeightStore
	ranking RankingLog
	events  EventLog
	learner LearnerConfig
	log     zerolog.Logger
}

// NewRecommender wires the recommendation service.
func NewRecommender(
	places PlaceSource,
	geo Geocoder,
	demo DemoSource,
	weights WeightStore,
	ranking RankingLog,
	events EventLog,
	learner LearnerConfig,
	log zerolog.Logger,
) *Recommender {
	return &Recommender{
		places:  places,
		geo:     geo,
		demo:    demo,
		weights: weights,
		ranking: ranking,
		events:  events,
		learner: learner,
		log:     log,
	}
}

// RecommendInput is a parsed /recommend request.
type RecommendInput struct {
	Lang        string
	SessionID   string
	Activities  []string
	Activity    string
	GroupType   string
	Budget      string
	PeopleCount int
	HasCar      bool
	Lat         *float64
	Lon         *float64
	City        string
	SearchMode  string
	RadiusM     *int
}

// Origin describes the resolved request origin.
type Origin struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Source string  `json:"source"` // user, city or demo
}

// RecommendOutput is the ranked result of one request.
type RecommendOutput struct {
	RequestID       string
	ModelVersion    string
	Origin          Origin
	RadiusM         int
	SearchMode      string
	City            string
	Activities      []string
	DataSource      string
	Recommendations []model.ScoredPlace
}

// Recommend handles one ranking request end to end: resolve the origin,
// fetch candidates (OSM with demo fallback), rank them under the
// session's effective weights and persist the decision for later
// feedback replay.
func (s *Recommender) Recommend(ctx context.Context, in RecommendInput) (*RecommendOutput, error) {
	lang := model.NormalizeLang(in.Lang)
	sessionID := strings.TrimSpace(in.SessionID)

	activities := normalizeActivities(in.Activities, in.Activity)
	primary := model.PrimaryActivities(activities)

	city := strings.TrimSpace(in.City)
	searchMode := strings.ToLower(strings.TrimSpace(in.SearchMode))
	if searchMode == "" {
		if city != "" {
			searchMode = model.SearchModeCity
		} else {
			searchMode = model.SearchModeRadius
		}
	}
	if searchMode != model.SearchModeCity {
		city = ""
	}

	var cityInfo *model.CityInfo
	if city != "" {
		info, err := s.geo.GeocodeCity(ctx, city)
		if err != nil {
			s.log.Warn().Err(err).Str("city", city).Msg("geocoding failed")
		} else {
			cityInfo = info
		}
	}

	origin := s.resolveOrigin(in, cityInfo)

	radiusM := defaultRadiusNoCarM
	if in.HasCar {
		radiusM = defaultRadiusCarM
	}
	if in.RadiusM != nil {
		radiusM = *in.RadiusM
	}
	radiusM = clampInt(radiusM, minRadiusM, maxRadiusM)

	places, searchMode, city := s.fetchPlaces(ctx, activities, city, cityInfo, origin, radiusM, searchMode)

	dataSource := "osm"
	if len(places) == 0 {
		dataSource = "demo"
		places = filterByPrimary(s.demo.Around(origin.Lat, origin.Lon), primary)
	}
	for i := range places {
		places[i] = model.Enrich(places[i], primary[0])
	}

	if err := s.weights.SeedIfEmpty(ctx, model.SeedWeights()); err != nil {
		return nil, fmt.Errorf("failed to seed weights: %w", err)
	}
	effective, err := s.effectiveWeights(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reqCtx := model.Context{
		Lang:              lang,
		Activity:          primary[0],
		Activities:        activities,
		PrimaryActivities: primary,
		GroupType:         in.GroupType,
		Budget:            in.Budget,
		PeopleCount:       in.PeopleCount,
		HasCar:            in.HasCar,
		Origin:            [2]float64{origin.Lat, origin.Lon},
		RadiusM:           radiusM,
		SearchMode:        searchMode,
		City:              city,
	}

	recommendations := Rank(places, reqCtx, effective, recommendLimit)

	// OSM can return too few candidates for a small radius; keep every
	// OSM pick and top up with demo candidates.
	if dataSource == "osm" && len(recommendations) < recommendLimit {
		demoRanked := Rank(filterByPrimary(s.demo.Around(origin.Lat, origin.Lon), primary), reqCtx, effective, recommendLimit)
		needed := recommendLimit - len(recommendations)
		if needed > 0 && len(demoRanked) > 0 {
			if needed > len(demoRanked) {
				needed = len(demoRanked)
			}
			recommendations = dedupeScored(append(recommendations, demoRanked[:needed]...), recommendLimit)
			dataSource = "osm+demo"
		}
	}

	annotate(recommendations, in.GroupType)

	requestID := strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := s.ranking.Save(ctx, requestID, sessionID, reqCtx, recommendations); err != nil {
		return nil, fmt.Errorf("failed to log ranking: %w", err)
	}
	s.appendEvent(ctx, model.Event{
		SessionID: sessionID,
		RequestID: requestID,
		Action:    "recommend",
		Payload:   map[string]any{"data_source": dataSource, "model_version": ModelVersion},
	})

	return &RecommendOutput{
		RequestID:       requestID,
		ModelVersion:    ModelVersion,
		Origin:          origin,
		RadiusM:         radiusM,
		SearchMode:      searchMode,
		City:            city,
		Activities:      activities,
		DataSource:      dataSource,
		Recommendations: recommendations,
	}, nil
}

func (s *Recommender) resolveOrigin(in RecommendInput, cityInfo *model.CityInfo) Origin {
	if in.Lat != nil && in.Lon != nil {
		return Origin{Lat: *in.Lat, Lon: *in.Lon, Source: "user"}
	}
	if cityInfo != nil {
		return Origin{Lat: cityInfo.Lat, Lon: cityInfo.Lon, Source: "city"}
	}
	return Origin{Lat: DefaultOrigin[0], Lon: DefaultOrigin[1], Source: "demo"}
}

// fetchPlaces runs the mode-specific candidate fetch. City mode falls
// back to a large-radius search around the city center before giving up
// (area queries can be slow or unavailable).
func (s *Recommender) fetchPlaces(
	ctx context.Context,
	activities []string,
	city string,
	cityInfo *model.CityInfo,
	origin Origin,
	radiusM int,
	searchMode string,
) ([]model.Place, string, string) {
	if city != "" && cityInfo != nil {
		var places []model.Place
		perActivity := maxInt(30, 200/len(activities))
		for _, activity := range activities {
			fetched, err := s.places.InCity(ctx, city, activity, perActivity)
			if err != nil {
				s.log.Warn().Err(err).Str("city", city).Str("activity", activity).Msg("city fetch failed")
				continue
			}
			places = append(places, fetched...)
		}
		places = dedupePlaces(places, 250)

		if len(places) == 0 {
			perActivity = maxInt(20, 80/len(activities))
			for _, activity := range activities {
				fetched, err := s.places.Nearby(ctx, cityInfo.Lat, cityInfo.Lon, cityFallbackRadiusM, activity, perActivity)
				if err != nil {
					s.log.Warn().Err(err).Str("activity", activity).Msg("city fallback fetch failed")
					continue
				}
				places = append(places, fetched...)
			}
			places = dedupePlaces(places, 120)
		}
		return places, model.SearchModeCity, city
	}

	var places []model.Place
	perActivity := maxInt(20, 80/len(activities))
	for _, activity := range activities {
		fetched, err := s.places.Nearby(ctx, origin.Lat, origin.Lon, radiusM, activity, perActivity)
		if err != nil {
			s.log.Warn().Err(err).Str("activity", activity).Msg("nearby fetch failed")
			continue
		}
		places = append(places, fetched...)
	}
	return dedupePlaces(places, 120), model.SearchModeRadius, ""
}

func (s *Recommender) effectiveWeights(ctx context.Context, sessionID string) (model.WeightVector, error) {
	global, err := s.weights.LoadGlobal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global weights: %w", err)
	}
	if sessionID == "" {
		return global, nil
	}
	offset, err := s.weights.LoadUser(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user weights: %w", err)
	}
	return model.Combine(global, offset), nil
}

// FeedbackInput is a parsed /feedback request. RequestID and PlaceID
// are required; the handler rejects empty values before calling.
type FeedbackInput struct {
	SessionID string
	RequestID string
	PlaceID   string
	Action    string
}

// trainableActions are the implicit-preference signals that trigger a
// weight update. Other actions are logged only.
var trainableActions = map[string]struct{}{
	"click":  {},
	"choose": {},
	"like":   {},
}

// Feedback records a feedback event and, for trainable actions, replays
// the logged ranking to run one pairwise learning step. Returns whether
// training happened.
func (s *Recommender) Feedback(ctx context.Context, in FeedbackInput) (bool, error) {
	action := strings.ToLower(strings.TrimSpace(in.Action))
	if action == "" {
		action = "click"
	}
	sessionID := strings.TrimSpace(in.SessionID)

	s.appendEvent(ctx, model.Event{
		SessionID: sessionID,
		RequestID: in.RequestID,
		Action:    action,
		PlaceID:   in.PlaceID,
		Payload:   map[string]any{"client": "web"},
	})

	if _, ok := trainableActions[action]; !ok {
		return false, nil
	}

	reqCtx, items, err := s.ranking.Load(ctx, in.RequestID)
	if err != nil {
		return false, fmt.Errorf("failed to load ranking record: %w", err)
	}
	if reqCtx == nil || len(items) == 0 {
		return false, nil
	}

	var clicked *model.ScoredPlace
	others := make([]model.ScoredPlace, 0, len(items))
	for i := range items {
		if items[i].PlaceID == in.PlaceID {
			clicked = &items[i]
		} else {
			others = append(others, items[i])
		}
	}
	if clicked == nil || len(others) == 0 {
		return false, nil
	}

	clickedFeatures, _ := BuildFeatures(clicked.Place, *reqCtx)
	otherFeatures := make([]model.FeatureVector, 0, len(others))
	for _, other := range others {
		features, _ := BuildFeatures(other.Place, *reqCtx)
		otherFeatures = append(otherFeatures, features)
	}

	if err := s.weights.SeedIfEmpty(ctx, model.SeedWeights()); err != nil {
		return false, fmt.Errorf("failed to seed weights: %w", err)
	}
	global, err := s.weights.LoadGlobal(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load global weights: %w", err)
	}

	var offset model.WeightVector
	if sessionID != "" {
		offset, err = s.weights.LoadUser(ctx, sessionID)
		if err != nil {
			return false, fmt.Errorf("failed to load user weights: %w", err)
		}
	}

	newGlobal, newOffset := LearnFromClick(global, offset, sessionID != "", clickedFeatures, otherFeatures, s.learner)

	if err := s.weights.SaveGlobal(ctx, newGlobal); err != nil {
		return false, fmt.Errorf("failed to save global weights: %w", err)
	}
	if sessionID != "" {
		if err := s.weights.SaveUser(ctx, sessionID, newOffset); err != nil {
			return false, fmt.Errorf("failed to save user weights: %w", err)
		}
	}

	s.log.Info().
		Str("request_id", in.RequestID).
		Str("place_id", in.PlaceID).
		Str("action", action).
		Int("others", len(others)).
		Msg("weights updated from feedback")
	return true, nil
}

// ChatInput is a parsed /chat request.
type ChatInput struct {
	Lang      string
	SessionID string
	Message   string
	Current   ChatPrefs
}

// ChatOutput carries the extracted updates and the assistant reply.
type ChatOutput struct {
	Updates ChatUpdates
	Reply   string
}

// Chat parses a free-text message into preference updates. When the
// message switches to city mode, the extracted city is validated
// through the geocoder and dropped (with a corrective reply) when it
// cannot be resolved.
func (s *Recommender) Chat(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	lang := model.NormalizeLang(in.Lang)
	sessionID := strings.TrimSpace(in.SessionID)

	updates, reply := ParseMessage(in.Message, in.Current, lang)

	if updates.SearchMode != nil && *updates.SearchMode == model.SearchModeCity {
		if updates.City != nil && strings.TrimSpace(*updates.City) != "" {
			city := strings.TrimSpace(*updates.City)
			info, err := s.geo.GeocodeCity(ctx, city)
			if err != nil || info == nil {
				if lang == "fa" {
					reply = "شهر پیدا نشد. لطفاً با املای دیگری امتحان کن (مثال: Tehran / تهران)."
				} else {
					reply = "City not found. Try another spelling (e.g., Tehran / تهران)."
				}
				updates.City = nil
			} else {
				updates.City = &city
			}
		} else {
			if lang == "fa" {
				reply = "کدوم شهر رو جستجو کنم؟ (مثال: Tehran / تهران)"
			} else {
				reply = "Which city should I search? (e.g., Tehran / تهران)"
			}
		}
	}

	message := in.Message
	if len(message) > 500 {
		message = message[:500]
	}
	s.appendEvent(ctx, model.Event{
		SessionID: sessionID,
		Action:    "chat",
		Payload:   map[string]any{"message": message, "updates": updates},
	})

	return &ChatOutput{Updates: updates, Reply: reply}, nil
}

func (s *Recommender) appendEvent(ctx context.Context, event model.Event) {
	if err := s.events.Append(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("action", event.Action).Msg("event append failed")
	}
}

// normalizeActivities filters the requested activities against the
// allow list, falling back to the single activity field, then nature.
func normalizeActivities(activities []string, single string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, raw := range activities {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if _, ok := model.AllowedActivities[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	if len(out) == 0 {
		key := strings.ToLower(strings.TrimSpace(single))
		if _, ok := model.AllowedActivities[key]; !ok {
			key = model.ActivityNature
		}
		out = append(out, key)
	}
	return out
}

// filterByPrimary keeps demo places whose canonical family matches one
// of the requested primaries; an empty result keeps everything.
func filterByPrimary(places []model.Place, primary []string) []model.Place {
	allow := map[string]struct{}{}
	for _, p := range primary {
		allow[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	if len(allow) == 0 {
		return places
	}
	var filtered []model.Place
	for _, place := range places {
		if _, ok := allow[model.PrimaryActivity(place.Type)]; ok {
			filtered = append(filtered, place)
		}
	}
	if len(filtered) == 0 {
		return places
	}
	return filtered
}

type placeSig struct {
	name     string
	lat, lon float64
	osm      string
}

func sigOf(name string, lat, lon *float64, osmKind string, osmID int64) placeSig {
	sig := placeSig{name: strings.ToLower(strings.TrimSpace(name))}
	if lat != nil && lon != nil {
		sig.lat = math.Round(*lat*1e6) / 1e6
		sig.lon = math.Round(*lon*1e6) / 1e6
	} else {
		sig.osm = fmt.Sprintf("%s:%d", osmKind, osmID)
	}
	return sig
}

// dedupePlaces drops duplicate candidates by (name, rounded coords),
// preserving input order and capping the result.
func dedupePlaces(places []model.Place, limit int) []model.Place {
	seen := map[placeSig]struct{}{}
	var unique []model.Place
	for _, place := range places {
		sig := sigOf(place.Name, place.Lat, place.Lon, place.OSMKind, place.OSMID)
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		unique = append(unique, place)
		if len(unique) >= limit {
			break
		}
	}
	return unique
}

func dedupeScored(places []model.ScoredPlace, limit int) []model.ScoredPlace {
	seen := map[placeSig]struct{}{}
	var unique []model.ScoredPlace
	for _, place := range places {
		sig := sigOf(place.Name, place.Lat, place.Lon, place.OSMKind, place.OSMID)
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		unique = append(unique, place)
		if len(unique) >= limit {
			break
		}
	}
	return unique
}

// annotate fills the display fields set after ranking: 1-based rank,
// budget label from the price tier, matched group and a popularity
// backfill derived from the rating.
func annotate(recommendations []model.ScoredPlace, userGroupType string) {
	group := strings.ToLower(strings.TrimSpace(userGroupType))
	for i := range recommendations {
		p := &recommendations[i]
		p.Rank = i + 1

		tier := defaultPriceTier
		if p.PriceTier != nil {
			tier = *p.PriceTier
		}
		switch tier {
		case 1:
			p.BudgetLabel = "low"
		case 3:
			p.BudgetLabel = "high"
		default:
			p.BudgetLabel = "medium"
		}

		p.Group = userGroupType
		matched := false
		for _, bf := range p.BestFor {
			if strings.ToLower(strings.TrimSpace(bf)) == group {
				matched = true
				break
			}
		}
		if !matched && len(p.BestFor) > 0 {
			p.Group = p.BestFor[0]
		}

		if p.PopularityScore == nil {
			pop := 50.0
			if p.Rating != nil {
				pop = *p.Rating / 5.0 * 100
			}
			pop = clamp(math.Round(pop), 0, 100)
			p.PopularityScore = &pop
		}
	}
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
