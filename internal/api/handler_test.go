package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"smarttrip/internal/core"
	"smarttrip/internal/domain/model"
	"smarttrip/internal/metrics"
)

type stubPlaceSource struct{}

func (stubPlaceSource) Nearby(context.Context, float64, float64, int, string, int) ([]model.Place, error) {
	return nil, nil
}

func (stubPlaceSource) InCity(context.Context, string, string, int) ([]model.Place, error) {
	return nil, nil
}

type stubGeocoder struct{ info *model.CityInfo }

func (s stubGeocoder) GeocodeCity(context.Context, string) (*model.CityInfo, error) {
	return s.info, nil
}

type stubDemo struct{}

func (stubDemo) Around(lat, lon float64) []model.Place {
	mk := func(name, placeType string, dLat, dLon float64) model.Place {
		la, lo := lat+dLat, lon+dLon
		rating := 4.5
		tier := 2
		ideal := model.PeopleRange{1, 6}
		return model.Place{
			Name: name, Type: placeType, Lat: &la, Lon: &lo,
			Rating: &rating, PriceTier: &tier,
			BestFor: []string{"friends"}, IdealPeople: &ideal,
		}
	}
	return []model.Place{
		mk("Test Cafe", "cafe", 0.01, 0.0),
		mk("Test Roastery", "cafe", 0.02, -0.01),
		mk("Test Espresso Bar", "cafe", -0.01, 0.02),
		mk("Test Park", "nature", -0.01, 0.01),
		mk("Test Diner", "restaurant", 0.0, 0.02),
	}
}

type memWeightStore struct {
	global model.WeightVector
	users  map[string]model.WeightVector
}

func (m *memWeightStore) LoadGlobal(context.Context) (model.WeightVector, error) {
	return m.global.Clone(), nil
}

func (m *memWeightStore) LoadUser(_ context.Context, id string) (model.WeightVector, error) {
	return m.users[id].Clone(), nil
}

func (m *memWeightStore) SaveGlobal(_ context.Context, w model.WeightVector) error {
	m.global = w.Clone()
	return nil
}

func (m *memWeightStore) SaveUser(_ context.Context, id string, w model.WeightVector) error {
	m.users[id] = w.Clone()
	return nil
}

func (m *memWeightStore) SeedIfEmpty(_ context.Context, seed model.WeightVector) error {
	if len(m.global) == 0 {
		m.global = seed.Clone()
	}
	return nil
}

type memRanking struct {
	ctxs   map[string]model.Context
	places map[string][]model.ScoredPlace
}

func (m *memRanking) Save(_ context.Context, requestID, _ string, reqCtx model.Context, places []model.ScoredPlace) error {
	m.ctxs[requestID] = reqCtx
	m.places[requestID] = places
	return nil
}

func (m *memRanking) Load(_ context.Context, requestID string) (*model.Context, []model.ScoredPlace, error) {
	reqCtx, ok := m.ctxs[requestID]
	if !ok {
		return nil, nil, nil
	}
	return &reqCtx, m.places[requestID], nil
}

type memEvents struct{ events []model.Event }

func (m *memEvents) Append(_ context.Context, e model.Event) error {
	m.events = append(m.events, e)
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc := core.NewRecommender(
		stubPlaceSource{},
		stubGeocoder{},
		stubDemo{},
		&memWeightStore{users: map[string]model.WeightVector{}},
		&memRanking{ctxs: map[string]model.Context{}, places: map[string][]model.ScoredPlace{}},
		&memEvents{},
		core.DefaultLearnerConfig(),
		zerolog.Nop(),
	)

	registry := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		t.Fatalf("register metrics: %v", err)
	}

	handler := NewHandler(svc, m, zerolog.Nop())
	router := NewRouter(handler, m, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), zerolog.Nop())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestRecommendEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, body := postJSON(t, srv.URL+"/recommend", map[string]any{
		"activity":     "cafe",
		"group_type":   "friends",
		"budget":       "medium",
		"people_count": 2,
		"lat":          35.6892,
		"lon":          51.3890,
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", resp.StatusCode, body)
	}
	if body["status"] != "success" {
		t.Errorf("status = %v, want success", body["status"])
	}
	requestID, _ := body["request_id"].(string)
	if len(requestID) != 32 {
		t.Errorf("request_id = %q, want 32 chars", requestID)
	}
	if body["model_version"] != "ml-v3" {
		t.Errorf("model_version = %v, want ml-v3", body["model_version"])
	}
	recs, ok := body["recommendations"].([]any)
	if !ok || len(recs) == 0 || len(recs) > 5 {
		t.Fatalf("recommendations = %v, want 1..5 entries", body["recommendations"])
	}
	first, ok := recs[0].(map[string]any)
	if !ok {
		t.Fatalf("recommendation shape = %T", recs[0])
	}
	for _, field := range []string{"place_id", "score", "score_raw", "breakdown", "explanation", "rank"} {
		if _, ok := first[field]; !ok {
			t.Errorf("recommendation missing field %q", field)
		}
	}
}

func TestRecommendThenFeedback(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	_, rec := postJSON(t, srv.URL+"/recommend", map[string]any{
		"activity":   "cafe",
		"session_id": "s-1",
		"lat":        35.6892,
		"lon":        51.3890,
	})

	requestID := rec["request_id"].(string)
	recs := rec["recommendations"].([]any)
	placeID := recs[0].(map[string]any)["place_id"].(string)

	resp, body := postJSON(t, srv.URL+"/feedback", map[string]any{
		"request_id": requestID,
		"place_id":   placeID,
		"session_id": "s-1",
		"action":     "click",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", resp.StatusCode, body)
	}
	if body["status"] != "success" {
		t.Errorf("status = %v, want success", body["status"])
	}
	// Training requires at least one non-clicked alternative; the stub
	// catalog guarantees several.
	if trained, _ := body["trained"].(bool); !trained {
		t.Errorf("trained = %v, want true", body["trained"])
	}
}

func TestFeedbackValidation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, body := postJSON(t, srv.URL+"/feedback", map[string]any{"action": "click"})

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if body["status"] != "error" {
		t.Errorf("status = %v, want error", body["status"])
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "request_id") {
		t.Errorf("message = %q, want required-fields hint", msg)
	}
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/chat", map[string]any{"message": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", resp.StatusCode)
	}
	_ = body

	resp, body = postJSON(t, srv.URL+"/chat", map[string]any{
		"message": "park nearby 5km",
		"lang":    "en",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", resp.StatusCode, body)
	}
	updates, ok := body["updates"].(map[string]any)
	if !ok {
		t.Fatalf("updates shape = %T", body["updates"])
	}
	if updates["activity"] != "nature" {
		t.Errorf("activity = %v, want nature", updates["activity"])
	}
	if radius, _ := updates["radius_m"].(float64); radius != 5000 {
		t.Errorf("radius_m = %v, want 5000", updates["radius_m"])
	}
	if reply, _ := body["reply"].(string); reply == "" {
		t.Error("reply is empty")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	// Serve one request so the counters have something to show.
	postJSON(t, srv.URL+"/recommend", map[string]any{"activity": "cafe"})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(buf.String(), metrics.MetricHTTPRequestsTotal) {
		t.Errorf("metrics output missing %s", metrics.MetricHTTPRequestsTotal)
	}
}
