package core

import (
	"testing"

	"smarttrip/internal/domain/model"
)

func rankedIDs(places []model.ScoredPlace) []string {
	ids := make([]string, len(places))
	for i, p := range places {
		ids[i] = p.PlaceID
	}
	return ids
}

func TestRankDeterministic(t *testing.T) {
	t.Parallel()

	ctx := baseContext()
	weights := model.SeedWeights()
	places := []model.Place{
		{Name: "A Cafe", Type: "cafe", Lat: fptr(35.69), Lon: fptr(51.39), Rating: fptr(4.1)},
		{Name: "B Park", Type: "nature", Lat: fptr(35.70), Lon: fptr(51.40), Rating: fptr(4.8)},
		{Name: "C Diner", Type: "restaurant", Lat: fptr(35.68), Lon: fptr(51.38), Rating: fptr(4.4)},
		{Name: "D Arcade", Type: "entertainment", Lat: fptr(35.71), Lon: fptr(51.37), Rating: fptr(4.0)},
	}

	first := rankedIDs(Rank(places, ctx, weights, 10))
	second := rankedIDs(Rank(places, ctx, weights, 10))

	if len(first) != len(second) {
		t.Fatalf("rank lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("rank order differs at %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestRankOrdersByScore(t *testing.T) {
	t.Parallel()

	ctx := baseContext()
	places := []model.Place{
		{Name: "Far Reserve", Type: "nature", Lat: fptr(36.2), Lon: fptr(52.0), Rating: fptr(4.0)},
		{Name: "Near Cafe", Type: "cafe", Lat: fptr(ctx.Origin[0]), Lon: fptr(ctx.Origin[1]), Rating: fptr(4.6), BestFor: []string{"friends"}},
	}

	ranked := Rank(places, ctx, model.SeedWeights(), 5)
	if ranked[0].Name != "Near Cafe" {
		t.Errorf("top place = %q, want Near Cafe", ranked[0].Name)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].ScoreRaw > ranked[i-1].ScoreRaw {
			t.Errorf("ranking not descending at %d", i)
		}
	}
}

func TestRankLimit(t *testing.T) {
	t.Parallel()

	ctx := baseContext()
	var places []model.Place
	for i := 0; i < 8; i++ {
		lat := 35.69 + float64(i)*0.001
		places = append(places, model.Place{Name: "P", Type: "cafe", Lat: fptr(lat), Lon: fptr(51.39)})
	}

	if got := len(Rank(places, ctx, model.SeedWeights(), 5)); got != 5 {
		t.Errorf("len = %d, want 5", got)
	}
	// A non-positive limit floors at one instead of returning nothing.
	if got := len(Rank(places, ctx, model.SeedWeights(), 0)); got != 1 {
		t.Errorf("len with limit 0 = %d, want 1", got)
	}
	if got := len(Rank(nil, ctx, model.SeedWeights(), 5)); got != 0 {
		t.Errorf("len with no places = %d, want 0", got)
	}
}

func TestRankCityModeTieBreak(t *testing.T) {
	t.Parallel()

	ctx := baseContext()
	ctx.SearchMode = model.SearchModeCity

	// Identical features: both popularity values clamp to 1.0 in the
	// vector, so the raw scores tie and the raw popularity decides.
	places := []model.Place{
		{Name: "Less Popular", Type: "cafe", Lat: fptr(35.69), Lon: fptr(51.39), Rating: fptr(4.2), PopularityScore: fptr(120)},
		{Name: "More Popular", Type: "cafe", Lat: fptr(35.70), Lon: fptr(51.40), Rating: fptr(4.2), PopularityScore: fptr(150)},
	}

	ranked := Rank(places, ctx, model.SeedWeights(), 5)
	if ranked[0].Name != "More Popular" {
		t.Errorf("top place = %q, want More Popular", ranked[0].Name)
	}
}

func TestRankRadiusModeTieBreak(t *testing.T) {
	t.Parallel()

	ctx := baseContext()

	// A zero distance weight removes distance from the raw score, so
	// the closer place must win purely on the distance tie-break.
	weights := model.SeedWeights()
	weights[model.FeatureDistanceFit] = 0

	places := []model.Place{
		{Name: "Farther", Type: "cafe", Lat: fptr(35.75), Lon: fptr(51.45), Rating: fptr(4.2)},
		{Name: "Closer", Type: "cafe", Lat: fptr(ctx.Origin[0] + 0.001), Lon: fptr(ctx.Origin[1]), Rating: fptr(4.2)},
	}

	ranked := Rank(places, ctx, weights, 5)
	if ranked[0].Name != "Closer" {
		t.Errorf("top place = %q, want Closer", ranked[0].Name)
	}
}
