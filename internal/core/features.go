package core

import (
	"math"
	"strings"

	"smarttrip/internal/domain/model"
)

// Defaults used when a place record is missing a field. Every numeric
// input is defensive: malformed or absent values fall back rather than
// fail.
const (
	defaultRating     = 4.2
	defaultPriceTier  = 2
	defaultPeople     = 2
	defaultDistanceKM = 5.0

	// Distance tolerance of the exponential falloff. Wider with a car.
	tauCarKM   = 4.8
	tauNoCarKM = 2.4

	// People-count falloff outside the ideal range.
	peopleFalloff = 2.5
)

// BuildFeatures converts a place and request context into the fixed
// nine-feature vector plus the derived distance in kilometers. Every
// feature name is always present in the result.
func BuildFeatures(place model.Place, ctx model.Context) (model.FeatureVector, float64) {
	activity := model.CanonicalActivity(ctx.Activity)
	group := model.CanonicalGroup(ctx.GroupType)
	budget := model.CanonicalBudget(ctx.Budget)

	placeType := place.Type
	if placeType == "" {
		placeType = activity
	}
	placeActivity := model.CanonicalActivity(placeType)

	var activityFit float64
	switch {
	case placeActivity == activity:
		activityFit = 1.0
	case cafeRestaurantPair(placeActivity, activity):
		// Adjacent categories get partial credit.
		activityFit = 0.65
	default:
		activityFit = 0.25
	}

	groupFit := 0.35
	for _, g := range place.BestFor {
		if strings.ToLower(strings.TrimSpace(g)) == group {
			groupFit = 1.0
			break
		}
	}

	rating := defaultRating
	if place.Rating != nil && !math.IsNaN(*place.Rating) {
		rating = *place.Rating
	}
	quality := clamp(rating/5.0, 0.0, 1.0)

	popularity := quality
	if place.PopularityScore != nil && !math.IsNaN(*place.PopularityScore) && !math.IsInf(*place.PopularityScore, 0) {
		popularity = clamp(*place.PopularityScore/100.0, 0.0, 1.0)
	}

	budgetFit := budgetFitFor(budget, place.PriceTier)
	peopleFit := peopleFitFor(ctx.PeopleCount, place.IdealPeople)

	distanceKM := placeDistanceKM(place, ctx.Origin)

	tau := tauNoCarKM
	if ctx.HasCar {
		tau = tauCarKM
	}
	distanceFit := math.Exp(-math.Max(0, distanceKM) / tau)

	cityMode := 0.0
	if model.NormalizeSearchMode(ctx.SearchMode) == model.SearchModeCity {
		cityMode = 1.0
		// City-wide search ignores proximity so results don't cluster
		// around the city center.
		distanceFit = 0.0
	}

	features := model.FeatureVector{
		model.FeatureBias:        1.0,
		model.FeatureActivityFit: activityFit,
		model.FeatureDistanceFit: distanceFit,
		model.FeatureGroupFit:    groupFit,
		model.FeatureBudgetFit:   budgetFit,
		model.FeaturePeopleFit:   peopleFit,
		model.FeatureQuality:     quality,
		model.FeaturePopularity:  popularity,
		model.FeatureCityMode:    cityMode,
	}
	return features, distanceKM
}

func cafeRestaurantPair(a, b string) bool {
	return (a == model.ActivityCafe && b == model.ActivityRestaurant) ||
		(a == model.ActivityRestaurant && b == model.ActivityCafe)
}

// budgetFitFor scores a place's price tier against the user's budget
// tier: full credit up to the user's tier, partial one tier above.
func budgetFitFor(budget string, priceTier *int) float64 {
	userTier := model.BudgetTier(budget)
	placeTier := defaultPriceTier
	if priceTier != nil {
		placeTier = *priceTier
	}
	switch {
	case budget == model.BudgetOpen:
		return 1.0
	case placeTier <= userTier:
		return 1.0
	case placeTier == userTier+1:
		return 0.55
	default:
		return 0.25
	}
}

// peopleFitFor gives full credit inside the ideal range and a smooth
// exponential falloff by the gap to the nearer endpoint outside it.
func peopleFitFor(peopleCount int, ideal *model.PeopleRange) float64 {
	people := peopleCount
	if people <= 0 {
		people = defaultPeople
	}

	low, high := defaultPeople, 6
	if ideal != nil {
		low, high = ideal.Min(), ideal.Max()
	}

	if low <= people && people <= high {
		return 1.0
	}
	gap := math.Min(math.Abs(float64(people-low)), math.Abs(float64(people-high)))
	return math.Exp(-gap / peopleFalloff)
}

// placeDistanceKM returns the great-circle distance from the origin, or
// the place's own fallback distance (default 5 km) when it has no
// usable coordinates.
func placeDistanceKM(place model.Place, origin [2]float64) float64 {
	if place.Lat != nil && place.Lon != nil &&
		!math.IsNaN(*place.Lat) && !math.IsNaN(*place.Lon) &&
		!math.IsInf(*place.Lat, 0) && !math.IsInf(*place.Lon, 0) {
		return HaversineKM(origin[0], origin[1], *place.Lat, *place.Lon)
	}
	if place.DistanceKM != nil && !math.IsNaN(*place.DistanceKM) && !math.IsInf(*place.DistanceKM, 0) {
		return *place.DistanceKM
	}
	return defaultDistanceKM
}
