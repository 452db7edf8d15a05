package model

import "strings"

// Canonical enumerations used by the scoring model.
const (
	ActivityNature        = "nature"
	ActivityCafe          = "cafe"
	ActivityRestaurant    = "restaurant"
	ActivityEntertainment = "entertainment"

	GroupSolo    = "solo"
	GroupFriends = "friends"
	GroupFamily  = "family"

	BudgetLow    = "low"
	BudgetMedium = "medium"
	BudgetOpen   = "open"

	SearchModeRadius = "radius"
	SearchModeCity   = "city"
)

// activityFamily maps the richer request taxonomy onto the four
// canonical scoring categories.
var activityFamily = map[string]string{
	"fast_food":      ActivityRestaurant,
	"juice":          ActivityCafe,
	"ice_cream":      ActivityCafe,
	"park":           ActivityNature,
	"attraction":     ActivityNature,
	"nature_tourism": ActivityNature,
	"historical":     ActivityNature,
	"eco_lodge":      ActivityNature,
	"cinema":         ActivityEntertainment,
	"amusement_park": ActivityEntertainment,
	"theatre":        ActivityEntertainment,
	"museum":         ActivityEntertainment,
	"pool":           ActivityEntertainment,
	"hotel":          ActivityEntertainment,
	"hostel":         ActivityEntertainment,
	"market":         ActivityEntertainment,
	"shopping_mall":  ActivityEntertainment,
}

// AllowedActivities is the request-level activity vocabulary: the four
// canonical categories plus every alias in the family mapping.
var AllowedActivities = func() map[string]struct{} {
	allowed := map[string]struct{}{
		ActivityNature:        {},
		ActivityCafe:          {},
		ActivityRestaurant:    {},
		ActivityEntertainment: {},
	}
	for alias := range activityFamily {
		allowed[alias] = struct{}{}
	}
	return allowed
}()

// CanonicalActivity folds a free-form activity string onto one of the
// four canonical categories, defaulting to nature.
func CanonicalActivity(activity string) string {
	a := strings.ToLower(strings.TrimSpace(activity))
	if family, ok := activityFamily[a]; ok {
		return family
	}
	switch a {
	case ActivityNature, ActivityCafe, ActivityRestaurant, ActivityEntertainment:
		return a
	}
	return ActivityNature
}

// CanonicalGroup folds a free-form group type, defaulting to friends.
func CanonicalGroup(groupType string) string {
	g := strings.ToLower(strings.TrimSpace(groupType))
	switch g {
	case GroupSolo, GroupFriends, GroupFamily:
		return g
	}
	return GroupFriends
}

// CanonicalBudget folds a free-form budget, defaulting to medium.
// Persian synonyms are accepted alongside the English ones.
func CanonicalBudget(budget string) string {
	b := strings.ToLower(strings.TrimSpace(budget))
	switch b {
	case BudgetLow, "cheap", "کم":
		return BudgetLow
	case BudgetOpen, "high", "زیاد":
		return BudgetOpen
	}
	return BudgetMedium
}

// BudgetTier maps a budget to its price tier: low=1, medium=2, open=3.
func BudgetTier(budget string) int {
	switch CanonicalBudget(budget) {
	case BudgetLow:
		return 1
	case BudgetOpen:
		return 3
	}
	return 2
}

// NormalizeLang folds a language hint to "en" or "fa".
func NormalizeLang(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	if strings.HasPrefix(s, "fa") || s == "farsi" || s == "persian" || s == "فارسی" {
		return "fa"
	}
	return "en"
}

// NormalizeSearchMode folds a search mode, defaulting to radius.
func NormalizeSearchMode(mode string) string {
	if strings.ToLower(strings.TrimSpace(mode)) == SearchModeCity {
		return SearchModeCity
	}
	return SearchModeRadius
}

// categoryDefaults holds the per-category enrichment defaults applied
// to places whose source did not supply the field.
type categoryDefaults struct {
	Rating      float64
	PriceTier   int
	BestFor     []string
	IdealPeople PeopleRange
}

var enrichDefaults = map[string]categoryDefaults{
	ActivityNature: {
		Rating:      4.4,
		PriceTier:   1,
		BestFor:     []string{GroupFamily, GroupFriends, GroupSolo},
		IdealPeople: PeopleRange{2, 8},
	},
	ActivityCafe: {
		Rating:      4.2,
		PriceTier:   2,
		BestFor:     []string{GroupFriends, GroupSolo},
		IdealPeople: PeopleRange{1, 5},
	},
	ActivityRestaurant: {
		Rating:      4.2,
		PriceTier:   2,
		BestFor:     []string{GroupFamily, GroupFriends, GroupSolo},
		IdealPeople: PeopleRange{2, 6},
	},
	ActivityEntertainment: {
		Rating:      4.2,
		PriceTier:   2,
		BestFor:     []string{GroupFriends, GroupFamily},
		IdealPeople: PeopleRange{2, 10},
	},
}

// Enrich returns a copy of place with missing fields filled from the
// defaults of the place's canonical family. The supplied type is kept
// as-is so responses echo the requested alias; only an empty type falls
// back to activityFallback. Enrichment never overwrites a field the
// source supplied.
func Enrich(place Place, activityFallback string) Place {
	enriched := place
	enriched.Type = strings.TrimSpace(enriched.Type)
	if enriched.Type == "" {
		enriched.Type = activityFallback
	}

	if strings.TrimSpace(enriched.Name) == "" {
		enriched.Name = "Unknown"
	}

	defaults := enrichDefaults[CanonicalActivity(enriched.Type)]
	if enriched.Rating == nil {
		rating := defaults.Rating
		enriched.Rating = &rating
	}
	if enriched.PriceTier == nil {
		tier := defaults.PriceTier
		enriched.PriceTier = &tier
	}
	if len(enriched.BestFor) == 0 {
		enriched.BestFor = append([]string(nil), defaults.BestFor...)
	}
	if enriched.IdealPeople == nil {
		ideal := defaults.IdealPeople
		enriched.IdealPeople = &ideal
	}
	return enriched
}

// PrimaryActivity returns the canonical family for an activity key,
// used to group request activities for demo-catalog filtering.
func PrimaryActivity(activity string) string {
	return CanonicalActivity(activity)
}

// PrimaryActivities returns the deduplicated canonical families of the
// given activities, preserving first-seen order. Never empty.
func PrimaryActivities(activities []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, activity := range activities {
		family := PrimaryActivity(activity)
		if _, ok := seen[family]; ok {
			continue
		}
		seen[family] = struct{}{}
		out = append(out, family)
	}
	if len(out) == 0 {
		return []string{ActivityNature}
	}
	return out
}
