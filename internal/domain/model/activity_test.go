package model

import "testing"

func TestCanonicalActivity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"cafe", ActivityCafe},
		{" Cafe ", ActivityCafe},
		{"juice", ActivityCafe},
		{"ice_cream", ActivityCafe},
		{"fast_food", ActivityRestaurant},
		{"park", ActivityNature},
		{"historical", ActivityNature},
		{"eco_lodge", ActivityNature},
		{"cinema", ActivityEntertainment},
		{"museum", ActivityEntertainment},
		{"shopping_mall", ActivityEntertainment},
		{"", ActivityNature},
		{"unknown", ActivityNature},
	}
	for _, tt := range tests {
		if got := CanonicalActivity(tt.in); got != tt.want {
			t.Errorf("CanonicalActivity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalGroupAndBudget(t *testing.T) {
	t.Parallel()

	if got := CanonicalGroup("Family"); got != GroupFamily {
		t.Errorf("CanonicalGroup(Family) = %q", got)
	}
	if got := CanonicalGroup("crowd"); got != GroupFriends {
		t.Errorf("CanonicalGroup(crowd) = %q, want friends default", got)
	}

	tests := []struct {
		in   string
		want string
	}{
		{"low", BudgetLow},
		{"cheap", BudgetLow},
		{"کم", BudgetLow},
		{"open", BudgetOpen},
		{"high", BudgetOpen},
		{"زیاد", BudgetOpen},
		{"medium", BudgetMedium},
		{"", BudgetMedium},
		{"whatever", BudgetMedium},
	}
	for _, tt := range tests {
		if got := CanonicalBudget(tt.in); got != tt.want {
			t.Errorf("CanonicalBudget(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if BudgetTier("low") != 1 || BudgetTier("medium") != 2 || BudgetTier("open") != 3 {
		t.Error("budget tiers must be low=1, medium=2, open=3")
	}
}

func TestNormalizeLang(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"fa", "fa-IR", "farsi", "persian", "فارسی"} {
		if got := NormalizeLang(in); got != "fa" {
			t.Errorf("NormalizeLang(%q) = %q, want fa", in, got)
		}
	}
	for _, in := range []string{"", "en", "en-US", "de"} {
		if got := NormalizeLang(in); got != "en" {
			t.Errorf("NormalizeLang(%q) = %q, want en", in, got)
		}
	}
}

func TestEnrich(t *testing.T) {
	t.Parallel()

	// Missing fields are filled from the family defaults; the supplied
	// alias stays visible on the place.
	enriched := Enrich(Place{Name: "Bare", Type: "park"}, "cafe")
	if enriched.Type != "park" {
		t.Errorf("type = %q, want park passthrough", enriched.Type)
	}
	if enriched.Rating == nil || *enriched.Rating != 4.4 {
		t.Errorf("rating = %v, want nature default 4.4", enriched.Rating)
	}
	if enriched.PriceTier == nil || *enriched.PriceTier != 1 {
		t.Errorf("price tier = %v, want 1", enriched.PriceTier)
	}
	if enriched.IdealPeople == nil || *enriched.IdealPeople != (PeopleRange{2, 8}) {
		t.Errorf("ideal people = %v, want [2 8]", enriched.IdealPeople)
	}
	if len(enriched.BestFor) == 0 {
		t.Error("best_for not filled")
	}

	// Supplied fields are never overwritten.
	rating := 3.1
	tier := 3
	enriched = Enrich(Place{Name: "Set", Type: "cafe", Rating: &rating, PriceTier: &tier}, "cafe")
	if *enriched.Rating != 3.1 || *enriched.PriceTier != 3 {
		t.Errorf("supplied fields overwritten: rating %v tier %v", *enriched.Rating, *enriched.PriceTier)
	}

	// Empty type falls back to the request activity; empty name gets a
	// placeholder.
	enriched = Enrich(Place{}, "restaurant")
	if enriched.Type != ActivityRestaurant {
		t.Errorf("type = %q, want restaurant fallback", enriched.Type)
	}
	if enriched.Name != "Unknown" {
		t.Errorf("name = %q, want Unknown", enriched.Name)
	}

	// Alias types outside the canonical four keep their name while
	// drawing defaults from their family.
	enriched = Enrich(Place{Name: "Relics Hall", Type: "museum"}, "nature")
	if enriched.Type != "museum" {
		t.Errorf("type = %q, want museum passthrough", enriched.Type)
	}
	if enriched.Rating == nil || *enriched.Rating != 4.2 {
		t.Errorf("rating = %v, want entertainment default 4.2", enriched.Rating)
	}
	if enriched.IdealPeople == nil || *enriched.IdealPeople != (PeopleRange{2, 10}) {
		t.Errorf("ideal people = %v, want [2 10]", enriched.IdealPeople)
	}
}

func TestPrimaryActivities(t *testing.T) {
	t.Parallel()

	got := PrimaryActivities([]string{"park", "attraction", "cafe", "juice"})
	want := []string{ActivityNature, ActivityCafe}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}

	if got := PrimaryActivities(nil); len(got) != 1 || got[0] != ActivityNature {
		t.Errorf("empty input = %v, want [nature]", got)
	}
}
