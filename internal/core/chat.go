package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"smarttrip/internal/domain/model"
)

// ChatPrefs is the caller's current preference state, used only to
// build the summary reply.
type ChatPrefs struct {
	Activity   string `json:"activity,omitempty"`
	GroupType  string `json:"group_type,omitempty"`
	Budget     string `json:"budget,omitempty"`
	SearchMode string `json:"search_mode,omitempty"`
	RadiusM    int    `json:"radius_m,omitempty"`
	City       string `json:"city,omitempty"`
}

// ChatUpdates holds the preference updates extracted from one message.
// Nil means the message said nothing about that preference.
type ChatUpdates struct {
	Activity    *string `json:"activity,omitempty"`
	GroupType   *string `json:"group_type,omitempty"`
	Budget      *string `json:"budget,omitempty"`
	HasCar      *bool   `json:"has_car,omitempty"`
	PeopleCount *int    `json:"people_count,omitempty"`
	SearchMode  *string `json:"search_mode,omitempty"`
	RadiusM     *int    `json:"radius_m,omitempty"`
	City        *string `json:"city,omitempty"`
}

var (
	persianDigits = strings.NewReplacer(
		"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
		"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	)
	arabicDigits = strings.NewReplacer(
		"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
		"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	)
	latinToFADigits = strings.NewReplacer(
		"0", "۰", "1", "۱", "2", "۲", "3", "۳", "4", "۴",
		"5", "۵", "6", "۶", "7", "۷", "8", "۸", "9", "۹",
	)

	spaceRe  = regexp.MustCompile(`\s+`)
	peopleRe = regexp.MustCompile(`(\d+)\s*(?:نفر|people|persons?)`)
	radiusRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:km|kilometers?|کیلومتر)`)
	radiusKV = regexp.MustCompile(`radius\s*[:=]?\s*(\d+(?:\.\d+)?)`)

	cityKVEn = regexp.MustCompile(`(?i)city\s*[:=]\s*([^\n,]+)`)
	cityKVFa = regexp.MustCompile(`شهر\s*[:=]?\s*([^\n,]+)`)
	cityInFa = regexp.MustCompile(`(?:توی|تو|در)\s+([^\n,]{2,40})`)
	cityInEn = regexp.MustCompile(`\bin\s+([A-Za-z\x{0600}-\x{06FF}][A-Za-z\x{0600}-\x{06FF}\s]{1,40})`)

	citySplitRe = regexp.MustCompile("[,،]")
)

// cityStops are connectors that end a city name candidate.
var cityStops = []string{
	" با ", " برای ", " نزدیک ", " اطراف ",
	" around ", " near ", " within ", " radius ", " with ", " budget ",
}

// NormalizeChatText lowercases, folds Persian/Arabic digits to Latin
// and collapses whitespace.
func NormalizeChatText(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = persianDigits.Replace(s)
	s = arabicDigits.Replace(s)
	return spaceRe.ReplaceAllString(s, " ")
}

// ExtractRadiusKM finds a radius in kilometers in the message, if any.
func ExtractRadiusKM(text string) (float64, bool) {
	t := NormalizeChatText(text)
	m := radiusRe.FindStringSubmatch(t)
	if m == nil {
		m = radiusKV.FindStringSubmatch(t)
	}
	if m == nil {
		return 0, false
	}
	km, err := strconv.ParseFloat(m[1], 64)
	if err != nil || km <= 0 {
		return 0, false
	}
	return km, true
}

// ExtractCity finds a city name candidate in the message, if any.
func ExtractCity(text string) (string, bool) {
	t := strings.TrimSpace(text)
	for _, re := range []*regexp.Regexp{cityKVEn, cityKVFa, cityInFa, cityInEn} {
		if m := re.FindStringSubmatch(t); m != nil {
			if c := cleanCityCandidate(m[1]); c != "" {
				return c, true
			}
		}
	}
	return "", false
}

func cleanCityCandidate(candidate string) string {
	c := strings.TrimSpace(candidate)
	if c == "" {
		return c
	}
	c = strings.TrimSpace(citySplitRe.Split(c, 2)[0])
	for _, stop := range cityStops {
		if idx := strings.Index(c, stop); idx >= 0 {
			c = strings.TrimSpace(c[:idx])
		}
	}
	if len(c) > 60 {
		c = strings.TrimSpace(c[:60])
	}
	return c
}

func containsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// ParseMessage extracts structured preference updates from a free-text
// message in English or Persian and builds an assistant reply that
// summarizes the resulting preference state.
func ParseMessage(message string, current ChatPrefs, lang string) (ChatUpdates, string) {
	lang = model.NormalizeLang(lang)
	text := NormalizeChatText(message)
	var updates ChatUpdates

	switch {
	case containsAny(text, "کافه", "cafe", "coffee", "espresso"):
		updates.Activity = strPtr(model.ActivityCafe)
	case containsAny(text, "رستوران", "restaurant", "food", "dinner", "ناهار", "شام"):
		updates.Activity = strPtr(model.ActivityRestaurant)
	case containsAny(text, "سینما", "cinema", "movie", "تئاتر", "theatre", "bowling", "arcade", "سرگرمی"):
		updates.Activity = strPtr(model.ActivityEntertainment)
	case containsAny(text, "طبیعت", "nature", "پارک", "park", "green", "outdoor"):
		updates.Activity = strPtr(model.ActivityNature)
	}

	switch {
	case containsAny(text, "خانواده", "family", "بچه", "kids"):
		updates.GroupType = strPtr(model.GroupFamily)
	case containsAny(text, "دوست", "friends", "رفیق"):
		updates.GroupType = strPtr(model.GroupFriends)
	case containsAny(text, "تنها", "solo", "alone"):
		updates.GroupType = strPtr(model.GroupSolo)
	}

	switch {
	case containsAny(text, "ارزان", "cheap", "low budget", "کم"):
		updates.Budget = strPtr(model.BudgetLow)
	case containsAny(text, "متوسط", "medium", "normal"):
		updates.Budget = strPtr(model.BudgetMedium)
	case containsAny(text, "گران", "expensive", "open budget", "no limit", "زیاد"):
		updates.Budget = strPtr(model.BudgetOpen)
	}

	// "no car" must win over the bare "car" keyword.
	switch {
	case containsAny(text, "بدون ماشین", "no car"):
		updates.HasCar = boolPtr(false)
	case containsAny(text, "ماشین دارم", "ماشین", "car", "drive"):
		updates.HasCar = boolPtr(true)
	}

	if m := peopleRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			updates.PeopleCount = intPtr(n)
		}
	}

	switch {
	case containsAny(text, "کل شهر", "تمام شهر", "whole city", "city wide", "city"):
		updates.SearchMode = strPtr(model.SearchModeCity)
	case containsAny(text, "نزدیک", "nearby", "around", "اطراف"):
		updates.SearchMode = strPtr(model.SearchModeRadius)
	}

	if km, ok := ExtractRadiusKM(message); ok {
		updates.RadiusM = intPtr(int(km*1000 + 0.5))
		if updates.SearchMode == nil {
			updates.SearchMode = strPtr(model.SearchModeRadius)
		}
	}

	if city, ok := ExtractCity(message); ok {
		updates.City = strPtr(city)
		if updates.SearchMode == nil {
			updates.SearchMode = strPtr(model.SearchModeCity)
		}
	}

	return updates, chatReply(updates, current, lang)
}

var (
	activityLabelsFA = map[string]string{
		model.ActivityNature:        "طبیعت",
		model.ActivityCafe:          "کافه",
		model.ActivityRestaurant:    "رستوران",
		model.ActivityEntertainment: "سرگرمی",
	}
	groupLabelsFA = map[string]string{
		model.GroupSolo:    "تنها",
		model.GroupFriends: "دوستان",
		model.GroupFamily:  "خانواده",
	}
	budgetLabelsFA = map[string]string{
		model.BudgetLow:    "کم",
		model.BudgetMedium: "متوسط",
		model.BudgetOpen:   "زیاد",
	}
)

func label(value string, fa map[string]string, lang string) string {
	key := strings.ToLower(strings.TrimSpace(value))
	if lang == "fa" {
		if l, ok := fa[key]; ok {
			return l
		}
	}
	return key
}

func chatReply(updates ChatUpdates, current ChatPrefs, lang string) string {
	activity := pick(updates.Activity, current.Activity)
	groupType := pick(updates.GroupType, current.GroupType)
	budget := pick(updates.Budget, current.Budget)
	searchMode := pick(updates.SearchMode, current.SearchMode)
	if searchMode == "" {
		searchMode = model.SearchModeRadius
	}
	radiusM := current.RadiusM
	if updates.RadiusM != nil {
		radiusM = *updates.RadiusM
	}
	city := pick(updates.City, current.City)

	var parts []string
	if activity != "" {
		if lang == "fa" {
			parts = append(parts, "فعالیت: "+label(activity, activityLabelsFA, lang))
		} else {
			parts = append(parts, "activity: "+label(activity, activityLabelsFA, lang))
		}
	}
	if groupType != "" {
		if lang == "fa" {
			parts = append(parts, "همراهی: "+label(groupType, groupLabelsFA, lang))
		} else {
			parts = append(parts, "group: "+label(groupType, groupLabelsFA, lang))
		}
	}
	if budget != "" {
		if lang == "fa" {
			parts = append(parts, "بودجه: "+label(budget, budgetLabelsFA, lang))
		} else {
			parts = append(parts, "budget: "+label(budget, budgetLabelsFA, lang))
		}
	}
	if searchMode == model.SearchModeCity && city != "" {
		if lang == "fa" {
			parts = append(parts, "شهر: "+city)
		} else {
			parts = append(parts, "city: "+city)
		}
	} else if searchMode == model.SearchModeRadius && radiusM > 0 {
		km := fmt.Sprintf("%.1f", float64(radiusM)/1000)
		if lang == "fa" {
			parts = append(parts, "شعاع: "+latinToFADigits.Replace(km)+" کیلومتر")
		} else {
			parts = append(parts, "radius: "+km+" km")
		}
	}

	if len(parts) == 0 {
		if lang == "fa" {
			return "بگو دنبال چی هستی (مثال: «کافه دنج توی تهران با بودجه کم» یا «پارک نزدیک ۵ کیلومتر»)."
		}
		return "Tell me what you want (e.g., “cozy cafe in Tehran with low budget” or “park nearby 5km”)."
	}
	if lang == "fa" {
		return "باشه — " + strings.Join(parts, "، ") + "."
	}
	return "Got it — " + strings.Join(parts, ", ") + "."
}

func pick(update *string, fallback string) string {
	if update != nil {
		return *update
	}
	return fallback
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }
