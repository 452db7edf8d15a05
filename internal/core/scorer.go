package core

import (
	"fmt"
	"math"
	"sort"

	"smarttrip/internal/domain/model"
)

// ModelVersion identifies the scoring model in responses and events.
const ModelVersion = "ml-v3"

// Calibration of the UI-facing score. The shift keeps typical places
// away from a saturated 100; ranking order only needs the raw logit.
const (
	scoreIntercept   = -4.5
	scoreTemperature = 1.0
)

// Breakdown slot maxima. Their sum is 110, not 100: the slots are
// displayed independently and keep headroom on purpose.
const (
	slotActivity = 30.0
	slotDistance = 25.0
	slotGroup    = 20.0
	slotBudget   = 15.0
	slotPeople   = 10.0
	slotQuality  = 10.0
)

// Explanation signals in fixed declaration order. Ties on contribution
// keep this order.
var signalNames = []string{
	"activity match",
	"nearby",
	"group fit",
	"budget fit",
	"good for your group size",
	"highly rated",
	"popular",
}

var signalNamesFA = map[string]string{
	"activity match":           "تناسب با فعالیت",
	"nearby":                   "نزدیکی",
	"group fit":                "تناسب با همراهی",
	"budget fit":               "تناسب با بودجه",
	"good for your group size": "مناسب برای تعداد نفرات",
	"highly rated":             "امتیاز بالا",
	"popular":                  "محبوبیت",
}

// ScorePlace computes the calibrated 0-100 score, per-signal breakdown
// and explanation for one place under the given context and weights.
// The original place fields are preserved in the result.
func ScorePlace(place model.Place, ctx model.Context, weights model.WeightVector) model.ScoredPlace {
	features, distanceKM := BuildFeatures(place, ctx)

	logit := weights.Dot(features)
	calibrated := (logit + scoreIntercept) / scoreTemperature
	pLike := Sigmoid(calibrated)
	score := int(math.Round(pLike * 100))

	isCity := model.NormalizeSearchMode(ctx.SearchMode) == model.SearchModeCity
	lang := model.NormalizeLang(ctx.Lang)

	distanceSlot := 0.0
	if !isCity {
		distanceSlot = round2(Sigmoid(weights[model.FeatureDistanceFit]*features[model.FeatureDistanceFit]) * slotDistance)
	}
	breakdown := model.Breakdown{
		Activity: round2(Sigmoid(weights[model.FeatureActivityFit]*features[model.FeatureActivityFit]) * slotActivity),
		Distance: distanceSlot,
		Group:    round2(Sigmoid(weights[model.FeatureGroupFit]*features[model.FeatureGroupFit]) * slotGroup),
		Budget:   round2(Sigmoid(weights[model.FeatureBudgetFit]*features[model.FeatureBudgetFit]) * slotBudget),
		People:   round2(Sigmoid(weights[model.FeaturePeopleFit]*features[model.FeaturePeopleFit]) * slotPeople),
		Quality: round2(Sigmoid(
			weights[model.FeatureQuality]*features[model.FeatureQuality]+
				weights[model.FeaturePopularity]*features[model.FeaturePopularity]) * slotQuality),
		MaxRaw: slotActivity + slotDistance + slotGroup + slotBudget + slotPeople + slotQuality,
	}

	explanation := explain(lang, signalContributions(features, weights, isCity))

	roundedDist := round2(distanceKM)
	scored := model.ScoredPlace{
		Place:       place,
		PlaceID:     model.PlaceID(place),
		Score:       score,
		ScoreRaw:    round4(logit),
		Breakdown:   breakdown,
		Explanation: explanation,
	}
	scored.Place.DistanceKM = &roundedDist
	return scored
}

type signal struct {
	name  string
	value float64
}

// signalContributions pairs each named signal with its weight*feature
// contribution; the distance signal is zero in city mode.
func signalContributions(features model.FeatureVector, weights model.WeightVector, isCity bool) []signal {
	nearby := weights[model.FeatureDistanceFit] * features[model.FeatureDistanceFit]
	if isCity {
		nearby = 0.0
	}
	return []signal{
		{signalNames[0], weights[model.FeatureActivityFit] * features[model.FeatureActivityFit]},
		{signalNames[1], nearby},
		{signalNames[2], weights[model.FeatureGroupFit] * features[model.FeatureGroupFit]},
		{signalNames[3], weights[model.FeatureBudgetFit] * features[model.FeatureBudgetFit]},
		{signalNames[4], weights[model.FeaturePeopleFit] * features[model.FeaturePeopleFit]},
		{signalNames[5], weights[model.FeatureQuality] * features[model.FeatureQuality]},
		{signalNames[6], weights[model.FeaturePopularity] * features[model.FeaturePopularity]},
	}
}

// explain renders a one- or two-clause sentence naming the top signals
// with strictly positive contribution, or a generic fallback.
func explain(lang string, signals []signal) string {
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].value > signals[j].value
	})

	var top []string
	for _, s := range signals[:2] {
		if s.value > 0 {
			top = append(top, s.name)
		}
	}

	if lang == "fa" {
		for i, name := range top {
			if fa, ok := signalNamesFA[name]; ok {
				top[i] = fa
			}
		}
		switch len(top) {
		case 2:
			return fmt.Sprintf("پیشنهاد شده چون %s و %s دارد.", top[0], top[1])
		case 1:
			return fmt.Sprintf("پیشنهاد شده چون %s دارد.", top[0])
		default:
			return "پیشنهاد شده بر اساس ترجیحات شما و رفتارهای قبلی."
		}
	}

	switch len(top) {
	case 2:
		return fmt.Sprintf("Recommended because it has %s and %s.", top[0], top[1])
	case 1:
		return fmt.Sprintf("Recommended because it is %s.", top[0])
	default:
		return "Recommended based on your preferences and past behavior."
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
