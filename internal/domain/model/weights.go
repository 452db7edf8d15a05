package model

import (
	"fmt"
	"math"
	"strings"
)

// Feature names. Every feature vector carries all of them so a dot
// product with a weight vector is a total function.
const (
	FeatureBias        = "bias"
	FeatureActivityFit = "activity_fit"
	FeatureDistanceFit = "distance_fit"
	FeatureGroupFit    = "group_fit"
	FeatureBudgetFit   = "budget_fit"
	FeaturePeopleFit   = "people_fit"
	FeatureQuality     = "quality"
	FeaturePopularity  = "popularity"
	FeatureCityMode    = "city_mode"
)

// FeatureNames lists every feature in declaration order.
var FeatureNames = []string{
	FeatureBias,
	FeatureActivityFit,
	FeatureDistanceFit,
	FeatureGroupFit,
	FeatureBudgetFit,
	FeaturePeopleFit,
	FeatureQuality,
	FeaturePopularity,
	FeatureCityMode,
}

// FeatureVector maps feature names to values in [0, 1].
type FeatureVector map[string]float64

// WeightVector maps feature names to real-valued model weights.
type WeightVector map[string]float64

// MaxAbsWeight bounds every persisted weight to prevent runaway drift.
const MaxAbsWeight = 6.0

// SeedWeights returns the cold-start global weights. They are written
// once when the global table is empty and online-learned afterwards.
func SeedWeights() WeightVector {
	return WeightVector{
		FeatureBias:        0.0,
		FeatureActivityFit: 1.7,
		FeatureDistanceFit: 1.2,
		FeatureGroupFit:    1.1,
		FeatureBudgetFit:   0.9,
		FeaturePeopleFit:   0.7,
		FeatureQuality:     1.0,
		FeaturePopularity:  1.15,
		FeatureCityMode:    -0.15,
	}
}

// Clone returns a copy of the weight vector.
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Combine returns global + offset per key over the union of both key
// sets. The merged vector is computed at read time and never stored.
func Combine(global, offset WeightVector) WeightVector {
	combined := global.Clone()
	for k, v := range offset {
		combined[k] += v
	}
	return combined
}

// Clamp returns a copy with every weight bounded to [-MaxAbsWeight,
// MaxAbsWeight]. Non-finite values are dropped rather than persisted.
func (w WeightVector) Clamp() WeightVector {
	out := make(WeightVector, len(w))
	for k, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = math.Max(-MaxAbsWeight, math.Min(MaxAbsWeight, v))
	}
	return out
}

// Dot returns the dot product of the weights with the feature vector.
// Features without a weight contribute zero.
func (w WeightVector) Dot(features FeatureVector) float64 {
	var sum float64
	for k, v := range features {
		sum += w[k] * v
	}
	return sum
}

// PlaceID derives the stable identity key for a place: an OSM composite
// when the place came from the map provider, else a name+rounded-coordinate
// composite for demo data. The same physical place from the same source
// always yields the same identity.
func PlaceID(place Place) string {
	if place.OSMKind != "" && place.OSMID != 0 {
		return fmt.Sprintf("osm:%s:%d", place.OSMKind, place.OSMID)
	}
	name := strings.ToLower(strings.TrimSpace(place.Name))
	if name == "" {
		name = "demo"
	}
	if place.Lat != nil && place.Lon != nil {
		return fmt.Sprintf("demo:%s:%.5f:%.5f", name, *place.Lat, *place.Lon)
	}
	return "demo:" + name
}
