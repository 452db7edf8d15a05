package core

import (
	"math"
	"testing"

	"smarttrip/internal/domain/model"
)

func clickFeatures() model.FeatureVector {
	return model.FeatureVector{
		model.FeatureBias:        1.0,
		model.FeatureActivityFit: 1.0,
		model.FeatureDistanceFit: 0.8,
		model.FeatureGroupFit:    1.0,
		model.FeatureBudgetFit:   1.0,
		model.FeaturePeopleFit:   1.0,
		model.FeatureQuality:     0.9,
		model.FeaturePopularity:  0.9,
		model.FeatureCityMode:    0.0,
	}
}

func otherFeatures() model.FeatureVector {
	return model.FeatureVector{
		model.FeatureBias:        1.0,
		model.FeatureActivityFit: 0.25,
		model.FeatureDistanceFit: 0.2,
		model.FeatureGroupFit:    0.35,
		model.FeatureBudgetFit:   0.55,
		model.FeaturePeopleFit:   0.6,
		model.FeatureQuality:     0.8,
		model.FeaturePopularity:  0.8,
		model.FeatureCityMode:    0.0,
	}
}

func TestPairwiseUpdateZeroRateIsNoop(t *testing.T) {
	t.Parallel()

	weights := model.SeedWeights()
	updated := PairwiseUpdate(weights, clickFeatures(), []model.FeatureVector{otherFeatures()}, 0, 0.0005)

	for k, v := range weights {
		if updated[k] != v {
			t.Errorf("weight %s changed with zero rate: %v -> %v", k, v, updated[k])
		}
	}

	// The returned vector is a copy, not an alias.
	updated[model.FeatureBias] = 42
	if weights[model.FeatureBias] == 42 {
		t.Error("input weights were mutated")
	}
}

func TestPairwiseUpdateMovesTowardClicked(t *testing.T) {
	t.Parallel()

	weights := model.SeedWeights()
	updated := PairwiseUpdate(weights, clickFeatures(), []model.FeatureVector{otherFeatures()}, 0.05, 0)

	// Features where the clicked place beats the other must gain weight.
	for _, k := range []string{model.FeatureActivityFit, model.FeatureGroupFit, model.FeatureDistanceFit} {
		if updated[k] <= weights[k] {
			t.Errorf("weight %s = %v, want > %v", k, updated[k], weights[k])
		}
	}
	// Equal features see no gradient.
	if updated[model.FeatureBias] != weights[model.FeatureBias] {
		t.Errorf("bias moved on zero difference: %v -> %v", weights[model.FeatureBias], updated[model.FeatureBias])
	}
}

func TestPairwiseUpdateL2Shrinkage(t *testing.T) {
	t.Parallel()

	weights := model.SeedWeights()
	lr, l2 := 0.05, 0.01

	// Clicked equals other: every pairwise gradient is zero and only
	// the shrinkage factor remains.
	updated := PairwiseUpdate(weights, clickFeatures(), []model.FeatureVector{clickFeatures()}, lr, l2)
	factor := 1.0 - l2*lr
	for k, v := range weights {
		want := v * factor
		if math.Abs(updated[k]-want) > 1e-12 {
			t.Errorf("weight %s = %v, want %v", k, updated[k], want)
		}
	}
}

func TestLearnFromClickSessionOffset(t *testing.T) {
	t.Parallel()

	cfg := DefaultLearnerConfig()
	global := model.SeedWeights()
	others := []model.FeatureVector{otherFeatures()}

	newGlobal, offset := LearnFromClick(global, nil, false, clickFeatures(), others, cfg)
	if offset != nil {
		t.Errorf("offset = %v, want nil without a session", offset)
	}
	if newGlobal[model.FeatureActivityFit] <= global[model.FeatureActivityFit] {
		t.Error("global activity_fit did not increase")
	}

	newGlobal, offset = LearnFromClick(global, model.WeightVector{}, true, clickFeatures(), others, cfg)
	if offset == nil {
		t.Fatal("offset = nil, want a vector with a session")
	}
	// The session rate exceeds the global rate, so the combined update
	// overshoots the global one and leaves a positive offset on the
	// features the click favored.
	if offset[model.FeatureActivityFit] <= 0 {
		t.Errorf("offset activity_fit = %v, want > 0", offset[model.FeatureActivityFit])
	}
	_ = newGlobal
}

func TestLearnFromClickClampsWeights(t *testing.T) {
	t.Parallel()

	global := model.SeedWeights()
	global[model.FeatureActivityFit] = 5.999

	cfg := LearnerConfig{GlobalRate: 10, SessionRate: 10, L2: 0}
	newGlobal, offset := LearnFromClick(global, model.WeightVector{}, true, clickFeatures(), []model.FeatureVector{otherFeatures()}, cfg)

	for k, v := range newGlobal {
		if math.Abs(v) > model.MaxAbsWeight {
			t.Errorf("global %s = %v exceeds bound %v", k, v, model.MaxAbsWeight)
		}
	}
	for k, v := range offset {
		if math.Abs(v) > model.MaxAbsWeight {
			t.Errorf("offset %s = %v exceeds bound %v", k, v, model.MaxAbsWeight)
		}
	}
}
