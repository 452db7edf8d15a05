package core

import (
	"math"

	"smarttrip/internal/domain/model"
)

// LearnerConfig contains the online-learning hyperparameters.
type LearnerConfig struct {
	// GlobalRate is the SGD step size for the shared baseline weights.
	// Default: 0.05.
	GlobalRate float64

	// SessionRate is the step size for the per-session combined update.
	// Larger than GlobalRate so personalization reacts faster.
	// Default: 0.18.
	SessionRate float64

	// L2 is the multiplicative shrinkage applied after the pairwise
	// steps. Default: 0.0005.
	L2 float64
}

// DefaultLearnerConfig returns the default learning hyperparameters.
func DefaultLearnerConfig() LearnerConfig {
	return LearnerConfig{
		GlobalRate:  0.05,
		SessionRate: 0.18,
		L2:          0.0005,
	}
}

// PairwiseUpdate performs one logistic pairwise-ranking step per
// (clicked, other) pair and returns the updated weights. The input
// vector is never mutated.
//
// The update is a fold over others in input order: each pair's gradient
// is computed against the weights already updated by the previous
// pairs, so the order of others affects the result and callers must
// preserve it for reproducibility. Difference vectors are restricted to
// the keys of clicked. After all pairs, L2 shrinkage multiplies every
// weight by (1 - l2*lr).
//
// A non-positive lr makes the call a no-op copy. Callers clamp the
// result to ±MaxAbsWeight before persistence.
func PairwiseUpdate(weights model.WeightVector, clicked model.FeatureVector, others []model.FeatureVector, lr, l2 float64) model.WeightVector {
	updated := weights.Clone()
	if lr <= 0 {
		return updated
	}

	for _, other := range others {
		// diff = w · (x_clicked - x_other)
		diffVec := make(model.FeatureVector, len(clicked))
		for k, cv := range clicked {
			diffVec[k] = cv - other[k]
		}
		diff := updated.Dot(diffVec)
		p := Sigmoid(diff)
		scale := (1.0 - p) * lr

		for k, dv := range diffVec {
			next := updated[k] + scale*dv
			if math.IsNaN(next) || math.IsInf(next, 0) {
				continue
			}
			updated[k] = next
		}
	}

	if l2 > 0 {
		for k, w := range updated {
			updated[k] = w * (1.0 - l2*lr)
		}
	}
	return updated
}

// LearnFromClick applies a feedback event to both weight layers: a
// small-rate update of the global baseline, then a larger-rate update
// of the combined (global+offset) vector from which the new per-session
// offset is derived. Isolating the offset as combined-global keeps the
// user delta free of the shared update from the same event.
//
// Both returned vectors are clamped and ready to persist. The offset is
// nil when sessionOffset learning is not applicable (no session).
func LearnFromClick(
	global, sessionOffset model.WeightVector,
	hasSession bool,
	clicked model.FeatureVector,
	others []model.FeatureVector,
	cfg LearnerConfig,
) (newGlobal, newOffset model.WeightVector) {
	newGlobal = PairwiseUpdate(global, clicked, others, cfg.GlobalRate, cfg.L2).Clamp()

	if !hasSession {
		return newGlobal, nil
	}

	combined := model.Combine(newGlobal, sessionOffset)
	combinedNew := PairwiseUpdate(combined, clicked, others, cfg.SessionRate, cfg.L2).Clamp()

	offset := make(model.WeightVector, len(combinedNew))
	for k := range combinedNew {
		offset[k] = combinedNew[k] - newGlobal[k]
	}
	for k := range newGlobal {
		if _, ok := offset[k]; !ok {
			offset[k] = combinedNew[k] - newGlobal[k]
		}
	}
	return newGlobal, offset.Clamp()
}
