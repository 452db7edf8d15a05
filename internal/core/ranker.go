package core

import (
	"sort"

	"smarttrip/internal/domain/model"
)

// Rank scores every candidate under one shared context/weight set and
// returns the top limit places. Candidates are scored independently;
// there is no cross-candidate normalization and no randomness, so
// identical input always yields identical output.
//
// Tie-breaks differ by mode: city mode falls back to popularity then
// rating (intrinsic quality), radius mode prefers the closer place.
func Rank(places []model.Place, ctx model.Context, weights model.WeightVector, limit int) []model.ScoredPlace {
	scored := make([]model.ScoredPlace, 0, len(places))
	for _, place := range places {
		scored = append(scored, ScorePlace(place, ctx, weights))
	}

	if model.NormalizeSearchMode(ctx.SearchMode) == model.SearchModeCity {
		sort.SliceStable(scored, func(i, j int) bool {
			if scored[i].ScoreRaw != scored[j].ScoreRaw {
				return scored[i].ScoreRaw > scored[j].ScoreRaw
			}
			pi, pj := popularityOf(scored[i]), popularityOf(scored[j])
			if pi != pj {
				return pi > pj
			}
			return ratingOf(scored[i]) > ratingOf(scored[j])
		})
	} else {
		sort.SliceStable(scored, func(i, j int) bool {
			if scored[i].ScoreRaw != scored[j].ScoreRaw {
				return scored[i].ScoreRaw > scored[j].ScoreRaw
			}
			return distanceOf(scored[i]) < distanceOf(scored[j])
		})
	}

	if limit < 1 {
		limit = 1
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func popularityOf(p model.ScoredPlace) float64 {
	if p.PopularityScore != nil {
		return *p.PopularityScore
	}
	return 0
}

func ratingOf(p model.ScoredPlace) float64 {
	if p.Rating != nil {
		return *p.Rating
	}
	return 0
}

func distanceOf(p model.ScoredPlace) float64 {
	if p.DistanceKM != nil {
		return *p.DistanceKM
	}
	return 9999
}
