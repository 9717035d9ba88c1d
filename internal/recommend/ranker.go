// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/estatewatch/internal/models"
)

// CandidateRanker scores and orders candidates against a preference profile.
// Ranking is deterministic: equal scores are broken by newer createdAt, then
// by lower listing id.
type CandidateRanker struct {
	cfg RankerConfig
}

// NewCandidateRanker creates a ranker with the given parameters.
func NewCandidateRanker(cfg RankerConfig) *CandidateRanker {
	return &CandidateRanker{cfg: cfg}
}

// Rank filters excluded candidates, scores the rest against the profile,
// sorts descending and truncates to limit. An empty pool yields an empty
// result, not an error.
func (r *CandidateRanker) Rank(candidates []models.Listing, profile *PreferenceProfile, exclude map[string]struct{}, limit int) []RankedCandidate {
	ranked := make([]RankedCandidate, 0, len(candidates))
	for i := range candidates {
		if _, skip := exclude[candidates[i].ID]; skip {
			continue
		}
		score, reasons := r.score(&candidates[i], profile)
		ranked = append(ranked, RankedCandidate{
			Listing:      candidates[i],
			Score:        score,
			MatchReasons: reasons,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].Listing.CreatedAt.Equal(ranked[j].Listing.CreatedAt) {
			return ranked[i].Listing.CreatedAt.After(ranked[j].Listing.CreatedAt)
		}
		return ranked[i].Listing.ID < ranked[j].Listing.ID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// score computes a candidate's relevance score. Components are evaluated in
// a fixed order and each contributes a match reason only when nonzero.
func (r *CandidateRanker) score(listing *models.Listing, profile *PreferenceProfile) (float64, []string) {
	var total float64
	var reasons []string

	if pts := r.priceScore(listing.Price, profile.PriceRange); pts > 0 {
		total += pts
		reasons = append(reasons, "price within preferred range")
	}
	if pts := r.bedroomScore(listing.Bedrooms, profile.Bedrooms); pts > 0 {
		total += pts
		reasons = append(reasons, "bedroom count matches preference")
	}
	if pts := r.bathroomScore(listing.Bathrooms, profile.Bathrooms); pts > 0 {
		total += pts
		reasons = append(reasons, "bathroom count matches preference")
	}
	if pts := r.areaScore(listing.Area, profile.AvgArea); pts > 0 {
		total += pts
		reasons = append(reasons, "area close to preferred size")
	}
	if n := amenityOverlap(listing.Amenities, profile.Amenities); n > 0 {
		total += r.cfg.AmenityPoints * float64(n)
		reasons = append(reasons, fmt.Sprintf("%d matching amenities", n))
	}
	if profile.HasLocation(listing.City) {
		total += r.cfg.LocationPoints
		reasons = append(reasons, "preferred location")
	}

	return total, reasons
}

// priceScore falls off linearly with distance from the range midpoint and is
// 0 once the price leaves the range.
func (r *CandidateRanker) priceScore(price float64, rng PriceRange) float64 {
	half := rng.Width() / 2
	if half <= 0 {
		if price == rng.Mid() {
			return r.cfg.PricePoints
		}
		return 0
	}
	dist := math.Abs(price - rng.Mid())
	if dist > half {
		return 0
	}
	return r.cfg.PricePoints * (1 - dist/half)
}

// bedroomScore awards the full points for an exact match against the nearest
// preferred count, losing BedroomPenalty per bedroom of difference.
func (r *CandidateRanker) bedroomScore(bedrooms int, preferred []int) float64 {
	if len(preferred) == 0 {
		return 0
	}
	delta := math.MaxInt
	for _, p := range preferred {
		if d := abs(bedrooms - p); d < delta {
			delta = d
		}
	}
	return math.Max(0, r.cfg.BedroomPoints-r.cfg.BedroomPenalty*float64(delta))
}

// bathroomScore mirrors bedroomScore against the single preferred bathroom
// count; 0 when the profile carries no bathroom signal.
func (r *CandidateRanker) bathroomScore(bathrooms, preferred int) float64 {
	if preferred <= 0 {
		return 0
	}
	delta := abs(bathrooms - preferred)
	return math.Max(0, r.cfg.BathroomPoints-r.cfg.BathroomPenalty*float64(delta))
}

// areaScore falls off linearly with relative distance from the profile
// average; 0 when either side carries no area signal.
func (r *CandidateRanker) areaScore(area, avg float64) float64 {
	if area <= 0 || avg <= 0 {
		return 0
	}
	ratio := math.Abs(area-avg) / avg
	if ratio >= 1 {
		return 0
	}
	return r.cfg.AreaPoints * (1 - ratio)
}

// amenityOverlap counts candidate amenities present in the preferred set.
func amenityOverlap(have, preferred []string) int {
	if len(have) == 0 || len(preferred) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(preferred))
	for _, a := range preferred {
		set[a] = struct{}{}
	}
	count := 0
	for _, a := range have {
		if _, ok := set[a]; ok {
			count++
		}
	}
	return count
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
