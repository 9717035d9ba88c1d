// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package recommend

import (
	"math"
	"sort"

	"github.com/tomtom215/estatewatch/internal/models"
)

// PreferenceExtractor derives preference profiles from interaction history.
// It is a pure computation; the same history always yields the same profile.
type PreferenceExtractor struct {
	cfg ExtractorConfig
}

// NewPreferenceExtractor creates an extractor with the given parameters.
func NewPreferenceExtractor(cfg ExtractorConfig) *PreferenceExtractor {
	return &PreferenceExtractor{cfg: cfg}
}

// Extract derives a profile from the user's interactions joined against the
// interacted listings. Interactions whose listing is absent from the map are
// skipped. An empty effective history yields the documented default profile.
func (e *PreferenceExtractor) Extract(interactions []Interaction, listings map[string]models.Listing) PreferenceProfile {
	type weighted struct {
		listing models.Listing
		weight  float64
	}

	entries := make([]weighted, 0, len(interactions))
	for _, in := range interactions {
		listing, ok := listings[in.ListingID]
		if !ok {
			continue
		}
		w := e.weight(in.Kind)
		if w <= 0 {
			continue
		}
		entries = append(entries, weighted{listing: listing, weight: w})
	}

	if len(entries) == 0 {
		return e.defaultProfile()
	}

	var totalWeight, priceSum, bedroomSum, bathroomSum float64
	var areaSum, areaWeight float64
	types := map[string]float64{}
	locations := map[string]float64{}
	amenities := map[string]float64{}

	for _, en := range entries {
		totalWeight += en.weight
		priceSum += en.weight * en.listing.Price
		bedroomSum += en.weight * float64(en.listing.Bedrooms)
		bathroomSum += en.weight * float64(en.listing.Bathrooms)

		if en.listing.Area > 0 {
			areaSum += en.weight * en.listing.Area
			areaWeight += en.weight
		}
		if en.listing.PropertyType != "" {
			types[en.listing.PropertyType] += en.weight
		}
		if en.listing.City != "" {
			locations[en.listing.City] += en.weight
		}
		for _, a := range en.listing.Amenities {
			amenities[a] += en.weight
		}
	}

	avgPrice := priceSum / totalWeight

	profile := PreferenceProfile{
		PriceRange: PriceRange{
			Min: avgPrice * e.cfg.PriceRangeLow,
			Max: avgPrice * e.cfg.PriceRangeHigh,
		},
		PropertyTypes: topN(types, e.cfg.TopPropertyTypes),
		Bedrooms:      []int{int(math.Round(bedroomSum / totalWeight))},
		Locations:     topN(locations, e.cfg.TopLocations),
		Amenities:     topN(amenities, e.cfg.TopAmenities),
		Bathrooms:     int(math.Round(bathroomSum / totalWeight)),
	}
	if areaWeight > 0 {
		profile.AvgArea = areaSum / areaWeight
	}

	return profile
}

// weight returns the extraction weight of an interaction kind.
func (e *PreferenceExtractor) weight(kind InteractionKind) float64 {
	switch kind {
	case KindFavorited:
		return e.cfg.FavoriteWeight
	case KindViewed:
		return e.cfg.ViewWeight
	default:
		return 0
	}
}

// defaultProfile returns a copy of the configured fallback profile.
func (e *PreferenceExtractor) defaultProfile() PreferenceProfile {
	d := e.cfg.Default
	return PreferenceProfile{
		PriceRange:    PriceRange{Min: d.PriceMin, Max: d.PriceMax},
		PropertyTypes: append([]string(nil), d.PropertyTypes...),
		Bedrooms:      append([]int(nil), d.Bedrooms...),
		Locations:     []string{},
		Amenities:     append([]string(nil), d.Amenities...),
	}
}

// topN returns the n heaviest keys, heaviest first. Equal weights are broken
// alphabetically so extraction stays deterministic.
func topN(weights map[string]float64, n int) []string {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if weights[keys[i]] != weights[keys[j]] {
			return weights[keys[i]] > weights[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
