// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package recommend

import (
	"fmt"
	"time"
)

// Config contains all tunables for the recommendation engine.
type Config struct {
	// DefaultLimit is the result size when the caller passes none.
	// Default: 10.
	DefaultLimit int `json:"default_limit"`

	// MaxLimit bounds the requested result size. Default: 50.
	MaxLimit int `json:"max_limit"`

	// MaxCandidates bounds the coarse candidate pool fetch. Default: 500.
	MaxCandidates int `json:"max_candidates"`

	// ProfileCacheTTL is how long a computed preference profile is reused
	// before the interaction history is consulted again. Default: 5m.
	ProfileCacheTTL time.Duration `json:"profile_cache_ttl"`

	// Extractor contains preference-extraction parameters.
	Extractor ExtractorConfig `json:"extractor"`

	// Ranker contains candidate-scoring parameters.
	Ranker RankerConfig `json:"ranker"`
}

// ExtractorConfig contains preference-extraction parameters.
type ExtractorConfig struct {
	// FavoriteWeight and ViewWeight weigh interactions when averaging.
	// Defaults: 2 and 1.
	FavoriteWeight float64 `json:"favorite_weight"`
	ViewWeight     float64 `json:"view_weight"`

	// PriceRangeLow and PriceRangeHigh are the multipliers applied to the
	// weighted average price to form the preferred range. This is the
	// single multiplier pair; it is not duplicated elsewhere.
	// Defaults: 0.8 and 1.2.
	PriceRangeLow  float64 `json:"price_range_low"`
	PriceRangeHigh float64 `json:"price_range_high"`

	// TopPropertyTypes, TopLocations and TopAmenities bound the extracted
	// preference sets. Defaults: 3, 3, 5.
	TopPropertyTypes int `json:"top_property_types"`
	TopLocations     int `json:"top_locations"`
	TopAmenities     int `json:"top_amenities"`

	// Default is the profile returned for an empty interaction history.
	Default DefaultProfile `json:"default"`
}

// DefaultProfile is the documented fallback profile for users without
// interaction history.
type DefaultProfile struct {
	PriceMin      float64  `json:"price_min"`      // Default: 100000.
	PriceMax      float64  `json:"price_max"`      // Default: 500000.
	PropertyTypes []string `json:"property_types"` // Default: house, apartment.
	Bedrooms      []int    `json:"bedrooms"`       // Default: 3.
	Amenities     []string `json:"amenities"`      // Default: Parking, WiFi.
}

// RankerConfig contains candidate-scoring parameters. Each component is
// individually capped, so the total needs no clamp.
type RankerConfig struct {
	// PricePoints is the maximum for price closeness; linear falloff with
	// distance from the range midpoint, 0 outside the range. Default: 30.
	PricePoints float64 `json:"price_points"`

	// BedroomPoints is awarded for an exact bedroom match; each bedroom of
	// difference subtracts BedroomPenalty, floored at 0. Defaults: 20, 5.
	BedroomPoints  float64 `json:"bedroom_points"`
	BedroomPenalty float64 `json:"bedroom_penalty"`

	// BathroomPoints is awarded for an exact bathroom match; each bathroom
	// of difference subtracts BathroomPenalty, floored at 0.
	// Defaults: 15, 3.
	BathroomPoints  float64 `json:"bathroom_points"`
	BathroomPenalty float64 `json:"bathroom_penalty"`

	// AreaPoints is the maximum for area closeness; linear falloff with
	// relative distance from the profile average area. Default: 15.
	AreaPoints float64 `json:"area_points"`

	// AmenityPoints is awarded per matching amenity, uncapped beyond the
	// amenity set size. Default: 2.
	AmenityPoints float64 `json:"amenity_points"`

	// LocationPoints is awarded when the candidate city is a preferred
	// location. Default: 10.
	LocationPoints float64 `json:"location_points"`
}

// DefaultConfig returns a Config with the documented production defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultLimit:    10,
		MaxLimit:        50,
		MaxCandidates:   500,
		ProfileCacheTTL: 5 * time.Minute,
		Extractor: ExtractorConfig{
			FavoriteWeight:   2,
			ViewWeight:       1,
			PriceRangeLow:    0.8,
			PriceRangeHigh:   1.2,
			TopPropertyTypes: 3,
			TopLocations:     3,
			TopAmenities:     5,
			Default: DefaultProfile{
				PriceMin:      100000,
				PriceMax:      500000,
				PropertyTypes: []string{"house", "apartment"},
				Bedrooms:      []int{3},
				Amenities:     []string{"Parking", "WiFi"},
			},
		},
		Ranker: RankerConfig{
			PricePoints:     30,
			BedroomPoints:   20,
			BedroomPenalty:  5,
			BathroomPoints:  15,
			BathroomPenalty: 3,
			AreaPoints:      15,
			AmenityPoints:   2,
			LocationPoints:  10,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit must be >= default_limit, got %d < %d", c.MaxLimit, c.DefaultLimit)
	}
	if c.MaxCandidates < c.MaxLimit {
		return fmt.Errorf("max_candidates must be >= max_limit, got %d < %d", c.MaxCandidates, c.MaxLimit)
	}
	if c.ProfileCacheTTL < 0 {
		return fmt.Errorf("profile_cache_ttl must not be negative, got %v", c.ProfileCacheTTL)
	}

	e := c.Extractor
	if e.FavoriteWeight <= 0 || e.ViewWeight <= 0 {
		return fmt.Errorf("interaction weights must be positive, got favorite=%f view=%f",
			e.FavoriteWeight, e.ViewWeight)
	}
	if !(e.PriceRangeLow > 0 && e.PriceRangeLow <= 1 && e.PriceRangeHigh >= 1) {
		return fmt.Errorf("price range multipliers invalid: low=%f high=%f",
			e.PriceRangeLow, e.PriceRangeHigh)
	}
	if e.TopPropertyTypes < 1 || e.TopLocations < 1 || e.TopAmenities < 1 {
		return fmt.Errorf("top-N bounds must be positive, got types=%d locations=%d amenities=%d",
			e.TopPropertyTypes, e.TopLocations, e.TopAmenities)
	}
	if e.Default.PriceMin < 0 || e.Default.PriceMax <= e.Default.PriceMin {
		return fmt.Errorf("default profile price range invalid: [%f, %f]",
			e.Default.PriceMin, e.Default.PriceMax)
	}

	r := c.Ranker
	if r.PricePoints < 0 || r.BedroomPoints < 0 || r.BathroomPoints < 0 ||
		r.AreaPoints < 0 || r.AmenityPoints < 0 || r.LocationPoints < 0 {
		return fmt.Errorf("ranker points must be non-negative, got %+v", r)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Extractor.Default.PropertyTypes = append([]string(nil), c.Extractor.Default.PropertyTypes...)
	out.Extractor.Default.Bedrooms = append([]int(nil), c.Extractor.Default.Bedrooms...)
	out.Extractor.Default.Amenities = append([]string(nil), c.Extractor.Default.Amenities...)
	return &out
}
