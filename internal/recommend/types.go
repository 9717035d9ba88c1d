// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

// Package recommend implements the relevance side of the engine: preference
// profile extraction from interaction history and deterministic candidate
// ranking with explainable match reasons.
package recommend

import (
	"context"
	"time"

	"github.com/tomtom215/estatewatch/internal/models"
)

// InteractionKind classifies a user interaction with a listing.
type InteractionKind string

const (
	// KindViewed is a listing detail view.
	KindViewed InteractionKind = "viewed"

	// KindFavorited is an explicit favorite. Favorites weigh double in
	// preference extraction.
	KindFavorited InteractionKind = "favorited"
)

// Valid reports whether k is a known interaction kind.
func (k InteractionKind) Valid() bool {
	return k == KindViewed || k == KindFavorited
}

// Interaction is one append-only user/listing interaction record.
type Interaction struct {
	UserID    string          `json:"user_id"`
	ListingID string          `json:"listing_id"`
	Kind      InteractionKind `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceRange is an inclusive price window.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Mid returns the midpoint of the range.
func (r PriceRange) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Width returns the range width.
func (r PriceRange) Width() float64 {
	return r.Max - r.Min
}

// Contains reports whether p falls inside the range.
func (r PriceRange) Contains(p float64) bool {
	return p >= r.Min && p <= r.Max
}

// PreferenceProfile summarizes a user's taste, derived from interaction
// history. Profiles are recomputed per request and never mutated in place.
type PreferenceProfile struct {
	// PriceRange is the preferred price window.
	PriceRange PriceRange `json:"price_range"`

	// PropertyTypes are the preferred property types, most frequent first.
	PropertyTypes []string `json:"property_types"`

	// Bedrooms are the preferred bedroom counts.
	Bedrooms []int `json:"bedrooms"`

	// Locations are the preferred cities, most frequent first. Empty when
	// the history shows no location signal.
	Locations []string `json:"locations"`

	// Amenities are the preferred amenities, most frequent first.
	Amenities []string `json:"amenities"`

	// Bathrooms is the preferred bathroom count; 0 means unknown.
	Bathrooms int `json:"bathrooms,omitempty"`

	// AvgArea is the weighted average area of interacted listings; 0 means
	// unknown. Used by the ranker for area closeness.
	AvgArea float64 `json:"avg_area,omitempty"`
}

// HasLocation reports whether city is a preferred location.
func (p *PreferenceProfile) HasLocation(city string) bool {
	for _, l := range p.Locations {
		if l == city {
			return true
		}
	}
	return false
}

// RankedCandidate is one scored entry of a recommendation result.
type RankedCandidate struct {
	// Listing is the candidate listing.
	Listing models.Listing `json:"listing"`

	// Score is the relevance score; components are individually bounded so
	// no additional clamp is applied.
	Score float64 `json:"score"`

	// MatchReasons lists the criteria that contributed a nonzero score, in
	// the order the components are computed.
	MatchReasons []string `json:"match_reasons"`
}

// CandidateQuery is the coarse pre-filter for the candidate pool, derived
// from a preference profile.
type CandidateQuery struct {
	PriceMin      float64
	PriceMax      float64
	PropertyTypes []string
	Limit         int
}

// InteractionSource supplies a user's interaction history.
type InteractionSource interface {
	// FindInteractions returns all interactions of the user, oldest first.
	FindInteractions(ctx context.Context, userID string) ([]Interaction, error)
}

// ListingSource supplies listings for profile extraction and ranking.
type ListingSource interface {
	// FindByIDs resolves listing IDs to listings. Unknown IDs are skipped,
	// not errors.
	FindByIDs(ctx context.Context, ids []string) ([]models.Listing, error)

	// FindCandidates returns the coarse candidate pool for a query,
	// restricted to active listings.
	FindCandidates(ctx context.Context, q CandidateQuery) ([]models.Listing, error)

	// FindByOwner returns the listings owned by an account.
	FindByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)
}
