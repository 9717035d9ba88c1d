// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package risk

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/estatewatch/internal/models"
)

// FlagType identifies the signal that triggered a flag.
type FlagType string

const (
	// FlagPriceAnomaly marks a price far outside the comparable set.
	FlagPriceAnomaly FlagType = "price_anomaly"

	// FlagContentQuality marks a weak or spammy description.
	FlagContentQuality FlagType = "content_quality"

	// FlagImageCount marks a suspicious image count.
	FlagImageCount FlagType = "image_count"

	// FlagPossibleDuplicate marks an address or near-identical-listing match.
	FlagPossibleDuplicate FlagType = "possible_duplicate"

	// FlagNewAccountVelocity marks a young account with many listings.
	FlagNewAccountVelocity FlagType = "new_account_velocity"

	// FlagPostingFrequency marks an unusually high 24h posting rate.
	FlagPostingFrequency FlagType = "posting_frequency"

	// FlagUnverifiedAccount marks a listing from an unverified account.
	FlagUnverifiedAccount FlagType = "unverified_account"

	// FlagPartialConfidence marks a verdict computed without one or more
	// optional signals.
	FlagPartialConfidence FlagType = "partial_confidence"
)

// Severity indicates how strongly a flag should weigh in moderation.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Flag is a structured, independently triggered signal explaining part of a
// verdict. Flags are additive; no flag suppresses another.
type Flag struct {
	Type     FlagType `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Level classifies the composite risk score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Recommendation is the moderation transition the engine suggests.
// The moderation workflow owns the actual state machine.
type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendFlag    Recommendation = "flag"
	RecommendReview  Recommendation = "review"
	RecommendBlock   Recommendation = "block"
)

// Verdict is the result of a single risk evaluation. A verdict is created
// fresh per evaluation; persisted verdicts are immutable history tied to a
// listing version.
type Verdict struct {
	// ID uniquely identifies this evaluation.
	ID string `json:"id"`

	// ListingID is the evaluated listing.
	ListingID string `json:"listing_id"`

	// Score is the composite risk score, always in [0,100].
	Score float64 `json:"score"`

	// Level classifies Score against the documented thresholds.
	Level Level `json:"level"`

	// Flags lists the triggered signals, in evaluation order.
	Flags []Flag `json:"flags"`

	// Recommendation is the suggested moderation transition.
	Recommendation Recommendation `json:"recommendation"`

	// IsFraudulent is true when Score exceeds the fraud threshold.
	// The threshold is deliberately distinct from the critical level
	// boundary; both are configured separately.
	IsFraudulent bool `json:"is_fraudulent"`

	// PartialConfidence is true when an optional signal was unavailable
	// and the weighted sum was renormalized without it.
	PartialConfidence bool `json:"partial_confidence"`

	// EvaluatedAt is when the evaluation ran.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// HasFlag reports whether the verdict carries a flag of the given type.
func (v *Verdict) HasFlag(t FlagType) bool {
	for _, f := range v.Flags {
		if f.Type == t {
			return true
		}
	}
	return false
}

// ErrUnavailable is the documented "no result" from an optional signal
// provider. It is distinct from a zero score: the provider ran but has
// nothing to say, or could not be reached.
var ErrUnavailable = errors.New("risk: signal provider unavailable")

// ContentSignals is the result of an external text analysis.
type ContentSignals struct {
	// SpamScore is the spam likelihood in [0,1].
	SpamScore float64 `json:"spam_score"`

	// CapsRatio is the capital-letter ratio in [0,1].
	CapsRatio float64 `json:"caps_ratio"`
}

// ImageSignals is the result of an external image analysis.
type ImageSignals struct {
	// QualityScore is the aggregate image quality in [0,1], 1 being best.
	QualityScore float64 `json:"quality_score"`
}

// ContentAnalyzer is an optional external text-classification capability.
// Implementations must honor the context deadline; the scorer invokes them
// with a bounded timeout and treats failure as an absent signal.
type ContentAnalyzer interface {
	// Name returns the provider identifier for logging.
	Name() string

	// AnalyzeContent classifies the given text. Returns ErrUnavailable
	// when no result can be produced.
	AnalyzeContent(ctx context.Context, text string) (*ContentSignals, error)
}

// ImageAnalyzer is an optional external image-analysis capability.
type ImageAnalyzer interface {
	// Name returns the provider identifier for logging.
	Name() string

	// AnalyzeImages scores the given image URIs. Returns ErrUnavailable
	// when no result can be produced.
	AnalyzeImages(ctx context.Context, images []string) (*ImageSignals, error)
}

// ComparableCriteria selects the comparable set for price-anomaly scoring:
// same property type and city, bedrooms within the configured tolerance.
type ComparableCriteria struct {
	PropertyType string `json:"property_type"`
	City         string `json:"city"`
	BedroomsMin  int    `json:"bedrooms_min"`
	BedroomsMax  int    `json:"bedrooms_max"`
}

// ListingSource is the repository contract the scorer consumes. It is
// implemented by the storage layer; the scorer has no storage-technology
// dependency.
type ListingSource interface {
	// FindComparables returns up to limit listings matching the criteria,
	// excluding the listing under evaluation.
	FindComparables(ctx context.Context, criteria ComparableCriteria, limit int) ([]models.Listing, error)

	// FindByOwner returns all listings posted by the given account.
	FindByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)

	// FindByAddress returns listings at the exact city+address.
	FindByAddress(ctx context.Context, city, address string) ([]models.Listing, error)
}
