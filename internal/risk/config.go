// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package risk

import (
	"fmt"
	"time"
)

// Config contains all tunables for the risk engine. The weight table and
// thresholds live here and nowhere else; sub-scorers receive them from this
// single source.
type Config struct {
	// Weights defines the contribution of each sub-score to the composite.
	Weights Weights `json:"weights"`

	// Price contains price-anomaly parameters.
	Price PriceConfig `json:"price"`

	// Content contains content-quality parameters.
	Content ContentConfig `json:"content"`

	// Images contains image-sufficiency parameters.
	Images ImageConfig `json:"images"`

	// Duplicate contains duplicate-detection parameters.
	Duplicate DuplicateConfig `json:"duplicate"`

	// Account contains account-trust parameters.
	Account AccountConfig `json:"account"`

	// Thresholds maps composite scores to risk levels and the fraud cutoff.
	Thresholds Thresholds `json:"thresholds"`

	// Signals contains optional-provider call parameters.
	Signals SignalConfig `json:"signals"`
}

// Weights is the documented weight table for the composite risk score.
// When a sub-score is unavailable its weight is dropped and the remaining
// weights are renormalized at evaluation time.
type Weights struct {
	// Price is the price-anomaly weight. Default: 0.30.
	Price float64 `json:"price"`

	// Content is the content-quality weight. Default: 0.20.
	Content float64 `json:"content"`

	// Images is the image-sufficiency weight. Default: 0.20.
	Images float64 `json:"images"`

	// Account is the account-trust weight. Default: 0.30.
	Account float64 `json:"account"`
}

// PriceConfig contains price-anomaly parameters.
type PriceConfig struct {
	// MinComparables is the minimum comparable count required to score.
	// Below this the sub-score is 0 (low confidence, not penalized).
	// Default: 5.
	MinComparables int `json:"min_comparables"`

	// MaxComparables bounds the comparable fetch. Default: 50.
	MaxComparables int `json:"max_comparables"`

	// BedroomsTolerance widens the bedroom match (±N). Default: 1.
	BedroomsTolerance int `json:"bedrooms_tolerance"`

	// ZSevere, ZHigh, ZModerate are the z-score ladder steps mapping to
	// ScoreSevere, ScoreHigh, ScoreModerate respectively.
	// Defaults: z>3→80, z>2→50, z>1.5→30, else 0.
	ZSevere       float64 `json:"z_severe"`
	ZHigh         float64 `json:"z_high"`
	ZModerate     float64 `json:"z_moderate"`
	ScoreSevere   float64 `json:"score_severe"`
	ScoreHigh     float64 `json:"score_high"`
	ScoreModerate float64 `json:"score_moderate"`
}

// ContentConfig contains content-quality parameters. The highest triggered
// value wins; values are never summed, so one weak description is not
// penalized twice.
type ContentConfig struct {
	// MinLength is the description length below which ScoreMissing applies
	// (also applies to an absent description). Default: 50.
	MinLength int `json:"min_length"`

	// ShortLength is the length below which ScoreShort applies. Default: 100.
	ShortLength int `json:"short_length"`

	// SpamPhrases is the documented spam-phrase list, matched
	// case-insensitively. A hit applies ScoreSpam.
	SpamPhrases []string `json:"spam_phrases"`

	// CapsRatioThreshold is the capital-letter ratio above which
	// ScoreCaps applies. Default: 0.3.
	CapsRatioThreshold float64 `json:"caps_ratio_threshold"`

	// SpamScoreThreshold is the external-provider spam score above which
	// ScoreSpam applies. Default: 0.5.
	SpamScoreThreshold float64 `json:"spam_score_threshold"`

	ScoreMissing float64 `json:"score_missing"` // Default: 60.
	ScoreShort   float64 `json:"score_short"`   // Default: 40.
	ScoreSpam    float64 `json:"score_spam"`    // Default: 70.
	ScoreCaps    float64 `json:"score_caps"`    // Default: 50.
}

// ImageConfig contains image-sufficiency parameters.
type ImageConfig struct {
	// FewThreshold is the count below which ScoreFew applies. Default: 3.
	FewThreshold int `json:"few_threshold"`

	// ManyThreshold is the count above which ScoreMany applies. Default: 20.
	ManyThreshold int `json:"many_threshold"`

	// LowQualityThreshold is the external-provider quality score below
	// which ScoreLowQuality applies. Default: 0.3.
	LowQualityThreshold float64 `json:"low_quality_threshold"`

	ScoreNone       float64 `json:"score_none"`        // Default: 80.
	ScoreFew        float64 `json:"score_few"`         // Default: 40.
	ScoreMany       float64 `json:"score_many"`        // Default: 30.
	ScoreLowQuality float64 `json:"score_low_quality"` // Default: 60.
}

// DuplicateConfig contains duplicate-detection parameters. A duplicate hit
// sets a high-severity flag outside the weighted sum.
type DuplicateConfig struct {
	// PriceTolerance is the relative price difference under which a
	// same-owner listing with identical bedrooms/bathrooms counts as a
	// duplicate. Default: 0.05.
	PriceTolerance float64 `json:"price_tolerance"`
}

// AccountConfig contains account-trust parameters.
type AccountConfig struct {
	// NewAccountAgeDays is the age below which the listing-volume check
	// applies. Default: 7.
	NewAccountAgeDays int `json:"new_account_age_days"`

	// NewAccountListingThreshold is the total listing count above which a
	// new account is flagged. Default: 5.
	NewAccountListingThreshold int `json:"new_account_listing_threshold"`

	// RecentListingThreshold is the 24h listing count above which posting
	// frequency is flagged. Default: 10.
	RecentListingThreshold int `json:"recent_listing_threshold"`

	// ContributionNewAccount, ContributionFrequency and
	// ContributionUnverified are the sub-score contributions of the three
	// checks. Defaults: 30, 25, 15.
	ContributionNewAccount float64 `json:"contribution_new_account"`
	ContributionFrequency  float64 `json:"contribution_frequency"`
	ContributionUnverified float64 `json:"contribution_unverified"`
}

// Thresholds maps composite scores to levels and recommendations.
//
// Fraud is kept distinct from Critical on purpose: the fraud cutoff (>70)
// and the critical level boundary (≥75) are separately documented values.
type Thresholds struct {
	Critical float64 `json:"critical"` // Default: 75. Level critical, recommend block.
	High     float64 `json:"high"`     // Default: 50. Level high, recommend review.
	Medium   float64 `json:"medium"`   // Default: 30. Level medium, recommend flag.
	Fraud    float64 `json:"fraud"`    // Default: 70. IsFraudulent when score strictly exceeds.
}

// SignalConfig contains optional-provider call parameters.
type SignalConfig struct {
	// Timeout bounds each provider call. Default: 2s.
	Timeout time.Duration `json:"timeout"`

	// BreakerMaxFailures is the consecutive-failure count that opens the
	// provider circuit breaker. Default: 5.
	BreakerMaxFailures uint32 `json:"breaker_max_failures"`

	// BreakerCooldown is how long an open breaker waits before probing.
	// Default: 30s.
	BreakerCooldown time.Duration `json:"breaker_cooldown"`
}

// DefaultConfig returns a Config with the documented production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: Weights{
			Price:   0.30,
			Content: 0.20,
			Images:  0.20,
			Account: 0.30,
		},
		Price: PriceConfig{
			MinComparables:    5,
			MaxComparables:    50,
			BedroomsTolerance: 1,
			ZSevere:           3.0,
			ZHigh:             2.0,
			ZModerate:         1.5,
			ScoreSevere:       80,
			ScoreHigh:         50,
			ScoreModerate:     30,
		},
		Content: ContentConfig{
			MinLength:   50,
			ShortLength: 100,
			SpamPhrases: []string{
				"click here",
				"act fast",
				"guaranteed",
				"limited time offer",
				"wire transfer",
			},
			CapsRatioThreshold: 0.3,
			SpamScoreThreshold: 0.5,
			ScoreMissing:       60,
			ScoreShort:         40,
			ScoreSpam:          70,
			ScoreCaps:          50,
		},
		Images: ImageConfig{
			FewThreshold:        3,
			ManyThreshold:       20,
			LowQualityThreshold: 0.3,
			ScoreNone:           80,
			ScoreFew:            40,
			ScoreMany:           30,
			ScoreLowQuality:     60,
		},
		Duplicate: DuplicateConfig{
			PriceTolerance: 0.05,
		},
		Account: AccountConfig{
			NewAccountAgeDays:          7,
			NewAccountListingThreshold: 5,
			RecentListingThreshold:     10,
			ContributionNewAccount:     30,
			ContributionFrequency:      25,
			ContributionUnverified:     15,
		},
		Thresholds: Thresholds{
			Critical: 75,
			High:     50,
			Medium:   30,
			Fraud:    70,
		},
		Signals: SignalConfig{
			Timeout:            2 * time.Second,
			BreakerMaxFailures: 5,
			BreakerCooldown:    30 * time.Second,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Weights.Price < 0 || c.Weights.Content < 0 || c.Weights.Images < 0 || c.Weights.Account < 0 {
		return fmt.Errorf("weights must be non-negative, got %+v", c.Weights)
	}
	if c.Weights.Price+c.Weights.Content+c.Weights.Images+c.Weights.Account == 0 {
		return fmt.Errorf("at least one weight must be positive")
	}

	if c.Price.MinComparables < 1 {
		return fmt.Errorf("price.min_comparables must be positive, got %d", c.Price.MinComparables)
	}
	if c.Price.MaxComparables < c.Price.MinComparables {
		return fmt.Errorf("price.max_comparables must be >= min_comparables, got %d < %d",
			c.Price.MaxComparables, c.Price.MinComparables)
	}
	if !(c.Price.ZSevere > c.Price.ZHigh && c.Price.ZHigh > c.Price.ZModerate) {
		return fmt.Errorf("price z ladder must be strictly decreasing, got %f/%f/%f",
			c.Price.ZSevere, c.Price.ZHigh, c.Price.ZModerate)
	}

	if c.Content.MinLength < 0 || c.Content.ShortLength < c.Content.MinLength {
		return fmt.Errorf("content length thresholds invalid: min=%d short=%d",
			c.Content.MinLength, c.Content.ShortLength)
	}
	if c.Content.CapsRatioThreshold < 0 || c.Content.CapsRatioThreshold > 1 {
		return fmt.Errorf("content.caps_ratio_threshold must be in [0,1], got %f", c.Content.CapsRatioThreshold)
	}

	if c.Images.FewThreshold < 1 || c.Images.ManyThreshold <= c.Images.FewThreshold {
		return fmt.Errorf("image thresholds invalid: few=%d many=%d",
			c.Images.FewThreshold, c.Images.ManyThreshold)
	}

	if c.Duplicate.PriceTolerance < 0 || c.Duplicate.PriceTolerance > 1 {
		return fmt.Errorf("duplicate.price_tolerance must be in [0,1], got %f", c.Duplicate.PriceTolerance)
	}

	if !(c.Thresholds.Critical > c.Thresholds.High && c.Thresholds.High > c.Thresholds.Medium) {
		return fmt.Errorf("level thresholds must be strictly decreasing, got %f/%f/%f",
			c.Thresholds.Critical, c.Thresholds.High, c.Thresholds.Medium)
	}
	if c.Thresholds.Fraud <= 0 || c.Thresholds.Fraud > 100 {
		return fmt.Errorf("thresholds.fraud must be in (0,100], got %f", c.Thresholds.Fraud)
	}

	if c.Signals.Timeout <= 0 {
		return fmt.Errorf("signals.timeout must be positive, got %v", c.Signals.Timeout)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Content.SpamPhrases = append([]string(nil), c.Content.SpamPhrases...)
	return &out
}
