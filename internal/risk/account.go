// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package risk

import (
	"fmt"
	"time"

	"github.com/tomtom215/estatewatch/internal/models"
)

// TrustResult is the account-trust sub-score with its triggered flags.
type TrustResult struct {
	// SubScore is the summed contributions, clamped to [0,100].
	SubScore float64 `json:"sub_score"`

	// Flags lists only the triggered conditions, in check order.
	Flags []Flag `json:"flags"`
}

// AccountTrustEvaluator scores an account's trustworthiness from its age,
// verification state, and listing velocity. Evaluate is a pure function of
// its inputs and the supplied clock instant.
type AccountTrustEvaluator struct {
	cfg AccountConfig
}

// NewAccountTrustEvaluator creates an evaluator with the given parameters.
func NewAccountTrustEvaluator(cfg AccountConfig) *AccountTrustEvaluator {
	return &AccountTrustEvaluator{cfg: cfg}
}

// Evaluate scores the account. recentListings24h is the number of listings
// the account posted in the last 24 hours; totalListings is its lifetime
// count. now supplies the evaluation instant so results are reproducible.
func (e *AccountTrustEvaluator) Evaluate(account models.Account, recentListings24h, totalListings int, now time.Time) TrustResult {
	var result TrustResult

	if account.AgeDays(now) < e.cfg.NewAccountAgeDays && totalListings > e.cfg.NewAccountListingThreshold {
		result.SubScore += e.cfg.ContributionNewAccount
		result.Flags = append(result.Flags, Flag{
			Type:     FlagNewAccountVelocity,
			Severity: SeverityHigh,
			Message: fmt.Sprintf("new account, unusually high listing volume: %d listings in first %d days",
				totalListings, e.cfg.NewAccountAgeDays),
		})
	}

	if recentListings24h > e.cfg.RecentListingThreshold {
		result.SubScore += e.cfg.ContributionFrequency
		result.Flags = append(result.Flags, Flag{
			Type:     FlagPostingFrequency,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("unusually high posting frequency: %d listings in 24h", recentListings24h),
		})
	}

	if !account.Verified {
		result.SubScore += e.cfg.ContributionUnverified
		result.Flags = append(result.Flags, Flag{
			Type:     FlagUnverifiedAccount,
			Severity: SeverityLow,
			Message:  "unverified account",
		})
	}

	result.SubScore = clamp(result.SubScore, 0, 100)
	return result
}

// clamp bounds v into [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
