// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

// Package risk implements the fraud-risk scoring engine: account trust
// evaluation, multi-signal listing scoring with a single documented weight
// table, duplicate detection, and explainable verdict flags.
package risk

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/estatewatch/internal/models"
	"github.com/tomtom215/estatewatch/internal/stats"
)

// Scorer evaluates listings for fraud risk. It is safe for concurrent use:
// every evaluation is a pure computation over freshly fetched inputs.
type Scorer struct {
	cfg    *Config
	source ListingSource
	trust  *AccountTrustEvaluator
	logger zerolog.Logger

	// Optional signal providers; nil when not configured.
	content ContentAnalyzer
	images  ImageAnalyzer

	// now supplies the evaluation clock; overridable for tests.
	now func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithContentAnalyzer injects an optional external text classifier.
// The provider is wrapped with a circuit breaker.
func WithContentAnalyzer(a ContentAnalyzer) Option {
	return func(s *Scorer) { s.content = a }
}

// WithImageAnalyzer injects an optional external image analyzer.
// The provider is wrapped with a circuit breaker.
func WithImageAnalyzer(a ImageAnalyzer) Option {
	return func(s *Scorer) { s.images = a }
}

// WithClock overrides the evaluation clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// NewScorer creates a risk scorer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewScorer(cfg *Config, source ListingSource, logger zerolog.Logger, opts ...Option) (*Scorer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if source == nil {
		return nil, fmt.Errorf("listing source is required")
	}

	s := &Scorer{
		cfg:    cfg,
		source: source,
		trust:  NewAccountTrustEvaluator(cfg.Account),
		logger: logger.With().Str("component", "risk").Logger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.content != nil {
		s.content = NewBreakerContentAnalyzer(s.content, cfg.Signals)
	}
	if s.images != nil {
		s.images = NewBreakerImageAnalyzer(s.images, cfg.Signals)
	}

	return s, nil
}

// EvaluateInput bundles the data a single evaluation consumes. Callers that
// already hold the data (tests, batch jobs) can invoke Score directly;
// Evaluate fetches it through the ListingSource.
type EvaluateInput struct {
	Listing models.Listing
	Account models.Account

	// Comparables is the price baseline set: same property type and city,
	// bedrooms within tolerance, excluding the listing itself.
	Comparables []models.Listing

	// OwnerListings are the account's other listings, used for posting
	// velocity and same-owner duplicate detection.
	OwnerListings []models.Listing

	// AddressMatches are listings at the exact same city+address.
	AddressMatches []models.Listing
}

// Evaluate fetches comparables and owner data for the listing and scores it.
// Returns a *models.ValidationError if mandatory listing fields are missing.
func (s *Scorer) Evaluate(ctx context.Context, listing models.Listing, account models.Account) (*Verdict, error) {
	if err := models.ValidateListing(&listing); err != nil {
		return nil, err
	}

	comparables, err := s.source.FindComparables(ctx, ComparableCriteria{
		PropertyType: listing.PropertyType,
		City:         listing.City,
		BedroomsMin:  listing.Bedrooms - s.cfg.Price.BedroomsTolerance,
		BedroomsMax:  listing.Bedrooms + s.cfg.Price.BedroomsTolerance,
	}, s.cfg.Price.MaxComparables)
	if err != nil {
		return nil, fmt.Errorf("find comparables: %w", err)
	}

	ownerListings, err := s.source.FindByOwner(ctx, listing.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("find owner listings: %w", err)
	}

	var addressMatches []models.Listing
	if listing.Address != "" {
		addressMatches, err = s.source.FindByAddress(ctx, listing.City, listing.Address)
		if err != nil {
			return nil, fmt.Errorf("find address matches: %w", err)
		}
	}

	return s.Score(ctx, EvaluateInput{
		Listing:        listing,
		Account:        account,
		Comparables:    comparables,
		OwnerListings:  ownerListings,
		AddressMatches: addressMatches,
	})
}

// subScore is one weighted component of the composite.
type subScore struct {
	weight float64
	value  float64

	// computed is false when an optional signal was unavailable; the
	// component is then excluded and the remaining weights renormalized.
	computed bool
}

// Score evaluates a listing over already-fetched inputs.
// Returns a *models.ValidationError if mandatory listing fields are missing.
func (s *Scorer) Score(ctx context.Context, in EvaluateInput) (*Verdict, error) {
	if err := models.ValidateListing(&in.Listing); err != nil {
		return nil, err
	}

	now := s.now()
	flags := make([]Flag, 0, 4)
	partial := false

	// Price anomaly.
	price := subScore{weight: s.cfg.Weights.Price, computed: true}
	priceVal, priceFlag := s.priceScore(&in.Listing, in.Comparables)
	price.value = priceVal
	if priceFlag != nil {
		flags = append(flags, *priceFlag)
	}

	// Content quality.
	content := subScore{weight: s.cfg.Weights.Content}
	contentVal, contentFlag, contentOK := s.contentScore(ctx, &in.Listing)
	if contentOK {
		content.value = contentVal
		content.computed = true
		if contentFlag != nil {
			flags = append(flags, *contentFlag)
		}
	} else {
		partial = true
	}

	// Image sufficiency.
	images := subScore{weight: s.cfg.Weights.Images}
	imageVal, imageFlag, imagesOK := s.imageScore(ctx, &in.Listing)
	if imagesOK {
		images.value = imageVal
		images.computed = true
		if imageFlag != nil {
			flags = append(flags, *imageFlag)
		}
	} else {
		partial = true
	}

	// Duplicate detection sits outside the weighted sum.
	if dupFlag := s.duplicateFlag(&in.Listing, in.OwnerListings, in.AddressMatches); dupFlag != nil {
		flags = append(flags, *dupFlag)
	}

	// Account trust.
	account := subScore{weight: s.cfg.Weights.Account, computed: true}
	trust := s.trust.Evaluate(in.Account, countRecent(in.OwnerListings, &in.Listing, now), totalListings(&in), now)
	account.value = trust.SubScore
	flags = append(flags, trust.Flags...)

	if partial {
		flags = append(flags, Flag{
			Type:     FlagPartialConfidence,
			Severity: SeverityLow,
			Message:  "one or more optional signals were unavailable; score renormalized",
		})
	}

	score := composite(price, content, images, account)
	level, recommendation := s.classify(score)

	v := &Verdict{
		ID:                uuid.New().String(),
		ListingID:         in.Listing.ID,
		Score:             score,
		Level:             level,
		Flags:             flags,
		Recommendation:    recommendation,
		IsFraudulent:      score > s.cfg.Thresholds.Fraud,
		PartialConfidence: partial,
		EvaluatedAt:       now,
	}

	s.logger.Debug().
		Str("listing_id", in.Listing.ID).
		Float64("score", v.Score).
		Str("level", string(v.Level)).
		Int("flags", len(v.Flags)).
		Bool("partial", partial).
		Msg("evaluation complete")

	return v, nil
}

// composite combines the sub-scores, renormalizing weights over the
// components that were actually computed, and clamps into [0,100].
func composite(scores ...subScore) float64 {
	var sum, totalWeight float64
	for _, sc := range scores {
		if !sc.computed {
			continue
		}
		sum += sc.weight * clamp(sc.value, 0, 100)
		totalWeight += sc.weight
	}
	if totalWeight == 0 {
		return 0
	}
	return clamp(sum/totalWeight, 0, 100)
}

// classify maps a composite score to a level and recommendation.
func (s *Scorer) classify(score float64) (Level, Recommendation) {
	switch {
	case score >= s.cfg.Thresholds.Critical:
		return LevelCritical, RecommendBlock
	case score >= s.cfg.Thresholds.High:
		return LevelHigh, RecommendReview
	case score >= s.cfg.Thresholds.Medium:
		return LevelMedium, RecommendFlag
	default:
		return LevelLow, RecommendApprove
	}
}

// priceScore computes the price-anomaly sub-score. Fewer comparables than
// the documented minimum yields 0: low confidence, not a penalty.
func (s *Scorer) priceScore(listing *models.Listing, comparables []models.Listing) (float64, *Flag) {
	prices := make([]float64, 0, len(comparables))
	for i := range comparables {
		if comparables[i].ID == listing.ID {
			continue
		}
		prices = append(prices, comparables[i].Price)
	}

	if len(prices) < s.cfg.Price.MinComparables {
		return 0, nil
	}

	mean, err := stats.Mean(prices)
	if err != nil {
		return 0, nil
	}
	z := stats.ZScore(listing.Price, mean, stats.StdDev(prices, mean))

	var value float64
	var severity Severity
	switch {
	case z > s.cfg.Price.ZSevere:
		value, severity = s.cfg.Price.ScoreSevere, SeverityHigh
	case z > s.cfg.Price.ZHigh:
		value, severity = s.cfg.Price.ScoreHigh, SeverityMedium
	case z > s.cfg.Price.ZModerate:
		value, severity = s.cfg.Price.ScoreModerate, SeverityLow
	default:
		return 0, nil
	}

	return value, &Flag{
		Type:     FlagPriceAnomaly,
		Severity: severity,
		Message: fmt.Sprintf("price anomaly: %.0f deviates %.1f standard deviations from %d comparables",
			listing.Price, z, len(prices)),
	}
}

// contentScore computes the content-quality sub-score. The highest triggered
// value wins; conditions are never summed. When a content provider is
// configured and fails, the sub-score is reported as not computed.
func (s *Scorer) contentScore(ctx context.Context, listing *models.Listing) (float64, *Flag, bool) {
	value, reason := s.contentHeuristic(listing.Description)

	if s.content != nil {
		signals, err := s.callContent(ctx, listing.Description)
		if err != nil {
			s.logger.Warn().Err(err).Str("provider", s.content.Name()).Msg("content signal unavailable")
			return 0, nil, false
		}
		if signals.SpamScore > s.cfg.Content.SpamScoreThreshold && s.cfg.Content.ScoreSpam > value {
			value, reason = s.cfg.Content.ScoreSpam, "external classifier marked description as spam"
		}
		if signals.CapsRatio > s.cfg.Content.CapsRatioThreshold && s.cfg.Content.ScoreCaps > value {
			value, reason = s.cfg.Content.ScoreCaps, "excessive capitalization"
		}
	}

	if value == 0 {
		return 0, nil, true
	}

	severity := SeverityLow
	if value >= s.cfg.Content.ScoreMissing {
		severity = SeverityMedium
	}
	return value, &Flag{
		Type:     FlagContentQuality,
		Severity: severity,
		Message:  "low content quality: " + reason,
	}, true
}

// contentHeuristic evaluates the local description checks and returns the
// highest triggered value with its reason.
func (s *Scorer) contentHeuristic(description string) (float64, string) {
	var value float64
	var reason string

	desc := strings.TrimSpace(description)
	switch n := utf8.RuneCountInString(desc); {
	case n < s.cfg.Content.MinLength:
		value, reason = s.cfg.Content.ScoreMissing, "description missing or too short"
	case n < s.cfg.Content.ShortLength:
		value, reason = s.cfg.Content.ScoreShort, "description short"
	}

	lower := strings.ToLower(desc)
	for _, phrase := range s.cfg.Content.SpamPhrases {
		if strings.Contains(lower, phrase) && s.cfg.Content.ScoreSpam > value {
			value, reason = s.cfg.Content.ScoreSpam, fmt.Sprintf("spam phrase %q", phrase)
			break
		}
	}

	if capsRatio(desc) > s.cfg.Content.CapsRatioThreshold && s.cfg.Content.ScoreCaps > value {
		value, reason = s.cfg.Content.ScoreCaps, "excessive capitalization"
	}

	return value, reason
}

// capsRatio returns the share of letters that are upper case.
func capsRatio(text string) float64 {
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

// imageScore computes the image-sufficiency sub-score. When an image
// provider is configured and fails, the sub-score is reported as not
// computed.
func (s *Scorer) imageScore(ctx context.Context, listing *models.Listing) (float64, *Flag, bool) {
	var value float64
	var reason string
	var severity Severity

	switch n := len(listing.Images); {
	case n == 0:
		value, reason, severity = s.cfg.Images.ScoreNone, "no images", SeverityHigh
	case n < s.cfg.Images.FewThreshold:
		value, reason, severity = s.cfg.Images.ScoreFew, fmt.Sprintf("only %d images", n), SeverityLow
	case n > s.cfg.Images.ManyThreshold:
		value, reason, severity = s.cfg.Images.ScoreMany, fmt.Sprintf("%d images exceeds plausible count", n), SeverityLow
	}

	if s.images != nil && len(listing.Images) > 0 {
		signals, err := s.callImages(ctx, listing.Images)
		if err != nil {
			s.logger.Warn().Err(err).Str("provider", s.images.Name()).Msg("image signal unavailable")
			return 0, nil, false
		}
		if signals.QualityScore < s.cfg.Images.LowQualityThreshold && s.cfg.Images.ScoreLowQuality > value {
			value, reason, severity = s.cfg.Images.ScoreLowQuality, "low image quality", SeverityMedium
		}
	}

	if value == 0 {
		return 0, nil, true
	}
	return value, &Flag{
		Type:     FlagImageCount,
		Severity: severity,
		Message:  "insufficient images: " + reason,
	}, true
}

// duplicateFlag detects duplicates: an exact address match by another owner,
// or a same-owner listing with identical bedrooms/bathrooms priced within
// tolerance. The flag bypasses the weighted sum entirely.
func (s *Scorer) duplicateFlag(listing *models.Listing, ownerListings, addressMatches []models.Listing) *Flag {
	for i := range addressMatches {
		m := &addressMatches[i]
		if m.ID != listing.ID && m.OwnerID != listing.OwnerID {
			return &Flag{
				Type:     FlagPossibleDuplicate,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("possible duplicate: address already listed by account %s", m.OwnerID),
			}
		}
	}

	for i := range ownerListings {
		o := &ownerListings[i]
		if o.ID == listing.ID {
			continue
		}
		if o.Bedrooms != listing.Bedrooms || o.Bathrooms != listing.Bathrooms {
			continue
		}
		if withinTolerance(o.Price, listing.Price, s.cfg.Duplicate.PriceTolerance) {
			return &Flag{
				Type:     FlagPossibleDuplicate,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("possible duplicate: near-identical listing %s by same account", o.ID),
			}
		}
	}

	return nil
}

// withinTolerance reports whether a and b differ by at most tol relative to b.
func withinTolerance(a, b, tol float64) bool {
	if b == 0 {
		return a == 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff/b <= tol
}

// callContent invokes the content provider with the configured timeout.
func (s *Scorer) callContent(ctx context.Context, text string) (*ContentSignals, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Signals.Timeout)
	defer cancel()
	return s.content.AnalyzeContent(cctx, text)
}

// callImages invokes the image provider with the configured timeout.
func (s *Scorer) callImages(ctx context.Context, images []string) (*ImageSignals, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Signals.Timeout)
	defer cancel()
	return s.images.AnalyzeImages(cctx, images)
}

// countRecent counts owner listings created within 24h of now, excluding the
// listing under evaluation.
func countRecent(ownerListings []models.Listing, listing *models.Listing, now time.Time) int {
	cutoff := now.Add(-24 * time.Hour)
	count := 0
	for i := range ownerListings {
		if ownerListings[i].ID == listing.ID {
			continue
		}
		if ownerListings[i].CreatedAt.After(cutoff) {
			count++
		}
	}
	return count
}

// totalListings derives the account's lifetime listing count, preferring the
// fetched owner set over the possibly stale account counter.
func totalListings(in *EvaluateInput) int {
	if n := len(in.OwnerListings); n > in.Account.ListingCount {
		return n
	}
	return in.Account.ListingCount
}

// Config returns a copy of the scorer configuration.
func (s *Scorer) Config() *Config {
	return s.cfg.Clone()
}
