// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package recommend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/estatewatch/internal/models"
)

// Service orchestrates preference extraction and candidate ranking. It holds
// no algorithmic logic of its own beyond sequencing, exclusion-set
// construction and the per-user profile cache.
type Service struct {
	cfg          *Config
	extractor    *PreferenceExtractor
	ranker       *CandidateRanker
	interactions InteractionSource
	listings     ListingSource
	logger       zerolog.Logger
	now          func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedProfile

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

type cachedProfile struct {
	profile PreferenceProfile
	expires time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock overrides the cache clock. Intended for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a recommendation service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(cfg *Config, interactions InteractionSource, listings ListingSource, logger zerolog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if interactions == nil || listings == nil {
		return nil, fmt.Errorf("interaction and listing sources are required")
	}

	s := &Service{
		cfg:          cfg,
		extractor:    NewPreferenceExtractor(cfg.Extractor),
		ranker:       NewCandidateRanker(cfg.Ranker),
		interactions: interactions,
		listings:     listings,
		logger:       logger.With().Str("component", "recommend").Logger(),
		now:          time.Now,
		cache:        make(map[string]cachedProfile),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Recommend returns up to limit ranked candidates for the user. A limit of 0
// or less falls back to the configured default; limits above the configured
// maximum are capped.
func (s *Service) Recommend(ctx context.Context, userID string, limit int) ([]RankedCandidate, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	history, err := s.interactions.FindInteractions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find interactions: %w", err)
	}

	profile, err := s.profileFor(ctx, userID, history)
	if err != nil {
		return nil, err
	}

	exclude, err := s.excludeSet(ctx, userID, history)
	if err != nil {
		return nil, err
	}

	pool, err := s.listings.FindCandidates(ctx, CandidateQuery{
		PriceMin:      profile.PriceRange.Min,
		PriceMax:      profile.PriceRange.Max,
		PropertyTypes: profile.PropertyTypes,
		Limit:         s.cfg.MaxCandidates,
	})
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	ranked := s.ranker.Rank(pool, &profile, exclude, limit)

	s.logger.Debug().
		Str("user_id", userID).
		Int("interactions", len(history)).
		Int("pool", len(pool)).
		Int("results", len(ranked)).
		Msg("recommendation complete")

	return ranked, nil
}

// Profile returns the user's current preference profile, computing and
// caching it if needed.
func (s *Service) Profile(ctx context.Context, userID string) (PreferenceProfile, error) {
	history, err := s.interactions.FindInteractions(ctx, userID)
	if err != nil {
		return PreferenceProfile{}, fmt.Errorf("find interactions: %w", err)
	}
	return s.profileFor(ctx, userID, history)
}

// InvalidateUser drops the user's cached profile. Call on interaction
// writes; single writer per user, last write wins.
func (s *Service) InvalidateUser(userID string) {
	s.mu.Lock()
	delete(s.cache, userID)
	s.mu.Unlock()
}

// CacheStats returns the lifetime profile cache hit and miss counts.
func (s *Service) CacheStats() (hits, misses int64) {
	return s.cacheHits.Load(), s.cacheMisses.Load()
}

// profileFor returns the cached profile when fresh, otherwise resolves the
// interacted listings and extracts a new one.
func (s *Service) profileFor(ctx context.Context, userID string, history []Interaction) (PreferenceProfile, error) {
	now := s.now()

	if s.cfg.ProfileCacheTTL > 0 {
		s.mu.RLock()
		entry, ok := s.cache[userID]
		s.mu.RUnlock()
		if ok && now.Before(entry.expires) {
			s.cacheHits.Add(1)
			return entry.profile, nil
		}
	}
	s.cacheMisses.Add(1)

	ids := make([]string, 0, len(history))
	seen := make(map[string]struct{}, len(history))
	for _, in := range history {
		if _, dup := seen[in.ListingID]; dup {
			continue
		}
		seen[in.ListingID] = struct{}{}
		ids = append(ids, in.ListingID)
	}

	byID := map[string]models.Listing{}
	if len(ids) > 0 {
		resolved, err := s.listings.FindByIDs(ctx, ids)
		if err != nil {
			return PreferenceProfile{}, fmt.Errorf("resolve interacted listings: %w", err)
		}
		for i := range resolved {
			byID[resolved[i].ID] = resolved[i]
		}
	}

	profile := s.extractor.Extract(history, byID)

	if s.cfg.ProfileCacheTTL > 0 {
		s.mu.Lock()
		s.cache[userID] = cachedProfile{profile: profile, expires: now.Add(s.cfg.ProfileCacheTTL)}
		s.mu.Unlock()
	}

	return profile, nil
}

// excludeSet collects the listing IDs that must never be recommended: the
// user's favorites and the user's own listings.
func (s *Service) excludeSet(ctx context.Context, userID string, history []Interaction) (map[string]struct{}, error) {
	exclude := make(map[string]struct{})
	for _, in := range history {
		if in.Kind == KindFavorited {
			exclude[in.ListingID] = struct{}{}
		}
	}

	owned, err := s.listings.FindByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find owned listings: %w", err)
	}
	for i := range owned {
		exclude[owned[i].ID] = struct{}{}
	}

	return exclude, nil
}
