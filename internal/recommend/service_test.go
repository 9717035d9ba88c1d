// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/estatewatch/internal/models"
)

type stubInteractions struct {
	history []Interaction
	err     error
}

func (s *stubInteractions) FindInteractions(_ context.Context, _ string) ([]Interaction, error) {
	return s.history, s.err
}

type stubListings struct {
	byID       []models.Listing
	candidates []models.Listing
	owned      []models.Listing
	err        error

	byIDCalls      int
	candidateQuery CandidateQuery
}

func (s *stubListings) FindByIDs(_ context.Context, _ []string) ([]models.Listing, error) {
	s.byIDCalls++
	return s.byID, s.err
}

func (s *stubListings) FindCandidates(_ context.Context, q CandidateQuery) ([]models.Listing, error) {
	s.candidateQuery = q
	return s.candidates, s.err
}

func (s *stubListings) FindByOwner(_ context.Context, _ string) ([]models.Listing, error) {
	return s.owned, s.err
}

func newTestService(t *testing.T, cfg *Config, interactions *stubInteractions, listings *stubListings, opts ...ServiceOption) *Service {
	t.Helper()
	svc, err := NewService(cfg, interactions, listings, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	return svc
}

func TestRecommendColdStart(t *testing.T) {
	listings := &stubListings{
		candidates: []models.Listing{
			{ID: "c1", Price: 300000, PropertyType: "house", Bedrooms: 3},
			{ID: "c2", Price: 900000, PropertyType: "castle"},
		},
	}
	svc := newTestService(t, nil, &stubInteractions{}, listings)

	got, err := svc.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}

	// Default profile drives the candidate query.
	if listings.candidateQuery.PriceMin != 100000 || listings.candidateQuery.PriceMax != 500000 {
		t.Errorf("candidate price window = [%f, %f], want default [100000, 500000]",
			listings.candidateQuery.PriceMin, listings.candidateQuery.PriceMax)
	}
	if len(got) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(got))
	}
	if got[0].Listing.ID != "c1" {
		t.Errorf("first = %s, want c1 (matches default profile)", got[0].Listing.ID)
	}
}

func TestRecommendExcludesFavoritesAndOwnListings(t *testing.T) {
	interactions := &stubInteractions{history: []Interaction{
		{UserID: "u1", ListingID: "fav", Kind: KindFavorited},
		{UserID: "u1", ListingID: "seen", Kind: KindViewed},
	}}
	listings := &stubListings{
		byID: []models.Listing{
			{ID: "fav", Price: 250000, PropertyType: "house"},
			{ID: "seen", Price: 250000, PropertyType: "house"},
		},
		candidates: []models.Listing{
			{ID: "fav", Price: 250000, PropertyType: "house"},
			{ID: "own", Price: 250000, PropertyType: "house"},
			{ID: "seen", Price: 250000, PropertyType: "house"},
			{ID: "fresh", Price: 250000, PropertyType: "house"},
		},
		owned: []models.Listing{{ID: "own", Price: 250000, OwnerID: "u1"}},
	}
	svc := newTestService(t, nil, interactions, listings)

	got, err := svc.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}

	for _, rc := range got {
		if rc.Listing.ID == "fav" || rc.Listing.ID == "own" {
			t.Errorf("excluded listing %s present in results", rc.Listing.ID)
		}
	}

	// Viewed-but-not-favorited listings stay eligible.
	found := false
	for _, rc := range got {
		if rc.Listing.ID == "seen" {
			found = true
		}
	}
	if !found {
		t.Error("viewed listing missing from results; only favorites and owned are excluded")
	}
}

func TestRecommendLimitHandling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLimit = 2
	cfg.MaxLimit = 3

	candidates := make([]models.Listing, 6)
	for i := range candidates {
		candidates[i] = models.Listing{ID: string(rune('a' + i)), Price: 300000, PropertyType: "house"}
	}
	listings := &stubListings{candidates: candidates}
	svc := newTestService(t, cfg, &stubInteractions{}, listings)

	got, err := svc.Recommend(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(results) = %d, want default limit 2", len(got))
	}

	got, err = svc.Recommend(context.Background(), "u1", 100)
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len(results) = %d, want max limit 3", len(got))
	}
}

func TestProfileCache(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	interactions := &stubInteractions{history: []Interaction{
		{UserID: "u1", ListingID: "l1", Kind: KindFavorited},
	}}
	listings := &stubListings{
		byID: []models.Listing{{ID: "l1", Price: 250000, PropertyType: "house"}},
	}
	svc := newTestService(t, nil, interactions, listings, WithServiceClock(clock))

	if _, err := svc.Profile(context.Background(), "u1"); err != nil {
		t.Fatalf("Profile() error: %v", err)
	}
	if _, err := svc.Profile(context.Background(), "u1"); err != nil {
		t.Fatalf("Profile() error: %v", err)
	}
	if listings.byIDCalls != 1 {
		t.Errorf("byIDCalls = %d, want 1 (second call served from cache)", listings.byIDCalls)
	}
	if hits, misses := svc.CacheStats(); hits != 1 || misses != 1 {
		t.Errorf("CacheStats() = %d/%d, want 1 hit, 1 miss", hits, misses)
	}

	t.Run("invalidation forces recompute", func(t *testing.T) {
		svc.InvalidateUser("u1")
		if _, err := svc.Profile(context.Background(), "u1"); err != nil {
			t.Fatalf("Profile() error: %v", err)
		}
		if listings.byIDCalls != 2 {
			t.Errorf("byIDCalls = %d, want 2 after invalidation", listings.byIDCalls)
		}
	})

	t.Run("expiry forces recompute", func(t *testing.T) {
		now = now.Add(DefaultConfig().ProfileCacheTTL + time.Second)
		if _, err := svc.Profile(context.Background(), "u1"); err != nil {
			t.Fatalf("Profile() error: %v", err)
		}
		if listings.byIDCalls != 3 {
			t.Errorf("byIDCalls = %d, want 3 after TTL expiry", listings.byIDCalls)
		}
	})
}

func TestRecommendSourceErrors(t *testing.T) {
	boom := errors.New("connection refused")

	t.Run("interaction source", func(t *testing.T) {
		svc := newTestService(t, nil, &stubInteractions{err: boom}, &stubListings{})
		if _, err := svc.Recommend(context.Background(), "u1", 5); !errors.Is(err, boom) {
			t.Errorf("Recommend() error = %v, want wrapped source error", err)
		}
	})

	t.Run("listing source", func(t *testing.T) {
		svc := newTestService(t, nil, &stubInteractions{}, &stubListings{err: boom})
		if _, err := svc.Recommend(context.Background(), "u1", 5); !errors.Is(err, boom) {
			t.Errorf("Recommend() error = %v, want wrapped source error", err)
		}
	})
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(nil, nil, nil, zerolog.Nop()); err == nil {
		t.Error("NewService(nil sources) = nil error, want error")
	}

	cfg := DefaultConfig()
	cfg.DefaultLimit = 0
	if _, err := NewService(cfg, &stubInteractions{}, &stubListings{}, zerolog.Nop()); err == nil {
		t.Error("NewService(invalid config) = nil error, want error")
	}
}
