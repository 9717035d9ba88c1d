// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package risk

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/estatewatch/internal/models"
)

// scoreEq compares composite scores with a tolerance for the weight
// renormalization arithmetic.
func scoreEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const cleanDescription = "Charming three bedroom family house with a bright living room, " +
	"renovated kitchen, quiet garden and private parking close to schools and transit."

// stubSource is an in-memory ListingSource for tests.
type stubSource struct {
	comparables  []models.Listing
	owner        []models.Listing
	address      []models.Listing
	lastCriteria ComparableCriteria
	err          error
}

func (s *stubSource) FindComparables(_ context.Context, criteria ComparableCriteria, _ int) ([]models.Listing, error) {
	s.lastCriteria = criteria
	return s.comparables, s.err
}

func (s *stubSource) FindByOwner(_ context.Context, _ string) ([]models.Listing, error) {
	return s.owner, s.err
}

func (s *stubSource) FindByAddress(_ context.Context, _, _ string) ([]models.Listing, error) {
	return s.address, s.err
}

// stubContent is a scripted ContentAnalyzer.
type stubContent struct {
	signals *ContentSignals
	err     error
	block   bool
}

func (s *stubContent) Name() string { return "stub-content" }

func (s *stubContent) AnalyzeContent(ctx context.Context, _ string) (*ContentSignals, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.signals, s.err
}

// stubImages is a scripted ImageAnalyzer.
type stubImages struct {
	signals *ImageSignals
	err     error
}

func (s *stubImages) Name() string { return "stub-images" }

func (s *stubImages) AnalyzeImages(_ context.Context, _ []string) (*ImageSignals, error) {
	return s.signals, s.err
}

func newTestScorer(t *testing.T, cfg *Config, opts ...Option) *Scorer {
	t.Helper()
	opts = append(opts, WithClock(func() time.Time { return testNow }))
	s, err := NewScorer(cfg, &stubSource{}, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewScorer() error: %v", err)
	}
	return s
}

func cleanListing() models.Listing {
	return models.Listing{
		ID:           "lst-1",
		Price:        200000,
		PropertyType: "house",
		Bedrooms:     3,
		Bathrooms:    2,
		Area:         120,
		Description:  cleanDescription,
		Images:       []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"},
		City:         "Amsterdam",
		Address:      "Keizersgracht 1",
		OwnerID:      "acc-1",
		CreatedAt:    testNow.Add(-time.Hour),
		Status:       models.StatusPending,
	}
}

func oldVerifiedAccount() models.Account {
	return models.Account{ID: "acc-1", CreatedAt: testNow.AddDate(-2, 0, 0), Verified: true, ListingCount: 2}
}

func comparablesAt(prices ...float64) []models.Listing {
	out := make([]models.Listing, len(prices))
	for i, p := range prices {
		out[i] = models.Listing{
			ID:           string(rune('A' + i)),
			Price:        p,
			PropertyType: "house",
			Bedrooms:     3,
			City:         "Amsterdam",
			OwnerID:      "other",
		}
	}
	return out
}

func TestScoreCleanListing(t *testing.T) {
	s := newTestScorer(t, nil)

	v, err := s.Score(context.Background(), EvaluateInput{
		Listing:     cleanListing(),
		Account:     oldVerifiedAccount(),
		Comparables: comparablesAt(200000, 201000, 199000, 202000, 198000),
	})
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if v.Score != 0 {
		t.Errorf("Score = %f, want 0", v.Score)
	}
	if v.Level != LevelLow || v.Recommendation != RecommendApprove {
		t.Errorf("verdict = %s/%s, want low/approve", v.Level, v.Recommendation)
	}
	if len(v.Flags) != 0 {
		t.Errorf("flags = %v, want none", v.Flags)
	}
	if v.IsFraudulent {
		t.Error("IsFraudulent = true, want false")
	}
}

func TestScoreUnderpricedListing(t *testing.T) {
	s := newTestScorer(t, nil)

	// Risky listing all around: price at half the comparable mean,
	// short description, single image, fresh unverified account with
	// eight existing listings.
	listing := cleanListing()
	listing.Price = 100000
	listing.Description = "Nice house with three bedrooms and a garden near the park."
	listing.Images = []string{"a.jpg"}

	account := models.Account{
		ID:           "acc-1",
		CreatedAt:    testNow.Add(-48 * time.Hour),
		Verified:     false,
		ListingCount: 8,
	}

	v, err := s.Score(context.Background(), EvaluateInput{
		Listing:     listing,
		Account:     account,
		Comparables: comparablesAt(200000, 210000, 195000, 205000, 198000),
	})
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	// 0.30*80 + 0.20*40 + 0.20*40 + 0.30*45 = 53.5
	if !scoreEq(v.Score, 53.5) {
		t.Errorf("Score = %f, want 53.5", v.Score)
	}
	if v.Level != LevelHigh || v.Recommendation != RecommendReview {
		t.Errorf("verdict = %s/%s, want high/review", v.Level, v.Recommendation)
	}
	if !v.HasFlag(FlagPriceAnomaly) {
		t.Fatal("missing price anomaly flag")
	}
	for _, f := range v.Flags {
		if f.Type == FlagPriceAnomaly && f.Severity != SeverityHigh {
			t.Errorf("price anomaly severity = %s, want high", f.Severity)
		}
	}
	if !v.HasFlag(FlagNewAccountVelocity) {
		t.Error("missing new account velocity flag")
	}
}

func TestScoreIdenticalComparablePrices(t *testing.T) {
	s := newTestScorer(t, nil)

	listing := cleanListing()
	listing.Price = 100000

	v, err := s.Score(context.Background(), EvaluateInput{
		Listing:     listing,
		Account:     oldVerifiedAccount(),
		Comparables: comparablesAt(300000, 300000, 300000, 300000, 300000),
	})
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	// Zero spread means no anomaly is detectable.
	if v.HasFlag(FlagPriceAnomaly) {
		t.Error("price anomaly flagged despite zero stddev")
	}
	if v.Score != 0 {
		t.Errorf("Score = %f, want 0", v.Score)
	}
}

func TestScoreInsufficientComparables(t *testing.T) {
	s := newTestScorer(t, nil)

	listing := cleanListing()
	listing.Price = 1 // Wildly off, but below minimum comparable count.

	v, err := s.Score(context.Background(), EvaluateInput{
		Listing:     listing,
		Account:     oldVerifiedAccount(),
		Comparables: comparablesAt(200000, 210000, 195000),
	})
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if v.HasFlag(FlagPriceAnomaly) {
		t.Error("price anomaly flagged with fewer than 5 comparables")
	}
}

func TestScoreValidationError(t *testing.T) {
	s := newTestScorer(t, nil)

	tests := []struct {
		name   string
		modify func(*models.Listing)
	}{
		{"missing price", func(l *models.Listing) { l.Price = 0 }},
		{"missing type", func(l *models.Listing) { l.PropertyType = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := cleanListing()
			tt.modify(&listing)

			_, err := s.Score(context.Background(), EvaluateInput{Listing: listing, Account: oldVerifiedAccount()})

			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Score() error = %v, want *models.ValidationError", err)
			}
		})
	}
}

func TestScoreDuplicateDetection(t *testing.T) {
	s := newTestScorer(t, nil)

	t.Run("same owner near-identical listing", func(t *testing.T) {
		listing := cleanListing()
		dup := cleanListing()
		dup.ID = "lst-2"
		dup.Price = listing.Price * 1.04 // Within 5%.

		v, err := s.Score(context.Background(), EvaluateInput{
			Listing:       listing,
			Account:       oldVerifiedAccount(),
			OwnerListings: []models.Listing{dup},
		})
		if err != nil {
			t.Fatalf("Score() error: %v", err)
		}

		if !v.HasFlag(FlagPossibleDuplicate) {
			t.Fatal("missing possible duplicate flag")
		}
		for _, f := range v.Flags {
			if f.Type == FlagPossibleDuplicate && f.Severity != SeverityHigh {
				t.Errorf("duplicate severity = %s, want high", f.Severity)
			}
		}
	})

	t.Run("same owner listing outside price tolerance", func(t *testing.T) {
		listing := cleanListing()
		other := cleanListing()
		other.ID = "lst-2"
		other.Price = listing.Price * 1.2

		v, err := s.Score(context.Background(), EvaluateInput{
			Listing:       listing,
			Account:       oldVerifiedAccount(),
			OwnerListings: []models.Listing{other},
		})
		if err != nil {
			t.Fatalf("Score() error: %v", err)
		}

		if v.HasFlag(FlagPossibleDuplicate) {
			t.Error("duplicate flagged outside price tolerance")
		}
	})

	t.Run("other owner at same address", func(t *testing.T) {
		listing := cleanListing()
		match := cleanListing()
		match.ID = "lst-9"
		match.OwnerID = "acc-9"

		v, err := s.Score(context.Background(), EvaluateInput{
			Listing:        listing,
			Account:        oldVerifiedAccount(),
			AddressMatches: []models.Listing{match},
		})
		if err != nil {
			t.Fatalf("Score() error: %v", err)
		}

		if !v.HasFlag(FlagPossibleDuplicate) {
			t.Error("missing possible duplicate flag for address match")
		}
	})

	t.Run("own listing at same address is not a duplicate", func(t *testing.T) {
		listing := cleanListing()

		v, err := s.Score(context.Background(), EvaluateInput{
			Listing:        listing,
			Account:        oldVerifiedAccount(),
			AddressMatches: []models.Listing{listing},
		})
		if err != nil {
			t.Fatalf("Score() error: %v", err)
		}

		if v.HasFlag(FlagPossibleDuplicate) {
			t.Error("listing matched against itself")
		}
	})
}

func TestScoreContentQuality(t *testing.T) {
	s := newTestScorer(t, nil)

	tests := []struct {
		name        string
		description string
		wantFlag    bool
		wantScore   float64 // content contribution only: 0.20 * value
	}{
		{"clean long description", cleanDescription, false, 0},
		{"empty description", "", true, 12},     // 0.20 * 60
		{"short description", "Nice house with three bedrooms and a garden near the park.", true, 8}, // 0.20 * 40
		{"spam phrase in long description", cleanDescription + " Click here for a guaranteed deal!", true, 14}, // 0.20 * 70
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := cleanListing()
			listing.Description = tt.description

			v, err := s.Score(context.Background(), EvaluateInput{
				Listing: listing,
				Account: oldVerifiedAccount(),
			})
			if err != nil {
				t.Fatalf("Score() error: %v", err)
			}

			if v.HasFlag(FlagContentQuality) != tt.wantFlag {
				t.Errorf("content flag present = %v, want %v", v.HasFlag(FlagContentQuality), tt.wantFlag)
			}
			if !scoreEq(v.Score, tt.wantScore) {
				t.Errorf("Score = %f, want %f", v.Score, tt.wantScore)
			}
		})
	}
}

func TestScoreCapsRatio(t *testing.T) {
	s := newTestScorer(t, nil)

	listing := cleanListing()
	listing.Description = "AMAZING HOUSE MUST SEE NOW BEST DEAL IN TOWN WONT LAST LONG CALL TODAY " +
		"this is the best house you will ever see in your whole life"

	v, err := s.Score(context.Background(), EvaluateInput{
		Listing: listing,
		Account: oldVerifiedAccount(),
	})
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if !v.HasFlag(FlagContentQuality) {
		t.Error("missing content quality flag for shouty description")
	}
	// 0.20 * 50
	if !scoreEq(v.Score, 10) {
		t.Errorf("Score = %f, want 10", v.Score)
	}
}

func TestScoreImageSufficiency(t *testing.T) {
	s := newTestScorer(t, nil)

	manyImages := make([]string, 21)
	for i := range manyImages {
		manyImages[i] = "img.jpg"
	}

	tests := []struct {
		name      string
		images    []string
		wantFlag  bool
		wantScore float64
	}{
		{"no images", nil, true, 16},                                        // 0.20 * 80
		{"one image", []string{"a.jpg"}, true, 8},                           // 0.20 * 40
		{"five images", []string{"a", "b", "c", "d", "e"}, false, 0},
		{"too many images", manyImages, true, 6},                            // 0.20 * 30
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := cleanListing()
			listing.Images = tt.images

			v, err := s.Score(context.Background(), EvaluateInput{
				Listing: listing,
				Account: oldVerifiedAccount(),
			})
			if err != nil {
				t.Fatalf("Score() error: %v", err)
			}

			if v.HasFlag(FlagImageCount) != tt.wantFlag {
				t.Errorf("image flag present = %v, want %v", v.HasFlag(FlagImageCount), tt.wantFlag)
			}
			if !scoreEq(v.Score, tt.wantScore) {
				t.Errorf("Score = %f, want %f", v.Score, tt.wantScore)
			}
		})
	}
}

func TestScorePartialConfidenceOnProviderFailure(t *testing.T) {
	s := newTestScorer(t, nil, WithContentAnalyzer(&stubContent{err: ErrUnavailable}))

	listing := cleanListing()
	listing.Price = 100000

	account := oldVerifiedAccount()
	account.Verified = false

	v, err := s.Score(context.Background(), EvaluateInput{
		Listing:     listing,
		Account:     account,
		Comparables: comparablesAt(200000, 210000, 195000, 205000, 198000),
	})
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if !v.PartialConfidence || !v.HasFlag(FlagPartialConfidence) {
		t.Error("expected partial confidence verdict")
	}
	if v.HasFlag(FlagContentQuality) {
		t.Error("content flag present despite omitted sub-score")
	}
	// Content weight dropped: (0.30*80 + 0.30*15) / (0.30+0.20+0.30) = 35.625.
	if !scoreEq(v.Score, 35.625) {
		t.Errorf("Score = %f, want 35.625 (renormalized)", v.Score)
	}
	if v.Level != LevelMedium || v.Recommendation != RecommendFlag {
		t.Errorf("verdict = %s/%s, want medium/flag", v.Level, v.Recommendation)
	}
}

func TestScoreProviderTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Signals.Timeout = 10 * time.Millisecond

	s := newTestScorer(t, cfg, WithContentAnalyzer(&stubContent{block: true}))

	v, err := s.Score(context.Background(), EvaluateInput{
		Listing: cleanListing(),
		Account: oldVerifiedAccount(),
	})
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if !v.PartialConfidence {
		t.Error("expected partial confidence after provider timeout")
	}
}

func TestScoreExternalSpamSignal(t *testing.T) {
	s := newTestScorer(t, nil, WithContentAnalyzer(&stubContent{
		signals: &ContentSignals{SpamScore: 0.9, CapsRatio: 0.1},
	}))

	v, err := s.Score(context.Background(), EvaluateInput{
		Listing: cleanListing(),
		Account: oldVerifiedAccount(),
	})
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if !v.HasFlag(FlagContentQuality) {
		t.Fatal("missing content flag from external spam signal")
	}
	// 0.20 * 70
	if !scoreEq(v.Score, 14) {
		t.Errorf("Score = %f, want 14", v.Score)
	}
}

func TestScoreLowImageQualitySignal(t *testing.T) {
	s := newTestScorer(t, nil, WithImageAnalyzer(&stubImages{
		signals: &ImageSignals{QualityScore: 0.1},
	}))

	v, err := s.Score(context.Background(), EvaluateInput{
		Listing: cleanListing(),
		Account: oldVerifiedAccount(),
	})
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if !v.HasFlag(FlagImageCount) {
		t.Fatal("missing image flag from external quality signal")
	}
	// 0.20 * 60
	if !scoreEq(v.Score, 12) {
		t.Errorf("Score = %f, want 12", v.Score)
	}
}

func TestScoreAlwaysInRange(t *testing.T) {
	// Deliberately out-of-range sub-score values must not escape the clamp.
	cfg := DefaultConfig()
	cfg.Price.ScoreSevere = 500
	cfg.Content.ScoreMissing = 400
	cfg.Images.ScoreNone = 900
	cfg.Account.ContributionNewAccount = 1000

	s := newTestScorer(t, cfg)

	listing := cleanListing()
	listing.Price = 100000
	listing.Description = ""
	listing.Images = nil

	v, err := s.Score(context.Background(), EvaluateInput{
		Listing: listing,
		Account: models.Account{ID: "acc-1", CreatedAt: testNow.Add(-time.Hour), ListingCount: 50},
		Comparables: comparablesAt(200000, 210000, 195000, 205000, 198000),
	})
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if v.Score < 0 || v.Score > 100 {
		t.Errorf("Score = %f, want within [0,100]", v.Score)
	}
}

func TestEvaluateFetchesThroughSource(t *testing.T) {
	source := &stubSource{
		comparables: comparablesAt(200000, 210000, 195000, 205000, 198000),
	}
	s, err := NewScorer(nil, source, zerolog.Nop(), WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("NewScorer() error: %v", err)
	}

	listing := cleanListing()
	listing.Price = 100000

	v, err := s.Evaluate(context.Background(), listing, oldVerifiedAccount())
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if !v.HasFlag(FlagPriceAnomaly) {
		t.Error("missing price anomaly flag")
	}
	if source.lastCriteria.BedroomsMin != 2 || source.lastCriteria.BedroomsMax != 4 {
		t.Errorf("bedroom criteria = [%d,%d], want [2,4]",
			source.lastCriteria.BedroomsMin, source.lastCriteria.BedroomsMax)
	}
	if source.lastCriteria.PropertyType != "house" || source.lastCriteria.City != "Amsterdam" {
		t.Errorf("criteria = %+v, want house/Amsterdam", source.lastCriteria)
	}
}

func TestEvaluateSourceError(t *testing.T) {
	source := &stubSource{err: errors.New("connection refused")}
	s, err := NewScorer(nil, source, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewScorer() error: %v", err)
	}

	if _, err := s.Evaluate(context.Background(), cleanListing(), oldVerifiedAccount()); err == nil {
		t.Error("Evaluate() = nil error, want repository error")
	}
}

func TestEvaluateRejectsInvalidListing(t *testing.T) {
	s := newTestScorer(t, nil)

	listing := cleanListing()
	listing.Price = 0

	_, err := s.Evaluate(context.Background(), listing, oldVerifiedAccount())

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Evaluate() error = %v, want *models.ValidationError", err)
	}
}
