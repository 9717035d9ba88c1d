// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package risk

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// Optional signal providers are external services (vision models, text
// classifiers). They are injected once at construction and wrapped here with
// a circuit breaker so a degraded provider cannot slow every evaluation:
// once the breaker opens, calls fail fast with ErrUnavailable and the scorer
// renormalizes without the signal.

// breakerContentAnalyzer wraps a ContentAnalyzer with a circuit breaker.
type breakerContentAnalyzer struct {
	inner   ContentAnalyzer
	breaker *gobreaker.CircuitBreaker[*ContentSignals]
}

// NewBreakerContentAnalyzer wraps inner with a circuit breaker configured
// from cfg.
func NewBreakerContentAnalyzer(inner ContentAnalyzer, cfg SignalConfig) ContentAnalyzer {
	return &breakerContentAnalyzer{
		inner:   inner,
		breaker: newBreaker[*ContentSignals](inner.Name(), cfg),
	}
}

// Name returns the wrapped provider's identifier.
func (b *breakerContentAnalyzer) Name() string {
	return b.inner.Name()
}

// AnalyzeContent delegates to the wrapped provider through the breaker.
func (b *breakerContentAnalyzer) AnalyzeContent(ctx context.Context, text string) (*ContentSignals, error) {
	res, err := b.breaker.Execute(func() (*ContentSignals, error) {
		return b.inner.AnalyzeContent(ctx, text)
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return res, nil
}

// breakerImageAnalyzer wraps an ImageAnalyzer with a circuit breaker.
type breakerImageAnalyzer struct {
	inner   ImageAnalyzer
	breaker *gobreaker.CircuitBreaker[*ImageSignals]
}

// NewBreakerImageAnalyzer wraps inner with a circuit breaker configured
// from cfg.
func NewBreakerImageAnalyzer(inner ImageAnalyzer, cfg SignalConfig) ImageAnalyzer {
	return &breakerImageAnalyzer{
		inner:   inner,
		breaker: newBreaker[*ImageSignals](inner.Name(), cfg),
	}
}

// Name returns the wrapped provider's identifier.
func (b *breakerImageAnalyzer) Name() string {
	return b.inner.Name()
}

// AnalyzeImages delegates to the wrapped provider through the breaker.
func (b *breakerImageAnalyzer) AnalyzeImages(ctx context.Context, images []string) (*ImageSignals, error) {
	res, err := b.breaker.Execute(func() (*ImageSignals, error) {
		return b.inner.AnalyzeImages(ctx, images)
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return res, nil
}

// newBreaker builds a circuit breaker for a signal provider.
func newBreaker[T any](name string, cfg SignalConfig) *gobreaker.CircuitBreaker[T] {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	})
}

// mapBreakerErr converts breaker-open errors to the documented
// ErrUnavailable sentinel so callers see one failure mode.
func mapBreakerErr(err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("%w: circuit open", ErrUnavailable)
	}
	return err
}
