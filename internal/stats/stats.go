// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

// Package stats provides the statistical primitives used by the risk engine:
// arithmetic mean, population standard deviation, and absolute z-scores.
//
// Degenerate inputs are handled explicitly rather than producing NaN/Inf:
// an empty sequence is an error for Mean, while a zero standard deviation
// yields a z-score of 0 (no anomaly detectable, not an error).
package stats

import (
	"errors"
	"math"
)

// ErrEmptyInput is returned when a computation requires at least one value.
var ErrEmptyInput = errors.New("stats: empty input")

// Mean returns the arithmetic mean of values.
// Returns ErrEmptyInput if values is empty.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// StdDev returns the population standard deviation of values around mean.
// Returns 0 when values is empty or all values are identical.
func StdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// ZScore returns |value - mean| / std.
//
// When std is 0 the comparable set carries no spread and no anomaly is
// detectable; 0 is returned rather than an error so callers can treat the
// value as unremarkable.
func ZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return math.Abs(value-mean) / std
}
