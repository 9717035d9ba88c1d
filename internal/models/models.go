// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

// Package models defines the marketplace entities the engine reads: listings,
// accounts, and the moderation status state machine. The engine never mutates
// these; ownership stays with the marketplace storage layer.
package models

import (
	"time"
)

// ModerationStatus is the lifecycle state of a listing.
//
// The engine only recommends a transition via a risk verdict; applying the
// transition is the moderation workflow's job.
type ModerationStatus string

const (
	// StatusPending is the initial state of a submitted listing.
	StatusPending ModerationStatus = "pending"

	// StatusActive means the listing is publicly visible.
	StatusActive ModerationStatus = "active"

	// StatusRejected means the listing was refused and is terminal.
	StatusRejected ModerationStatus = "rejected"

	// StatusFlagged means the listing is held for manual review.
	StatusFlagged ModerationStatus = "flagged"
)

// Valid reports whether s is a known moderation status.
func (s ModerationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected, StatusFlagged:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next. Allowed transitions:
//
//	pending → active | rejected | flagged
//	flagged → active | rejected
//
// active and rejected are terminal.
func (s ModerationStatus) CanTransitionTo(next ModerationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusActive || next == StatusRejected || next == StatusFlagged
	case StatusFlagged:
		return next == StatusActive || next == StatusRejected
	default:
		return false
	}
}

// Listing is a marketplace listing as read by the engine.
type Listing struct {
	// ID is the unique listing identifier.
	ID string `json:"id" validate:"required"`

	// Price is the asking price. Mandatory for risk scoring.
	Price float64 `json:"price" validate:"required,gt=0"`

	// PropertyType is the property category (house, apartment, ...).
	// Mandatory for risk scoring; comparables are matched on it.
	PropertyType string `json:"property_type" validate:"required"`

	// Bedrooms is the bedroom count.
	Bedrooms int `json:"bedrooms" validate:"gte=0"`

	// Bathrooms is the bathroom count.
	Bathrooms int `json:"bathrooms" validate:"gte=0"`

	// Area is the surface area in square meters.
	Area float64 `json:"area" validate:"gte=0"`

	// Description is the free-text listing description.
	Description string `json:"description"`

	// Images is the ordered sequence of image URIs.
	Images []string `json:"images"`

	// Amenities lists amenity names (Parking, WiFi, ...).
	Amenities []string `json:"amenities,omitempty"`

	// City is the listing city; comparables are matched on it.
	City string `json:"city"`

	// Address is the street address, used for duplicate detection.
	Address string `json:"address"`

	// OwnerID is the posting account's identifier.
	OwnerID string `json:"owner_id" validate:"required"`

	// CreatedAt is when the listing was submitted.
	CreatedAt time.Time `json:"created_at"`

	// Status is the current moderation status.
	Status ModerationStatus `json:"status"`
}

// Account is the posting account as read by the engine.
type Account struct {
	// ID is the unique account identifier.
	ID string `json:"id"`

	// CreatedAt is when the account was registered.
	CreatedAt time.Time `json:"created_at"`

	// Verified reports whether the account passed identity verification.
	Verified bool `json:"verified"`

	// ListingCount is the account's total number of listings.
	ListingCount int `json:"listing_count"`
}

// AgeDays returns the account age in whole days at the given instant.
func (a Account) AgeDays(now time.Time) int {
	if now.Before(a.CreatedAt) {
		return 0
	}
	return int(now.Sub(a.CreatedAt).Hours() / 24)
}
