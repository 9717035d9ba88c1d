// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError reports which mandatory listing fields are missing or
// malformed. The risk scorer refuses to evaluate a listing that fails
// validation; callers must validate before invoking.
type ValidationError struct {
	// Fields lists the offending struct field names.
	Fields []string

	err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid listing: %s", strings.Join(e.Fields, ", "))
}

// Unwrap returns the underlying validator error.
func (e *ValidationError) Unwrap() error {
	return e.err
}

// ValidateListing checks the mandatory listing fields (price, property type,
// id, owner). Returns a *ValidationError describing every failing field, or
// nil if the listing is well-formed.
func ValidateListing(l *Listing) error {
	err := validate.Struct(l)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []string{"listing"}, err: err}
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields, err: err}
}
