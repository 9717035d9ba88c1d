// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

// Package api exposes the engine over HTTP: listing evaluation, verdict
// history and recommendations, with health and metrics endpoints.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/estatewatch/internal/logging"
)

// errorResponse is the uniform error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Err(err).Msg("failed to encode response")
	}
}

// respondError writes a JSON error payload.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
