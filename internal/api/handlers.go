// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/estatewatch/internal/metrics"
	"github.com/tomtom215/estatewatch/internal/models"
	"github.com/tomtom215/estatewatch/internal/recommend"
	"github.com/tomtom215/estatewatch/internal/risk"
	"github.com/tomtom215/estatewatch/internal/store"
)

// MarketplaceReader resolves listings and accounts for evaluation.
type MarketplaceReader interface {
	GetListing(ctx context.Context, id string) (models.Listing, error)
	GetAccount(ctx context.Context, id string) (models.Account, error)
}

// Evaluator scores a listing for fraud risk.
type Evaluator interface {
	Evaluate(ctx context.Context, listing models.Listing, account models.Account) (*risk.Verdict, error)
}

// VerdictHistory persists and reads immutable verdict history.
type VerdictHistory interface {
	Append(v *risk.Verdict) (uint64, error)
	History(listingID string) ([]risk.Verdict, error)
}

// Recommender serves ranked recommendations and profile invalidation.
type Recommender interface {
	Recommend(ctx context.Context, userID string, limit int) ([]recommend.RankedCandidate, error)
	InvalidateUser(userID string)
}

// InteractionWriter appends interaction records.
type InteractionWriter interface {
	RecordInteraction(ctx context.Context, in recommend.Interaction) error
}

// Handler bundles the HTTP handlers and their collaborators.
type Handler struct {
	marketplace  MarketplaceReader
	evaluator    Evaluator
	verdicts     VerdictHistory
	recommender  Recommender
	interactions InteractionWriter
	logger       zerolog.Logger
}

// NewHandler creates the HTTP handler set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(marketplace MarketplaceReader, evaluator Evaluator, verdicts VerdictHistory, recommender Recommender, interactions InteractionWriter, logger zerolog.Logger) *Handler {
	return &Handler{
		marketplace:  marketplace,
		evaluator:    evaluator,
		verdicts:     verdicts,
		recommender:  recommender,
		interactions: interactions,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// EvaluateListing handles POST /api/v1/listings/{id}/evaluate: fetches the
// listing and its owner account, scores them, appends the verdict to the
// immutable history and returns it.
func (h *Handler) EvaluateListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	start := time.Now()

	listing, err := h.marketplace.GetListing(r.Context(), id)
	if err != nil {
		h.respondLookupError(w, err, "listing not found")
		return
	}
	account, err := h.marketplace.GetAccount(r.Context(), listing.OwnerID)
	if err != nil {
		h.respondLookupError(w, err, "owner account not found")
		return
	}

	verdict, err := h.evaluator.Evaluate(r.Context(), listing, account)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusUnprocessableEntity, verr.Error())
			return
		}
		h.logger.Error().Err(err).Str("listing_id", id).Msg("evaluation failed")
		respondError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	if _, err := h.verdicts.Append(verdict); err != nil {
		// History is supplementary; the verdict is still served.
		h.logger.Error().Err(err).Str("listing_id", id).Msg("failed to persist verdict")
	}

	metrics.ObserveEvaluation(string(verdict.Level), verdict.IsFraudulent, time.Since(start))
	for _, f := range verdict.Flags {
		metrics.ObserveFlag(string(f.Type), string(f.Severity))
	}

	respondJSON(w, http.StatusOK, verdict)
}

// ListVerdicts handles GET /api/v1/listings/{id}/verdicts: returns the
// listing's verdict history, oldest first.
func (h *Handler) ListVerdicts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	history, err := h.verdicts.History(id)
	if err != nil {
		h.logger.Error().Err(err).Str("listing_id", id).Msg("failed to read history")
		respondError(w, http.StatusInternalServerError, "failed to read verdict history")
		return
	}
	if history == nil {
		history = []risk.Verdict{}
	}
	respondJSON(w, http.StatusOK, history)
}

// Recommendations handles GET /api/v1/users/{id}/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	start := time.Now()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	ranked, err := h.recommender.Recommend(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("recommendation failed")
		respondError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}
	if ranked == nil {
		ranked = []recommend.RankedCandidate{}
	}

	metrics.ObserveRecommendation(time.Since(start))
	respondJSON(w, http.StatusOK, ranked)
}

// interactionRequest is the POST /api/v1/interactions payload.
type interactionRequest struct {
	UserID    string `json:"user_id"`
	ListingID string `json:"listing_id"`
	Kind      string `json:"kind"`
}

// RecordInteraction handles POST /api/v1/interactions: appends the record
// and invalidates the user's cached preference profile.
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.ListingID == "" {
		respondError(w, http.StatusBadRequest, "user_id and listing_id are required")
		return
	}
	kind := recommend.InteractionKind(req.Kind)
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "kind must be viewed or favorited")
		return
	}

	err := h.interactions.RecordInteraction(r.Context(), recommend.Interaction{
		UserID:    req.UserID,
		ListingID: req.ListingID,
		Kind:      kind,
		Timestamp: time.Now(),
	})
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to record interaction")
		respondError(w, http.StatusInternalServerError, "failed to record interaction")
		return
	}

	h.recommender.InvalidateUser(req.UserID)
	w.WriteHeader(http.StatusAccepted)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondLookupError maps store lookup failures to HTTP statuses.
func (h *Handler) respondLookupError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	h.logger.Error().Err(err).Msg("marketplace lookup failed")
	respondError(w, http.StatusInternalServerError, "marketplace lookup failed")
}
