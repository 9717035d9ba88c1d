// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

// Package store implements the repository contracts the engines consume:
// a Postgres-backed marketplace reader and a Badger-backed immutable verdict
// history. The scoring and ranking logic has no storage-technology
// dependency; it sees only the interfaces defined in risk and recommend.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/tomtom215/estatewatch/internal/models"
	"github.com/tomtom215/estatewatch/internal/recommend"
	"github.com/tomtom215/estatewatch/internal/risk"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Postgres is the sqlx-backed marketplace reader. It implements
// risk.ListingSource, recommend.ListingSource and recommend.InteractionSource.
type Postgres struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// OpenPostgres connects to Postgres, verifies the connection and ensures the
// schema exists.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenPostgres(dsn string, logger zerolog.Logger) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	p := &Postgres{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) migrate() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id         TEXT        PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			verified   BOOLEAN     NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS listings (
			id            TEXT          PRIMARY KEY,
			price         NUMERIC(12,2) NOT NULL,
			property_type TEXT          NOT NULL,
			bedrooms      INT           NOT NULL DEFAULT 0,
			bathrooms     INT           NOT NULL DEFAULT 0,
			area          NUMERIC(10,2) NOT NULL DEFAULT 0,
			description   TEXT          NOT NULL DEFAULT '',
			images        TEXT[]        NOT NULL DEFAULT '{}',
			amenities     TEXT[]        NOT NULL DEFAULT '{}',
			city          TEXT          NOT NULL DEFAULT '',
			address       TEXT          NOT NULL DEFAULT '',
			owner_id      TEXT          NOT NULL REFERENCES accounts(id),
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			status        TEXT          NOT NULL DEFAULT 'pending'
		);

		CREATE TABLE IF NOT EXISTS interactions (
			user_id    TEXT        NOT NULL,
			listing_id TEXT        NOT NULL REFERENCES listings(id),
			kind       TEXT        NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_comparables
			ON listings(property_type, city, bedrooms);
		CREATE INDEX IF NOT EXISTS idx_listings_owner   ON listings(owner_id);
		CREATE INDEX IF NOT EXISTS idx_listings_address ON listings(city, address);
		CREATE INDEX IF NOT EXISTS idx_listings_price   ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_interactions_user
			ON interactions(user_id, created_at);
	`)
	return err
}

// listingRow is the Postgres projection of a listing.
type listingRow struct {
	ID           string         `db:"id"`
	Price        float64        `db:"price"`
	PropertyType string         `db:"property_type"`
	Bedrooms     int            `db:"bedrooms"`
	Bathrooms    int            `db:"bathrooms"`
	Area         float64        `db:"area"`
	Description  string         `db:"description"`
	Images       pq.StringArray `db:"images"`
	Amenities    pq.StringArray `db:"amenities"`
	City         string         `db:"city"`
	Address      string         `db:"address"`
	OwnerID      string         `db:"owner_id"`
	CreatedAt    time.Time      `db:"created_at"`
	Status       string         `db:"status"`
}

func (r *listingRow) toModel() models.Listing {
	return models.Listing{
		ID:           r.ID,
		Price:        r.Price,
		PropertyType: r.PropertyType,
		Bedrooms:     r.Bedrooms,
		Bathrooms:    r.Bathrooms,
		Area:         r.Area,
		Description:  r.Description,
		Images:       []string(r.Images),
		Amenities:    []string(r.Amenities),
		City:         r.City,
		Address:      r.Address,
		OwnerID:      r.OwnerID,
		CreatedAt:    r.CreatedAt,
		Status:       models.ModerationStatus(r.Status),
	}
}

func toModels(rows []listingRow) []models.Listing {
	out := make([]models.Listing, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out
}

const listingColumns = `id, price, property_type, bedrooms, bathrooms, area,
	description, images, amenities, city, address, owner_id, created_at, status`

// GetListing returns a listing by ID.
func (p *Postgres) GetListing(ctx context.Context, id string) (models.Listing, error) {
	var row listingRow
	err := p.db.GetContext(ctx, &row,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Listing{}, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	return row.toModel(), nil
}

// GetAccount returns an account by ID with its derived listing count.
func (p *Postgres) GetAccount(ctx context.Context, id string) (models.Account, error) {
	var row struct {
		ID           string    `db:"id"`
		CreatedAt    time.Time `db:"created_at"`
		Verified     bool      `db:"verified"`
		ListingCount int       `db:"listing_count"`
	}
	err := p.db.GetContext(ctx, &row, `
		SELECT a.id, a.created_at, a.verified,
		       (SELECT COUNT(*) FROM listings l WHERE l.owner_id = a.id) AS listing_count
		FROM accounts a WHERE a.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("get account: %w", err)
	}
	return models.Account{
		ID:           row.ID,
		CreatedAt:    row.CreatedAt,
		Verified:     row.Verified,
		ListingCount: row.ListingCount,
	}, nil
}

// FindComparables returns active listings matching the comparable criteria.
func (p *Postgres) FindComparables(ctx context.Context, criteria risk.ComparableCriteria, limit int) ([]models.Listing, error) {
	var rows []listingRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT `+listingColumns+` FROM listings
		WHERE status = 'active'
		  AND property_type = $1
		  AND city = $2
		  AND bedrooms BETWEEN $3 AND $4
		ORDER BY created_at DESC
		LIMIT $5`,
		criteria.PropertyType, criteria.City, criteria.BedroomsMin, criteria.BedroomsMax, limit)
	if err != nil {
		return nil, fmt.Errorf("find comparables: %w", err)
	}
	return toModels(rows), nil
}

// FindByOwner returns all listings owned by an account, newest first.
func (p *Postgres) FindByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	var rows []listingRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT `+listingColumns+` FROM listings
		WHERE owner_id = $1
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("find by owner: %w", err)
	}
	return toModels(rows), nil
}

// FindByAddress returns listings at the exact city and address.
func (p *Postgres) FindByAddress(ctx context.Context, city, address string) ([]models.Listing, error) {
	var rows []listingRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT `+listingColumns+` FROM listings
		WHERE city = $1 AND address = $2`, city, address)
	if err != nil {
		return nil, fmt.Errorf("find by address: %w", err)
	}
	return toModels(rows), nil
}

// FindByIDs resolves listing IDs; unknown IDs are skipped.
func (p *Postgres) FindByIDs(ctx context.Context, ids []string) ([]models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []listingRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT `+listingColumns+` FROM listings
		WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find by ids: %w", err)
	}
	return toModels(rows), nil
}

// FindCandidates returns the coarse recommendation pool: active listings
// inside the price window, restricted to the preferred types when any are
// given.
func (p *Postgres) FindCandidates(ctx context.Context, q recommend.CandidateQuery) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings
		WHERE status = 'active' AND price BETWEEN $1 AND $2`
	args := []any{q.PriceMin, q.PriceMax}

	if len(q.PropertyTypes) > 0 {
		query += ` AND property_type = ANY($3)`
		args = append(args, pq.Array(q.PropertyTypes))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, q.Limit)

	var rows []listingRow
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	return toModels(rows), nil
}

// FindInteractions returns a user's interaction history, oldest first.
func (p *Postgres) FindInteractions(ctx context.Context, userID string) ([]recommend.Interaction, error) {
	var rows []struct {
		UserID    string    `db:"user_id"`
		ListingID string    `db:"listing_id"`
		Kind      string    `db:"kind"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := p.db.SelectContext(ctx, &rows, `
		SELECT user_id, listing_id, kind, created_at FROM interactions
		WHERE user_id = $1
		ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("find interactions: %w", err)
	}

	out := make([]recommend.Interaction, len(rows))
	for i, r := range rows {
		out[i] = recommend.Interaction{
			UserID:    r.UserID,
			ListingID: r.ListingID,
			Kind:      recommend.InteractionKind(r.Kind),
			Timestamp: r.CreatedAt,
		}
	}
	return out, nil
}

// RecordInteraction appends an interaction. The interactions table is
// append-only; callers invalidate the user's cached profile afterwards.
func (p *Postgres) RecordInteraction(ctx context.Context, in recommend.Interaction) error {
	if !in.Kind.Valid() {
		return fmt.Errorf("invalid interaction kind %q", in.Kind)
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO interactions (user_id, listing_id, kind, created_at)
		VALUES ($1, $2, $3, $4)`,
		in.UserID, in.ListingID, string(in.Kind), ts)
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}
