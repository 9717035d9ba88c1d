// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package store

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/estatewatch/internal/risk"
)

// VerdictStore is a Badger-backed append-only verdict history. Each verdict
// is written once under a per-listing version counter and never updated;
// persisted history stays immutable even when a listing is re-evaluated.
type VerdictStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// OpenVerdictStore opens the verdict history at path. An empty path opens an
// in-memory store, used by tests and by deployments that do not persist
// history.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenVerdictStore(path string, logger zerolog.Logger) (*VerdictStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open verdict store: %w", err)
	}
	return &VerdictStore{
		db:     db,
		logger: logger.With().Str("component", "verdicts").Logger(),
	}, nil
}

// Close releases the underlying database.
func (s *VerdictStore) Close() error {
	return s.db.Close()
}

// verdictKey builds the ordered key for a listing's nth verdict. The fixed
// width keeps lexicographic and numeric ordering aligned.
func verdictKey(listingID string, version uint64) []byte {
	return []byte(fmt.Sprintf("verdict/%s/%010d", listingID, version))
}

func verdictPrefix(listingID string) []byte {
	return []byte(fmt.Sprintf("verdict/%s/", listingID))
}

// Append writes a new verdict as the next version of the listing's history
// and returns the assigned version, starting at 1.
func (s *VerdictStore) Append(v *risk.Verdict) (uint64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("marshal verdict: %w", err)
	}

	var version uint64
	err = s.db.Update(func(txn *badger.Txn) error {
		version = s.lastVersion(txn, v.ListingID) + 1
		return txn.Set(verdictKey(v.ListingID, version), data)
	})
	if err != nil {
		return 0, fmt.Errorf("append verdict: %w", err)
	}

	s.logger.Debug().
		Str("listing_id", v.ListingID).
		Uint64("version", version).
		Float64("score", v.Score).
		Msg("verdict persisted")

	return version, nil
}

// lastVersion finds the highest stored version for a listing, 0 when none.
func (s *VerdictStore) lastVersion(txn *badger.Txn, listingID string) uint64 {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := verdictPrefix(listingID)
	// Reverse iteration starts past the prefix range: 0xff sorts after any
	// version digit.
	it.Seek(append(append([]byte{}, prefix...), 0xff))
	if !it.ValidForPrefix(prefix) {
		return 0
	}

	var version uint64
	key := it.Item().Key()
	fmt.Sscanf(string(key[len(prefix):]), "%d", &version)
	return version
}

// History returns all verdicts of a listing in version order, oldest first.
// A listing with no history yields an empty slice.
func (s *VerdictStore) History(listingID string) ([]risk.Verdict, error) {
	var out []risk.Verdict
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := verdictPrefix(listingID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var v risk.Verdict
				if err := json.Unmarshal(val, &v); err != nil {
					return fmt.Errorf("unmarshal verdict %s: %w", it.Item().Key(), err)
				}
				out = append(out, v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read verdict history: %w", err)
	}
	return out, nil
}

// Latest returns the most recent verdict of a listing, or ErrNotFound when
// the listing was never evaluated.
func (s *VerdictStore) Latest(listingID string) (*risk.Verdict, error) {
	history, err := s.History(listingID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("verdicts for listing %s: %w", listingID, ErrNotFound)
	}
	return &history[len(history)-1], nil
}
