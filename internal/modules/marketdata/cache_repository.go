// Package marketdata serves quotes, symbol search and index levels, backed
// by an on-disk cache so short feed outages do not blank the terminal.
package marketdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// CacheRepository stores serialized quote payloads keyed by symbol.
// Payloads are msgpack blobs so the cache schema never changes when the
// quote shape does.
type CacheRepository struct {
	cacheDB *sql.DB // cache.db - quote_cache table
	log     zerolog.Logger
}

// NewCacheRepository creates a new quote cache repository
func NewCacheRepository(cacheDB *sql.DB, log zerolog.Logger) *CacheRepository {
	return &CacheRepository{
		cacheDB: cacheDB,
		log:     log.With().Str("repo", "quote_cache").Logger(),
	}
}

// Put serializes and stores a payload for a symbol, stamping it with the
// current time
func (r *CacheRepository) Put(symbol string, payload interface{}) error {
	blob, err := msgpack.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}

	query := `
		INSERT INTO quote_cache (symbol, payload, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`

	_, err = r.cacheDB.Exec(query, symbol, blob, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to store cache payload: %w", err)
	}

	return nil
}

// Get deserializes the cached payload for a symbol into dest and returns
// when it was fetched. Returns (false, zero) when nothing is cached.
func (r *CacheRepository) Get(symbol string, dest interface{}) (bool, time.Time, error) {
	var blob []byte
	var fetchedAt int64

	err := r.cacheDB.QueryRow(
		"SELECT payload, fetched_at FROM quote_cache WHERE symbol = ?", symbol,
	).Scan(&blob, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to read cache payload: %w", err)
	}

	if err := msgpack.Unmarshal(blob, dest); err != nil {
		return false, time.Time{}, fmt.Errorf("failed to unmarshal cache payload: %w", err)
	}

	return true, time.Unix(fetchedAt, 0).UTC(), nil
}

// Prune deletes cache entries older than the cutoff and returns how many
// rows were removed
func (r *CacheRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Unix()

	result, err := r.cacheDB.Exec("DELETE FROM quote_cache WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune quote cache: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}

	if removed > 0 {
		r.log.Debug().Int64("removed", removed).Msg("Pruned quote cache")
	}

	return removed, nil
}
