package dataset

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/riskterm/internal/database"
)

// SQLiteTier keeps msgpack-encoded parsed tables in the cache database
type SQLiteTier struct {
	db  *database.DB
	log zerolog.Logger
}

// NewSQLiteTier wraps an already-migrated cache database
func NewSQLiteTier(db *database.DB, log zerolog.Logger) *SQLiteTier {
	return &SQLiteTier{
		db:  db,
		log: log.With().Str("component", "dataset_cache_sqlite").Logger(),
	}
}

// Load decodes the stored table into dest when the stored fingerprint
// matches fp. It reports false for a missing or stale row.
func (t *SQLiteTier) Load(table Table, fp Fingerprint, dest interface{}) (bool, error) {
	var (
		modTime int64
		size    int64
		payload []byte
	)
	err := t.db.Conn().QueryRow(
		`SELECT mod_time_ns, size_bytes, payload FROM dataset_cache WHERE path = ? AND table_name = ?`,
		fp.Path, string(table),
	).Scan(&modTime, &size, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query cached %s: %w", table, err)
	}

	if modTime != fp.ModTime.UnixNano() || size != fp.Size {
		t.log.Debug().Str("table", string(table)).Msg("Cached table is stale")
		return false, nil
	}

	if err := msgpack.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", table, err)
	}
	return true, nil
}

// Save encodes value and replaces any previous row for the same file
func (t *SQLiteTier) Save(table Table, fp Fingerprint, value interface{}) error {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", table, err)
	}

	_, err = t.db.Conn().Exec(`
		INSERT INTO dataset_cache (path, table_name, mod_time_ns, size_bytes, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, table_name) DO UPDATE SET
			mod_time_ns = excluded.mod_time_ns,
			size_bytes = excluded.size_bytes,
			payload = excluded.payload,
			created_at = excluded.created_at`,
		fp.Path, string(table), fp.ModTime.UnixNano(), fp.Size, payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", table, err)
	}
	return nil
}

// Len returns the number of cached tables
func (t *SQLiteTier) Len() (int, error) {
	var n int
	if err := t.db.Conn().QueryRow(`SELECT COUNT(*) FROM dataset_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cached tables: %w", err)
	}
	return n, nil
}
