package objectstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ObjectState is the last synced version of a remote object
type ObjectState struct {
	Key      string    `json:"key"`
	ETag     string    `json:"etag"`
	Size     int64     `json:"size"`
	SyncedAt time.Time `json:"synced_at"`
}

// StateRepository records which object versions are already on disk.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a repository over a migrated cache database
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Get returns the stored state for key. Returns nil, nil if the key was never synced.
func (r *StateRepository) Get(key string) (*ObjectState, error) {
	var (
		st       ObjectState
		syncedAt int64
	)
	err := r.db.QueryRow(
		"SELECT object_key, etag, size_bytes, synced_at FROM sync_state WHERE object_key = ?",
		key,
	).Scan(&st.Key, &st.ETag, &st.Size, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state for %s: %w", key, err)
	}
	st.SyncedAt = time.Unix(syncedAt, 0).UTC()
	return &st, nil
}

// Put upserts the state for an object
func (r *StateRepository) Put(st ObjectState) error {
	if st.SyncedAt.IsZero() {
		st.SyncedAt = time.Now()
	}
	_, err := r.db.Exec(
		"INSERT OR REPLACE INTO sync_state (object_key, etag, size_bytes, synced_at) VALUES (?, ?, ?, ?)",
		st.Key, st.ETag, st.Size, st.SyncedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store sync state for %s: %w", st.Key, err)
	}
	return nil
}

// All returns every recorded object, ordered by key
func (r *StateRepository) All() ([]ObjectState, error) {
	rows, err := r.db.Query("SELECT object_key, etag, size_bytes, synced_at FROM sync_state ORDER BY object_key")
	if err != nil {
		return nil, fmt.Errorf("failed to list sync state: %w", err)
	}
	defer rows.Close()

	var out []ObjectState
	for rows.Next() {
		var (
			st       ObjectState
			syncedAt int64
		)
		if err := rows.Scan(&st.Key, &st.ETag, &st.Size, &syncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		st.SyncedAt = time.Unix(syncedAt, 0).UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}
