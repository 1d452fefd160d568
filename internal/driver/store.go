package driver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// SetupStore holds the values collected by the setup wizard.
type SetupStore interface {
	// Get returns the stored value for key. ok is false when the key is unset.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Put inserts or replaces the value for key.
	Put(ctx context.Context, key, value string) error

	// All returns every stored value.
	All(ctx context.Context) (map[string]string, error)

	// Clear removes every stored value.
	Clear(ctx context.Context) error
}

// SnapshotStore keeps the last known attributes of each entity so they can
// be restored after a restart.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, entityID string, attributes map[string]any) error
	LoadSnapshots(ctx context.Context) (map[string]map[string]any, error)
}

// SQLiteStore implements SetupStore and SnapshotStore using SQLite.
// The schema is created by the embedded migrations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves a setup value by key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM setup_values WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("querying setup value %q: %w", key, err)
	}
	return value, true, nil
}

// Put stores a setup value, replacing any previous value.
func (s *SQLiteStore) Put(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO setup_values (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, key, value, now()); err != nil {
		return fmt.Errorf("storing setup value %q: %w", key, err)
	}
	return nil
}

// All retrieves every setup value.
func (s *SQLiteStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM setup_values ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying setup values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning setup value: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating setup values: %w", err)
	}
	return values, nil
}

// Clear deletes every setup value.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM setup_values`); err != nil {
		return fmt.Errorf("clearing setup values: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the stored attributes of an entity.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, entityID string, attributes map[string]any) error {
	data, err := json.Marshal(attributes)
	if err != nil {
		return fmt.Errorf("marshalling snapshot for %s: %w", entityID, err)
	}

	query := `
		INSERT INTO entity_snapshots (entity_id, attributes, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET attributes = excluded.attributes, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, entityID, string(data), now()); err != nil {
		return fmt.Errorf("storing snapshot for %s: %w", entityID, err)
	}
	return nil
}

// LoadSnapshots returns the stored attributes keyed by entity id.
func (s *SQLiteStore) LoadSnapshots(ctx context.Context) (map[string]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity_id, attributes FROM entity_snapshots`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make(map[string]map[string]any)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		var attrs map[string]any
		if err := json.Unmarshal([]byte(data), &attrs); err != nil {
			return nil, fmt.Errorf("unmarshalling snapshot for %s: %w", id, err)
		}
		snapshots[id] = attrs
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// MemoryStore is a SetupStore that lives only as long as the process.
// It is used when the database is disabled.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements SetupStore.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Put implements SetupStore.
func (m *MemoryStore) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// All implements SetupStore.
func (m *MemoryStore) All(context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values), nil
}

// Clear implements SetupStore.
func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.values)
	return nil
}
