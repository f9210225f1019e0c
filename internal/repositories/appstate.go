package repositories

import (
	"database/sql"
	"fmt"
)

// App state keys.
const (
	keyActiveConnectionID = "active_connection_id"
	keyLastSessionID      = "last_session_id"
)

// AppStateRepository is a single-row key/value store for small durable
// state: the active connection pointer and the last known session id
// (which lets a session close be attempted after a process restart).
type AppStateRepository struct {
	db *sql.DB
}

// NewAppStateRepository creates a new AppStateRepository with the given database connection
func NewAppStateRepository(db *sql.DB) *AppStateRepository {
	return &AppStateRepository{db: db}
}

// Get retrieves a state value; a missing key returns an empty string.
func (r *AppStateRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM app_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query app state: %w", err)
	}
	return value, nil
}

// Set upserts a state value
func (r *AppStateRepository) Set(key, value string) error {
	query := `
		INSERT INTO app_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := r.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to set app state: %w", err)
	}
	return nil
}

// Delete removes a state value; missing keys are a no-op.
func (r *AppStateRepository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM app_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete app state: %w", err)
	}
	return nil
}

// ActiveConnectionID returns the id of the active connection, if any.
func (r *AppStateRepository) ActiveConnectionID() (string, error) {
	return r.Get(keyActiveConnectionID)
}

// SetActiveConnectionID selects the active connection.
func (r *AppStateRepository) SetActiveConnectionID(id string) error {
	return r.Set(keyActiveConnectionID, id)
}

// ClearActiveConnectionID clears the active connection pointer.
func (r *AppStateRepository) ClearActiveConnectionID() error {
	return r.Delete(keyActiveConnectionID)
}

// LastSessionID returns the persisted id of the last opened session.
func (r *AppStateRepository) LastSessionID() (string, error) {
	return r.Get(keyLastSessionID)
}

// SetLastSessionID persists the id of the currently-open session.
func (r *AppStateRepository) SetLastSessionID(id string) error {
	return r.Set(keyLastSessionID, id)
}

// ClearLastSessionID forgets the persisted session id.
func (r *AppStateRepository) ClearLastSessionID() error {
	return r.Delete(keyLastSessionID)
}
