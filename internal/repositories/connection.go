package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// ConnectionRepository persists server connections. Credentials and custom
// headers are stored as JSON columns.
type ConnectionRepository struct {
	db *sql.DB
}

// NewConnectionRepository creates a new ConnectionRepository with the given database connection
func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Create inserts a new connection
func (r *ConnectionRepository) Create(conn *models.Connection) error {
	creds, headers, err := encodeConnection(conn)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO connections (id, server_url, credentials, custom_headers, alias, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, conn.ID, conn.ServerURL, creds, headers, conn.Alias, conn.CreatedAt, conn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert connection: %w", err)
	}

	return nil
}

// Get retrieves a connection by ID
func (r *ConnectionRepository) Get(id string) (*models.Connection, error) {
	query := `
		SELECT id, server_url, credentials, custom_headers, alias, created_at, updated_at
		FROM connections
		WHERE id = ?
	`

	conn, err := scanConnection(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: connection %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query connection: %w", err)
	}

	return conn, nil
}

// Lookup resolves a connection by id, returning nil when it no longer
// exists. This is the non-owning handle used by the credential coordinator.
func (r *ConnectionRepository) Lookup(id string) *models.Connection {
	conn, err := r.Get(id)
	if err != nil {
		return nil
	}
	return conn
}

// Update modifies an existing connection
func (r *ConnectionRepository) Update(conn *models.Connection) error {
	creds, headers, err := encodeConnection(conn)
	if err != nil {
		return err
	}

	now := time.Now()
	conn.UpdatedAt = now

	query := `
		UPDATE connections
		SET server_url = ?, credentials = ?, custom_headers = ?, alias = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, conn.ServerURL, creds, headers, conn.Alias, now, conn.ID)
	if err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: connection %s", shared.ErrNotFound, conn.ID)
	}

	return nil
}

// UpdateCredentials replaces a connection's credentials in place. Called
// by the credential coordinator after a successful refresh.
func (r *ConnectionRepository) UpdateCredentials(id string, creds models.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	result, err := r.db.Exec("UPDATE connections SET credentials = ?, updated_at = ? WHERE id = ?", string(data), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: connection %s", shared.ErrNotFound, id)
	}

	return nil
}

// Delete removes a connection by ID
func (r *ConnectionRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM connections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: connection %s", shared.ErrNotFound, id)
	}

	return nil
}

// List retrieves all stored connections ordered by creation time
func (r *ConnectionRepository) List() ([]*models.Connection, error) {
	query := `
		SELECT id, server_url, credentials, custom_headers, alias, created_at, updated_at
		FROM connections
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []*models.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return conns, nil
}

// encodeConnection marshals the JSON columns of a connection row.
func encodeConnection(conn *models.Connection) (creds string, headers string, err error) {
	credsData, err := json.Marshal(conn.Credentials)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode credentials: %w", err)
	}

	if conn.CustomHeaders == nil {
		conn.CustomHeaders = map[string]string{}
	}
	headerData, err := json.Marshal(conn.CustomHeaders)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode headers: %w", err)
	}

	return string(credsData), string(headerData), nil
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanConnection scans one connection row, decoding its JSON columns.
func scanConnection(row scanner) (*models.Connection, error) {
	var (
		id        string
		serverURL string
		credsJSON string
		headers   string
		alias     sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(&id, &serverURL, &credsJSON, &headers, &alias, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	conn := &models.Connection{
		ID:        id,
		ServerURL: serverURL,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if alias.Valid {
		conn.Alias = alias.String
	}

	if err := json.Unmarshal([]byte(credsJSON), &conn.Credentials); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	if err := json.Unmarshal([]byte(headers), &conn.CustomHeaders); err != nil {
		return nil, fmt.Errorf("failed to decode headers: %w", err)
	}

	return conn, nil
}
