package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// ProgressRepository persists per-item playback progress, keyed by item id.
type ProgressRepository struct {
	db *sql.DB
}

// NewProgressRepository creates a new ProgressRepository with the given database connection
func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Get retrieves progress for an item
func (r *ProgressRepository) Get(itemID string) (*models.MediaProgress, error) {
	query := `
		SELECT item_id, current_seconds, time_listened, duration, last_played_at, updated_at
		FROM media_progress
		WHERE item_id = ?
	`

	var (
		id           string
		currentTime  float64
		timeListened float64
		duration     float64
		lastPlayedAt sql.NullTime
		updatedAt    time.Time
	)

	err := r.db.QueryRow(query, itemID).Scan(&id, &currentTime, &timeListened, &duration, &lastPlayedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: progress for %s", shared.ErrNotFound, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}

	progress := &models.MediaProgress{
		ItemID:       id,
		CurrentTime:  currentTime,
		TimeListened: timeListened,
		Duration:     duration,
		UpdatedAt:    updatedAt,
	}
	if lastPlayedAt.Valid {
		progress.LastPlayedAt = lastPlayedAt.Time
	}

	return progress, nil
}

// Save upserts progress for an item
func (r *ProgressRepository) Save(progress *models.MediaProgress) error {
	now := time.Now()
	progress.UpdatedAt = now

	query := `
		INSERT INTO media_progress (item_id, current_seconds, time_listened, duration, last_played_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			current_seconds = excluded.current_seconds,
			time_listened = excluded.time_listened,
			duration = excluded.duration,
			last_played_at = excluded.last_played_at,
			updated_at = excluded.updated_at
	`

	var lastPlayed any
	if !progress.LastPlayedAt.IsZero() {
		lastPlayed = progress.LastPlayedAt
	}

	_, err := r.db.Exec(query, progress.ItemID, progress.CurrentTime, progress.TimeListened, progress.Duration, lastPlayed, now)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}

	return nil
}

// ResetTimeListened zeroes the unsynced listening counter after a
// successful sync. Missing rows are a no-op.
func (r *ProgressRepository) ResetTimeListened(itemID string) error {
	_, err := r.db.Exec("UPDATE media_progress SET time_listened = 0, updated_at = ? WHERE item_id = ?", time.Now(), itemID)
	if err != nil {
		return fmt.Errorf("failed to reset listened time: %w", err)
	}
	return nil
}

// List retrieves all progress records ordered by most recently played
func (r *ProgressRepository) List() ([]*models.MediaProgress, error) {
	query := `
		SELECT item_id, current_seconds, time_listened, duration, last_played_at, updated_at
		FROM media_progress
		ORDER BY last_played_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var records []*models.MediaProgress
	for rows.Next() {
		var (
			id           string
			currentTime  float64
			timeListened float64
			duration     float64
			lastPlayedAt sql.NullTime
			updatedAt    time.Time
		)

		if err := rows.Scan(&id, &currentTime, &timeListened, &duration, &lastPlayedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}

		progress := &models.MediaProgress{
			ItemID:       id,
			CurrentTime:  currentTime,
			TimeListened: timeListened,
			Duration:     duration,
			UpdatedAt:    updatedAt,
		}
		if lastPlayedAt.Valid {
			progress.LastPlayedAt = lastPlayedAt.Time
		}
		records = append(records, progress)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}
