package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// BookmarkRepository persists bookmarks, keyed by (book_id, time).
//
// Upsert is the only write path for creation so local records and
// remote-origin sync passes converge on the same row.
type BookmarkRepository struct {
	db *sql.DB
}

// NewBookmarkRepository creates a new BookmarkRepository with the given database connection
func NewBookmarkRepository(db *sql.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// Upsert inserts a bookmark or overwrites the existing row with the same
// (book_id, time) key.
func (r *BookmarkRepository) Upsert(bookmark *models.Bookmark) error {
	now := time.Now()
	bookmark.UpdatedAt = now
	if bookmark.CreatedAt.IsZero() {
		bookmark.CreatedAt = now
	}
	if bookmark.Status == "" {
		bookmark.Status = models.BookmarkPending
	}

	query := `
		INSERT INTO bookmarks (book_id, time, title, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_id, time) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, bookmark.BookID, bookmark.Time, bookmark.Title, string(bookmark.Status), bookmark.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("failed to upsert bookmark: %w", err)
	}

	return nil
}

// Get retrieves a bookmark by its identity key
func (r *BookmarkRepository) Get(bookID string, bookmarkTime int) (*models.Bookmark, error) {
	query := `
		SELECT book_id, time, title, status, created_at, updated_at
		FROM bookmarks
		WHERE book_id = ? AND time = ?
	`

	bookmark, err := scanBookmark(r.db.QueryRow(query, bookID, bookmarkTime))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: bookmark %s@%d", shared.ErrNotFound, bookID, bookmarkTime)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmark: %w", err)
	}

	return bookmark, nil
}

// SetStatus transitions a bookmark's sync status
func (r *BookmarkRepository) SetStatus(bookID string, bookmarkTime int, status models.BookmarkStatus) error {
	result, err := r.db.Exec(
		"UPDATE bookmarks SET status = ?, updated_at = ? WHERE book_id = ? AND time = ?",
		string(status), time.Now(), bookID, bookmarkTime,
	)
	if err != nil {
		return fmt.Errorf("failed to update bookmark status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: bookmark %s@%d", shared.ErrNotFound, bookID, bookmarkTime)
	}

	return nil
}

// Delete removes a bookmark by its identity key. Deleting a missing row is
// a no-op: the optimistic-delete path may race a remote sync.
func (r *BookmarkRepository) Delete(bookID string, bookmarkTime int) error {
	_, err := r.db.Exec("DELETE FROM bookmarks WHERE book_id = ? AND time = ?", bookID, bookmarkTime)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

// ListByBook retrieves all bookmarks for a book ordered by position
func (r *BookmarkRepository) ListByBook(bookID string) ([]*models.Bookmark, error) {
	query := `
		SELECT book_id, time, title, status, created_at, updated_at
		FROM bookmarks
		WHERE book_id = ?
		ORDER BY time ASC
	`
	return r.queryBookmarks(query, bookID)
}

// ListPending retrieves bookmarks awaiting a push (pending or failed)
func (r *BookmarkRepository) ListPending() ([]*models.Bookmark, error) {
	query := `
		SELECT book_id, time, title, status, created_at, updated_at
		FROM bookmarks
		WHERE status IN (?, ?)
		ORDER BY created_at ASC
	`
	return r.queryBookmarks(query, string(models.BookmarkPending), string(models.BookmarkFailed))
}

// All retrieves every bookmark, newest first
func (r *BookmarkRepository) All() ([]*models.Bookmark, error) {
	query := `
		SELECT book_id, time, title, status, created_at, updated_at
		FROM bookmarks
		ORDER BY created_at DESC
	`
	return r.queryBookmarks(query)
}

func (r *BookmarkRepository) queryBookmarks(query string, args ...any) ([]*models.Bookmark, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []*models.Bookmark
	for rows.Next() {
		bookmark, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, bookmark)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return bookmarks, nil
}

func scanBookmark(row scanner) (*models.Bookmark, error) {
	var (
		bookID       string
		bookmarkTime int
		title        string
		status       string
		createdAt    time.Time
		updatedAt    time.Time
	)

	if err := row.Scan(&bookID, &bookmarkTime, &title, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	return &models.Bookmark{
		BookID:    bookID,
		Time:      bookmarkTime,
		Title:     title,
		Status:    models.BookmarkStatus(status),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}
