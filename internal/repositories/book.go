package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// BookRepository persists local library item records. Chapters are stored
// as a JSON column; they arrive as a unit from the session start response
// and are never queried individually.
type BookRepository struct {
	db *sql.DB
}

// NewBookRepository creates a new BookRepository with the given database connection
func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

// Get retrieves a book by ID
func (r *BookRepository) Get(id string) (*models.Book, error) {
	query := `
		SELECT id, title, author, duration, chapters, updated_at
		FROM books
		WHERE id = ?
	`

	var (
		bookID    string
		title     string
		author    string
		duration  float64
		chapters  string
		updatedAt time.Time
	)

	err := r.db.QueryRow(query, id).Scan(&bookID, &title, &author, &duration, &chapters, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: book %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query book: %w", err)
	}

	book := &models.Book{
		ID:        bookID,
		Title:     title,
		Author:    author,
		Duration:  duration,
		UpdatedAt: updatedAt,
	}
	if err := json.Unmarshal([]byte(chapters), &book.Chapters); err != nil {
		return nil, fmt.Errorf("failed to decode chapters: %w", err)
	}

	return book, nil
}

// Save upserts a book record
func (r *BookRepository) Save(book *models.Book) error {
	now := time.Now()
	book.UpdatedAt = now

	if book.Chapters == nil {
		book.Chapters = []models.Chapter{}
	}
	chapters, err := json.Marshal(book.Chapters)
	if err != nil {
		return fmt.Errorf("failed to encode chapters: %w", err)
	}

	query := `
		INSERT INTO books (id, title, author, duration, chapters, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			duration = excluded.duration,
			chapters = excluded.chapters,
			updated_at = excluded.updated_at
	`

	_, err = r.db.Exec(query, book.ID, book.Title, book.Author, book.Duration, string(chapters), now)
	if err != nil {
		return fmt.Errorf("failed to save book: %w", err)
	}

	return nil
}
