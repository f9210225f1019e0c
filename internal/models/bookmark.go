package models

import "time"

// BookmarkStatus tracks a bookmark's convergence with the server.
type BookmarkStatus string

const (
	BookmarkPending BookmarkStatus = "pending"
	BookmarkSynced  BookmarkStatus = "synced"
	BookmarkFailed  BookmarkStatus = "failed"
)

// Bookmark is a locally-persisted bookmark. Identity is (BookID, Time);
// duplicate local/remote copies collapse onto that key.
type Bookmark struct {
	BookID    string
	Time      int // seconds into the book
	Title     string
	Status    BookmarkStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is the subset of the /api/me payload the client consumes.
type User struct {
	ID        string         `json:"id"`
	Username  string         `json:"username"`
	Bookmarks []UserBookmark `json:"bookmarks"`
}

// UserBookmark is the wire shape of a server-side bookmark.
type UserBookmark struct {
	LibraryItemID string `json:"libraryItemId"`
	Time          int    `json:"time"`
	Title         string `json:"title"`
	CreatedAt     int64  `json:"createdAt"` // epoch milliseconds
}
