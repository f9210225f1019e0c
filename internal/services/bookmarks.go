package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/shelfsync/internal/models"
)

// BookmarkService calls the remote bookmark CRUD endpoints.
type BookmarkService struct {
	network *NetworkService
}

// NewBookmarkService creates a BookmarkService on the given network.
func NewBookmarkService(network *NetworkService) *BookmarkService {
	return &BookmarkService{network: network}
}

type bookmarkRequest struct {
	BookID string `json:"libraryItemId"`
	Title  string `json:"title"`
	Time   int    `json:"time"`
}

type createBookmarkResponse struct {
	CreatedAt int64 `json:"createdAt"` // epoch milliseconds
}

// Create creates a bookmark on the server and returns the server-assigned
// creation timestamp in epoch milliseconds.
func (s *BookmarkService) Create(ctx context.Context, bookID, title string, time int) (int64, error) {
	var resp createBookmarkResponse
	body := bookmarkRequest{BookID: bookID, Title: title, Time: time}
	if err := s.network.Send(ctx, http.MethodPost, "/bookmarks", body, &resp); err != nil {
		return 0, err
	}
	return resp.CreatedAt, nil
}

// Update replaces a bookmark's title on the server, addressed by its
// (book, time) identity.
func (s *BookmarkService) Update(ctx context.Context, bookmark models.UserBookmark) error {
	body := bookmarkRequest{BookID: bookmark.LibraryItemID, Title: bookmark.Title, Time: bookmark.Time}
	return s.network.Send(ctx, http.MethodPatch, "/bookmarks", body, nil)
}

// Delete removes a bookmark from the server.
func (s *BookmarkService) Delete(ctx context.Context, bookID string, time int) error {
	body := bookmarkRequest{BookID: bookID, Time: time}
	return s.network.Send(ctx, http.MethodDelete, "/bookmarks", body, nil)
}
