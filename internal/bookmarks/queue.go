// package bookmarks implements offline-tolerant bookmark mutations. Every
// mutation persists locally first and is pushed to the server
// asynchronously; a sweep retries anything that did not make it.
package bookmarks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
	"golang.org/x/time/rate"
)

const pushTimeout = 30 * time.Second

// Store is the local bookmark persistence the queue writes through.
// Implemented by [repositories.BookmarkRepository].
type Store interface {
	Upsert(bookmark *models.Bookmark) error
	Get(bookID string, time int) (*models.Bookmark, error)
	SetStatus(bookID string, time int, status models.BookmarkStatus) error
	Delete(bookID string, time int) error
	ListPending() ([]*models.Bookmark, error)
}

// RemoteAPI is the server bookmark surface.
// Implemented by [services.BookmarkService].
type RemoteAPI interface {
	Create(ctx context.Context, bookID, title string, time int) (int64, error)
	Update(ctx context.Context, bookmark models.UserBookmark) error
	Delete(ctx context.Context, bookID string, time int) error
}

// ProfileAPI fetches the authenticated user, whose payload carries the
// server-side bookmark list.
type ProfileAPI interface {
	FetchMe(ctx context.Context) (*models.User, error)
}

// SyncQueue coordinates local bookmark mutations with the server. Writes
// land locally as pending and are pushed in the background; SyncPending
// sweeps leftovers, one sweep at a time.
type SyncQueue struct {
	store   Store
	remote  RemoteAPI
	profile ProfileAPI
	logger  *log.Logger
	limiter *rate.Limiter

	mu       sync.Mutex
	sweeping bool

	wg sync.WaitGroup
}

// SyncQueueOpts contains the dependencies for a SyncQueue.
type SyncQueueOpts struct {
	Store   Store
	Remote  RemoteAPI
	Profile ProfileAPI
	Logger  *log.Logger

	// SweepPerSec caps sweep pushes per second. Zero means 5.
	SweepPerSec float64
}

// NewSyncQueue creates a SyncQueue with the provided dependencies.
func NewSyncQueue(opts SyncQueueOpts) *SyncQueue {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.SweepPerSec <= 0 {
		opts.SweepPerSec = 5
	}

	return &SyncQueue{
		store:   opts.Store,
		remote:  opts.Remote,
		profile: opts.Profile,
		logger:  opts.Logger,
		limiter: rate.NewLimiter(rate.Limit(opts.SweepPerSec), 1),
	}
}

// Create persists a bookmark locally as pending and pushes it to the
// server in the background. The local write is the source of truth; a
// failed push leaves the row failed for the next sweep.
func (q *SyncQueue) Create(bookID, title string, position int) (*models.Bookmark, error) {
	bookmark := &models.Bookmark{
		BookID: bookID,
		Time:   position,
		Title:  title,
		Status: models.BookmarkPending,
	}
	if err := q.store.Upsert(bookmark); err != nil {
		return nil, err
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.push(bookmark.BookID, bookmark.Time)
	}()

	return bookmark, nil
}

// Update retitles a bookmark locally and pushes the change through the
// update endpoint in the background. A failed push leaves the row
// failed; the sweep re-creates it, which upserts server-side.
func (q *SyncQueue) Update(bookID string, position int, title string) error {
	bookmark, err := q.store.Get(bookID, position)
	if err != nil {
		return err
	}

	bookmark.Title = title
	bookmark.Status = models.BookmarkPending
	if err := q.store.Upsert(bookmark); err != nil {
		return err
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.pushUpdate(bookID, position)
	}()

	return nil
}

// Delete removes a bookmark locally immediately and requests the server
// deletion in the background. The delete is optimistic: a failed remote
// call is logged, not resurrected, since the next full sync reconciles.
func (q *SyncQueue) Delete(bookID string, position int) error {
	if err := q.store.Delete(bookID, position); err != nil {
		return err
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()

		if err := q.remote.Delete(ctx, bookID, position); err != nil {
			q.logger.Warn("failed to delete bookmark on server", "book", bookID, "time", position, "err", err)
		}
	}()

	return nil
}

// SyncPending pushes every pending or failed bookmark to the server. At
// most one sweep runs at a time; a call made while one is in flight
// returns immediately.
func (q *SyncQueue) SyncPending(ctx context.Context) error {
	q.mu.Lock()
	if q.sweeping {
		q.mu.Unlock()
		q.logger.Debug("bookmark sweep already running")
		return nil
	}
	q.sweeping = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.sweeping = false
		q.mu.Unlock()
	}()

	pending, err := q.store.ListPending()
	if err != nil {
		return err
	}

	for _, bookmark := range pending {
		if err := q.limiter.Wait(ctx); err != nil {
			return err
		}
		q.push(bookmark.BookID, bookmark.Time)
	}

	q.logger.Debug("bookmark sweep finished", "count", len(pending))
	return nil
}

// SyncFromAPI replaces local bookmark knowledge for the authenticated
// user with the server's list. Remote rows upsert onto the (book, time)
// key as synced; local pending rows are left alone for the next sweep.
func (q *SyncQueue) SyncFromAPI(ctx context.Context) error {
	user, err := q.profile.FetchMe(ctx)
	if err != nil {
		return err
	}

	for _, remote := range user.Bookmarks {
		existing, err := q.store.Get(remote.LibraryItemID, remote.Time)
		if err == nil && existing.Status != models.BookmarkSynced {
			continue
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		bookmark := &models.Bookmark{
			BookID:    remote.LibraryItemID,
			Time:      remote.Time,
			Title:     remote.Title,
			Status:    models.BookmarkSynced,
			CreatedAt: time.UnixMilli(remote.CreatedAt),
		}
		if err := q.store.Upsert(bookmark); err != nil {
			return err
		}
	}

	q.logger.Info("bookmarks synced from server", "count", len(user.Bookmarks))
	return nil
}

// Flush blocks until every background push launched so far has finished.
func (q *SyncQueue) Flush() {
	q.wg.Wait()
}

// push sends one bookmark to the server and records the outcome. A row
// deleted while the push was queued is skipped.
func (q *SyncQueue) push(bookID string, position int) {
	bookmark, err := q.store.Get(bookID, position)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			q.logger.Error("failed to load bookmark for push", "book", bookID, "time", position, "err", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	createdAt, err := q.remote.Create(ctx, bookmark.BookID, bookmark.Title, bookmark.Time)
	if err != nil {
		q.logger.Warn("failed to push bookmark", "book", bookID, "time", position, "err", err)
		if err := q.store.SetStatus(bookID, position, models.BookmarkFailed); err != nil {
			q.logger.Error("failed to mark bookmark failed", "book", bookID, "time", position, "err", err)
		}
		return
	}

	bookmark.Status = models.BookmarkSynced
	if createdAt > 0 {
		bookmark.CreatedAt = time.UnixMilli(createdAt)
	}
	if err := q.store.Upsert(bookmark); err != nil {
		q.logger.Error("failed to mark bookmark synced", "book", bookID, "time", position, "err", err)
	}
}

// pushUpdate sends a changed bookmark through the update endpoint. Like
// push, a row deleted in the meantime is skipped and a failure leaves the
// row failed for the sweep.
func (q *SyncQueue) pushUpdate(bookID string, position int) {
	bookmark, err := q.store.Get(bookID, position)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			q.logger.Error("failed to load bookmark for push", "book", bookID, "time", position, "err", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if err := q.remote.Update(ctx, models.UserBookmark{
		LibraryItemID: bookmark.BookID,
		Time:          bookmark.Time,
		Title:         bookmark.Title,
		CreatedAt:     bookmark.CreatedAt.UnixMilli(),
	}); err != nil {
		q.logger.Warn("failed to push bookmark update", "book", bookID, "time", position, "err", err)
		if err := q.store.SetStatus(bookID, position, models.BookmarkFailed); err != nil {
			q.logger.Error("failed to mark bookmark failed", "book", bookID, "time", position, "err", err)
		}
		return
	}

	if err := q.store.SetStatus(bookID, position, models.BookmarkSynced); err != nil {
		q.logger.Error("failed to mark bookmark synced", "book", bookID, "time", position, "err", err)
	}
}
