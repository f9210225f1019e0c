// package playback implements the playback session lifecycle: starting and
// reusing the single remote session, throttled progress sync, and the dual
// inactivity-closure mechanisms (in-process countdown plus a durable
// deferred-task registration that survives process suspension).
package playback

import (
	"context"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
)

// SessionAPI is the remote playback-session surface the manager drives.
// Implemented by [services.SessionService].
type SessionAPI interface {
	Start(ctx context.Context, itemID string, forceTranscode bool) (*models.PlaySession, error)
	Sync(ctx context.Context, sessionID string, timeListened, currentTime float64) error
	Close(ctx context.Context, sessionID string) error
}

// ProgressStore persists per-item playback progress.
type ProgressStore interface {
	Save(progress *models.MediaProgress) error
	ResetTimeListened(itemID string) error
}

// BookStore persists local library item records.
type BookStore interface {
	Save(book *models.Book) error
}

// SessionStateStore durably records the last known session id so a close
// can still be attempted after a process restart.
type SessionStateStore interface {
	LastSessionID() (string, error)
	SetLastSessionID(id string) error
	ClearLastSessionID() error
}

// TransportInfo exposes the system-level playback transport state. The
// inactivity-closure checks consult this rather than process memory,
// which may be gone by the time a deferred task runs.
type TransportInfo interface {
	PlaybackRate() float64
}

// DeferredScheduler is the host's durable deferred-execution facility.
// Schedule registers a session-close request to run at the given time and
// returns a cancellation handle; registrations outlive the process.
type DeferredScheduler interface {
	Schedule(at time.Time, sessionID string) (handle string, err error)
	Cancel(handle string) error
}
