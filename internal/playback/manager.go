package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

const (
	// DefaultInactivityTimeout is how long playback may sit stopped before
	// the open session is closed.
	DefaultInactivityTimeout = 10 * time.Minute

	// DefaultMinSyncListened is the unsynced listening time required before
	// a progress sync is attempted.
	DefaultMinSyncListened = 20.0

	// DefaultMinSyncInterval is the minimum wall-clock gap between
	// successful syncs.
	DefaultMinSyncInterval = 10 * time.Second

	// closeTimeout bounds session closes triggered by timers.
	closeTimeout = 30 * time.Second
)

// SessionManager owns the single active remote playback session and its
// start/resume/sync/close protocol. All transitions are serialized on one
// mutex, so no two starts or closes ever interleave.
type SessionManager struct {
	sessions       SessionAPI
	progress       ProgressStore
	books          BookStore
	state          SessionStateStore
	transport      TransportInfo
	deferred       DeferredScheduler
	logger         *log.Logger
	timeout        time.Duration
	minListened    float64
	minInterval    time.Duration
	forceTranscode bool
	now            func() time.Time

	mu             sync.Mutex
	current        *models.Session
	lastSyncAt     time.Time
	countdown      *time.Timer
	deferredHandle string
}

// SessionManagerOpts contains the dependencies for a SessionManager.
type SessionManagerOpts struct {
	Sessions          SessionAPI
	Progress          ProgressStore
	Books             BookStore
	State             SessionStateStore
	Transport         TransportInfo
	Deferred          DeferredScheduler
	Logger            *log.Logger
	InactivityTimeout time.Duration
	MinSyncListened   float64
	MinSyncInterval   time.Duration
	ForceTranscode    bool
	Now               func() time.Time
}

// NewSessionManager creates a SessionManager with the provided dependencies.
func NewSessionManager(opts SessionManagerOpts) *SessionManager {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = DefaultInactivityTimeout
	}
	if opts.MinSyncListened <= 0 {
		opts.MinSyncListened = DefaultMinSyncListened
	}
	if opts.MinSyncInterval <= 0 {
		opts.MinSyncInterval = DefaultMinSyncInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &SessionManager{
		sessions:       opts.Sessions,
		progress:       opts.Progress,
		books:          opts.Books,
		state:          opts.State,
		transport:      opts.Transport,
		deferred:       opts.Deferred,
		logger:         opts.Logger,
		timeout:        opts.InactivityTimeout,
		minListened:    opts.MinSyncListened,
		minInterval:    opts.MinSyncInterval,
		forceTranscode: opts.ForceTranscode,
		now:            opts.Now,
		lastSyncAt:     opts.Now(),
	}
}

// SetDeferred installs the deferred-close scheduler after construction.
// The scheduler's handler usually points back at [SessionManager.HandleDeferredClose],
// so it cannot exist before the manager does.
func (m *SessionManager) SetDeferred(scheduler DeferredScheduler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deferred = scheduler
}

// Current returns the open session handle, if any.
func (m *SessionManager) Current() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	session := *m.current
	return &session
}

// EnsureSession returns an open session for the item, reusing the current
// one when it already covers the same item (no network call). A session
// open for a different item is dropped locally; the server closes it
// implicitly when the new one starts.
func (m *SessionManager) EnsureSession(ctx context.Context, itemID string, item *models.Book, progress *models.MediaProgress) (models.Session, *models.Book, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.ItemID == itemID {
		m.logger.Debug("reusing open session", "session", m.current.ID, "item", itemID)
		current := progress.CurrentTime
		return *m.current, item, current, nil
	}

	if m.current != nil {
		m.logger.Info("session open for different item, dropping local handle", "session", m.current.ID)
		m.current = nil
		m.cancelScheduledClose()
	}

	return m.startSession(ctx, itemID, item, progress)
}

// StartSession opens a new remote session for the item unconditionally.
func (m *SessionManager) StartSession(ctx context.Context, itemID string, item *models.Book, progress *models.MediaProgress) (models.Session, *models.Book, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startSession(ctx, itemID, item, progress)
}

// startSession performs the remote start and merges the response into the
// local record. Caller holds the lock.
func (m *SessionManager) startSession(ctx context.Context, itemID string, item *models.Book, progress *models.MediaProgress) (models.Session, *models.Book, float64, error) {
	ps, err := m.sessions.Start(ctx, itemID, m.forceTranscode)
	if err != nil {
		return models.Session{}, item, 0, err
	}

	session, err := models.NewSession(ps)
	if err != nil {
		return models.Session{}, item, 0, fmt.Errorf("%w: %v", shared.ErrFailedToCreateSession, err)
	}

	m.current = &session
	m.scheduleClose(session.ID)

	updated := item
	if item != nil {
		item.Chapters = ps.Chapters
		if ps.Duration > 0 {
			item.Duration = ps.Duration
		}
		if err := m.books.Save(item); err != nil {
			m.logger.Error("failed to update local record", "item", itemID, "err", err)
		}
	} else {
		updated = &models.Book{
			ID:       ps.LibraryItemID,
			Title:    ps.Title,
			Author:   ps.Author,
			Duration: ps.Duration,
			Chapters: ps.Chapters,
		}
		if err := m.books.Save(updated); err != nil {
			m.logger.Error("failed to create local record", "item", itemID, "err", err)
		}
	}

	if progress != nil {
		if updated != nil && updated.Duration > 0 {
			progress.Duration = updated.Duration
		}
		progress.LastPlayedAt = m.now()
		if err := m.progress.Save(progress); err != nil {
			m.logger.Error("failed to save progress", "item", itemID, "err", err)
		}
	}

	m.logger.Info("session started", "session", session.ID, "item", itemID)
	return session, updated, ps.CurrentTime, nil
}

// SyncProgress reports accumulated listening time to the server. It is a
// no-op (false) unless at least 20s of unsynced listening has accrued AND
// at least 10s have passed since the previous successful sync. On success
// the item's unsynced counter is reset; on failure it is preserved so no
// listening time is lost.
func (m *SessionManager) SyncProgress(ctx context.Context, timeListened, currentTime float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return false, shared.ErrNoActiveSession
	}

	now := m.now()
	if timeListened < m.minListened || now.Sub(m.lastSyncAt) < m.minInterval {
		return false, nil
	}

	if err := m.sessions.Sync(ctx, m.current.ID, timeListened, currentTime); err != nil {
		return false, err
	}

	m.lastSyncAt = now
	if err := m.progress.ResetTimeListened(m.current.ItemID); err != nil {
		m.logger.Error("failed to reset listened counter", "item", m.current.ItemID, "err", err)
	}

	m.scheduleClose(m.current.ID)
	return true, nil
}

// CloseSession closes the open session, resolving its id from the
// in-memory handle or, after a restart, from the persisted last session
// id. When timeListened is positive a final sync is attempted first,
// best-effort. Close failures are logged; local state is cleared
// regardless, since the server times abandoned sessions out on its own.
func (m *SessionManager) CloseSession(ctx context.Context, timeListened, currentTime float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessionID := ""
	if m.current != nil {
		sessionID = m.current.ID
	} else if id, err := m.state.LastSessionID(); err == nil {
		sessionID = id
	}

	if sessionID == "" {
		m.logger.Debug("no session to close")
		return
	}

	if timeListened > 0 {
		if err := m.sessions.Sync(ctx, sessionID, timeListened, currentTime); err != nil {
			m.logger.Warn("failed to sync before close", "session", sessionID, "err", err)
		} else if m.current != nil {
			// the counter lives on the item, unknown for an orphaned id
			if err := m.progress.ResetTimeListened(m.current.ItemID); err != nil {
				m.logger.Error("failed to reset listened counter", "item", m.current.ItemID, "err", err)
			}
		}
	}

	if err := m.sessions.Close(ctx, sessionID); err != nil {
		m.logger.Warn("failed to close session", "session", sessionID, "err", err)
	} else {
		m.logger.Info("session closed", "session", sessionID)
	}

	m.current = nil
	m.stopCountdown()
	m.cancelScheduledClose()
}

// ClearSession drops the local session handle and every scheduled closure
// without a remote call. Used by app-level cleanup such as logout.
func (m *SessionManager) ClearSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.stopCountdown()
	m.cancelScheduledClose()
}

// NotifyPlaybackStarted cancels the inactivity countdown. Idempotent;
// driven by the playback-rate observer.
func (m *SessionManager) NotifyPlaybackStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCountdown()
}

// NotifyPlaybackStopped (re)arms the inactivity countdown. When it fires
// the transport state is re-checked: playback may have resumed without
// the timer being cancelled in time.
func (m *SessionManager) NotifyPlaybackStopped() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopCountdown()
	if m.current == nil {
		return
	}

	m.countdown = time.AfterFunc(m.timeout, m.countdownFired)
}

// countdownFired is the in-process inactivity closure. It no-ops when
// playback resumed while the timer was pending.
func (m *SessionManager) countdownFired() {
	if m.transport != nil && m.transport.PlaybackRate() > 0 {
		m.logger.Debug("playback resumed, skipping inactivity close")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	m.logger.Info("inactivity countdown elapsed, closing session")
	m.CloseSession(ctx, 0, 0)
}

// HandleDeferredClose is the callback for the durable deferred-task
// registration. It runs in whatever process the host revives, so it
// consults the system transport state instead of assuming the in-memory
// handle survived. Returns true when the work is complete; false asks the
// host to retry with its standard backoff.
func (m *SessionManager) HandleDeferredClose(sessionID string) bool {
	if m.transport != nil && m.transport.PlaybackRate() > 0 {
		m.logger.Info("playback still active, deferring close again", "session", sessionID)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	m.logger.Info("deferred close executing", "session", sessionID)
	m.CloseSession(ctx, 0, 0)
	return true
}

// scheduleClose persists the session id and registers the deferred close.
// Registration failures are non-fatal: the persisted id still lets the
// next foreground launch close the session. Caller holds the lock.
func (m *SessionManager) scheduleClose(sessionID string) {
	if err := m.state.SetLastSessionID(sessionID); err != nil {
		m.logger.Error("failed to persist session id", "session", sessionID, "err", err)
	}

	if m.deferred == nil {
		return
	}

	if m.deferredHandle != "" {
		if err := m.deferred.Cancel(m.deferredHandle); err != nil {
			m.logger.Debug("failed to cancel deferred close", "err", err)
		}
		m.deferredHandle = ""
	}

	handle, err := m.deferred.Schedule(m.now().Add(m.timeout), sessionID)
	if err != nil {
		m.logger.Warn("deferred scheduling unavailable, session will close on next launch", "err", err)
		return
	}
	m.deferredHandle = handle
}

// cancelScheduledClose withdraws the deferred registration and forgets the
// persisted session id. Caller holds the lock.
func (m *SessionManager) cancelScheduledClose() {
	if m.deferredHandle != "" && m.deferred != nil {
		if err := m.deferred.Cancel(m.deferredHandle); err != nil {
			m.logger.Debug("failed to cancel deferred close", "err", err)
		}
		m.deferredHandle = ""
	}

	if err := m.state.ClearLastSessionID(); err != nil {
		m.logger.Error("failed to clear persisted session id", "err", err)
	}
}

// stopCountdown cancels the pending in-process countdown, if armed.
// Caller holds the lock.
func (m *SessionManager) stopCountdown() {
	if m.countdown != nil {
		m.countdown.Stop()
		m.countdown = nil
	}
}
