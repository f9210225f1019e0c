package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// refreshBuffer is how long before expiry a token is treated as expired.
const refreshBuffer = 60 * time.Second

// refreshTimeout bounds a background refresh call.
const refreshTimeout = 30 * time.Second

// ConnectionSource resolves a connection by id without owning it.
// Lookup returns nil once the connection has been removed, so a pending
// coordinator never extends a logged-out connection's lifetime.
type ConnectionSource interface {
	Lookup(id string) *models.Connection
	UpdateCredentials(id string, creds models.Credentials) error
}

// TokenRefresher exchanges a connection's refresh token for new credentials.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, conn *models.Connection) (models.Credentials, error)
}

// refreshCall is one in-flight refresh shared by every concurrent waiter.
type refreshCall struct {
	done  chan struct{}
	creds models.Credentials
	err   error
}

// CredentialCoordinator produces currently-valid credentials for one
// connection, refreshing at most once per expiry event. Concurrent callers
// during a refresh all await the same call and receive its result.
type CredentialCoordinator struct {
	connectionID string
	source       ConnectionSource
	refresher    TokenRefresher
	now          func() time.Time

	mu       sync.Mutex
	inflight *refreshCall
}

// NewCredentialCoordinator creates a coordinator for the given connection id.
func NewCredentialCoordinator(connectionID string, source ConnectionSource, refresher TokenRefresher) *CredentialCoordinator {
	return &CredentialCoordinator{
		connectionID: connectionID,
		source:       source,
		refresher:    refresher,
		now:          time.Now,
	}
}

// FreshCredentials returns valid credentials for the connection.
//
// Legacy credentials pass through unchanged. Bearer credentials are
// returned as-is while more than a minute from expiry; otherwise the
// caller joins (or starts) the single in-flight refresh.
func (c *CredentialCoordinator) FreshCredentials(ctx context.Context) (models.Credentials, error) {
	conn := c.source.Lookup(c.connectionID)
	if conn == nil {
		return models.Credentials{}, shared.ErrNoConnection
	}

	if !conn.Credentials.IsBearer() {
		return conn.Credentials, nil
	}

	if !conn.Credentials.ExpiresWithin(c.now(), refreshBuffer) {
		return conn.Credentials, nil
	}

	c.mu.Lock()
	call := c.inflight
	if call == nil {
		call = &refreshCall{done: make(chan struct{})}
		c.inflight = call
		go c.refresh(call)
	}
	c.mu.Unlock()

	select {
	case <-call.done:
		return call.creds, call.err
	case <-ctx.Done():
		return models.Credentials{}, ctx.Err()
	}
}

// refresh performs the underlying refresh call and fans its result out to
// all waiters. The in-flight slot is cleared before done is closed so a
// failed refresh never leaves the coordinator stuck believing one is
// pending.
func (c *CredentialCoordinator) refresh(call *refreshCall) {
	defer func() {
		c.mu.Lock()
		c.inflight = nil
		c.mu.Unlock()
		close(call.done)
	}()

	// Detached from any single waiter's context: one caller cancelling
	// must not fail the whole batch.
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	conn := c.source.Lookup(c.connectionID)
	if conn == nil {
		call.err = shared.ErrNoConnection
		return
	}

	creds, err := c.refresher.RefreshToken(ctx, conn)
	if err != nil {
		call.err = fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
		return
	}

	if err := c.source.UpdateCredentials(c.connectionID, creds); err != nil {
		call.err = fmt.Errorf("failed to store refreshed credentials: %w", err)
		return
	}

	call.creds = creds
}
