package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// fakeConnectionSource is an in-memory ConnectionSource.
type fakeConnectionSource struct {
	mu    sync.Mutex
	conns map[string]*models.Connection
	saved []models.Credentials
}

func newFakeConnectionSource(conns ...*models.Connection) *fakeConnectionSource {
	source := &fakeConnectionSource{conns: make(map[string]*models.Connection)}
	for _, conn := range conns {
		source.conns[conn.ID] = conn
	}
	return source
}

func (f *fakeConnectionSource) Lookup(id string) *models.Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[id]
	if !ok {
		return nil
	}
	copied := *conn
	return &copied
}

func (f *fakeConnectionSource) UpdateCredentials(id string, creds models.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conn, ok := f.conns[id]; ok {
		conn.Credentials = creds
	}
	f.saved = append(f.saved, creds)
	return nil
}

// fakeRefresher counts refresh calls and can be made slow or failing.
type fakeRefresher struct {
	calls   atomic.Int64
	delay   time.Duration
	err     error
	creds   models.Credentials
	release chan struct{}
}

func (f *fakeRefresher) RefreshToken(ctx context.Context, conn *models.Connection) (models.Credentials, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return models.Credentials{}, f.err
	}
	return f.creds, nil
}

func expiringConnection(id string) *models.Connection {
	return &models.Connection{
		ID:          id,
		ServerURL:   "https://abs.example.com",
		Credentials: models.NewBearerCredentials("stale", "refresh", time.Now().Add(30*time.Second).Unix()),
	}
}

func TestCredentialCoordinator(t *testing.T) {
	t.Run("legacy credentials pass through", func(t *testing.T) {
		conn := &models.Connection{
			ID:          "conn-1",
			Credentials: models.NewLegacyCredentials("legacy-token"),
		}
		refresher := &fakeRefresher{}
		coordinator := NewCredentialCoordinator("conn-1", newFakeConnectionSource(conn), refresher)

		creds, err := coordinator.FreshCredentials(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if creds.Token != "legacy-token" {
			t.Errorf("expected legacy token, got %q", creds.Token)
		}
		if refresher.calls.Load() != 0 {
			t.Error("legacy credentials must never trigger a refresh")
		}
	})

	t.Run("valid bearer credentials pass through", func(t *testing.T) {
		conn := &models.Connection{
			ID:          "conn-1",
			Credentials: models.NewBearerCredentials("fresh", "refresh", time.Now().Add(time.Hour).Unix()),
		}
		refresher := &fakeRefresher{}
		coordinator := NewCredentialCoordinator("conn-1", newFakeConnectionSource(conn), refresher)

		creds, err := coordinator.FreshCredentials(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if creds.AccessToken != "fresh" {
			t.Errorf("expected current token, got %q", creds.AccessToken)
		}
		if refresher.calls.Load() != 0 {
			t.Error("a token far from expiry must not trigger a refresh")
		}
	})

	t.Run("missing connection", func(t *testing.T) {
		coordinator := NewCredentialCoordinator("gone", newFakeConnectionSource(), &fakeRefresher{})

		if _, err := coordinator.FreshCredentials(context.Background()); !errors.Is(err, shared.ErrNoConnection) {
			t.Errorf("expected ErrNoConnection, got %v", err)
		}
	})

	t.Run("concurrent callers share one refresh", func(t *testing.T) {
		source := newFakeConnectionSource(expiringConnection("conn-1"))
		refresher := &fakeRefresher{
			delay: 20 * time.Millisecond,
			creds: models.NewBearerCredentials("rotated", "rotated-refresh", time.Now().Add(time.Hour).Unix()),
		}
		coordinator := NewCredentialCoordinator("conn-1", source, refresher)

		const callers = 20
		var wg sync.WaitGroup
		results := make([]models.Credentials, callers)
		errs := make([]error, callers)

		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = coordinator.FreshCredentials(context.Background())
			}(i)
		}
		wg.Wait()

		if got := refresher.calls.Load(); got != 1 {
			t.Errorf("expected exactly 1 refresh call, got %d", got)
		}
		for i := 0; i < callers; i++ {
			if errs[i] != nil {
				t.Fatalf("caller %d got error: %v", i, errs[i])
			}
			if results[i].AccessToken != "rotated" {
				t.Errorf("caller %d got token %q, want rotated", i, results[i].AccessToken)
			}
		}

		source.mu.Lock()
		saved := len(source.saved)
		source.mu.Unlock()
		if saved != 1 {
			t.Errorf("expected credentials persisted once, got %d", saved)
		}
	})

	t.Run("failure reaches every waiter", func(t *testing.T) {
		source := newFakeConnectionSource(expiringConnection("conn-1"))
		refresher := &fakeRefresher{
			delay: 10 * time.Millisecond,
			err:   errors.New("server said no"),
		}
		coordinator := NewCredentialCoordinator("conn-1", source, refresher)

		const callers = 5
		var wg sync.WaitGroup
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = coordinator.FreshCredentials(context.Background())
			}(i)
		}
		wg.Wait()

		for i := 0; i < callers; i++ {
			if !errors.Is(errs[i], shared.ErrRefreshFailed) {
				t.Errorf("caller %d expected ErrRefreshFailed, got %v", i, errs[i])
			}
		}
	})

	t.Run("failure is not sticky", func(t *testing.T) {
		source := newFakeConnectionSource(expiringConnection("conn-1"))
		refresher := &fakeRefresher{err: errors.New("transient")}
		coordinator := NewCredentialCoordinator("conn-1", source, refresher)

		if _, err := coordinator.FreshCredentials(context.Background()); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}

		refresher.err = nil
		refresher.creds = models.NewBearerCredentials("rotated", "r", time.Now().Add(time.Hour).Unix())

		creds, err := coordinator.FreshCredentials(context.Background())
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if creds.AccessToken != "rotated" {
			t.Errorf("expected rotated token, got %q", creds.AccessToken)
		}
		if got := refresher.calls.Load(); got != 2 {
			t.Errorf("expected a second refresh attempt, got %d calls", got)
		}
	})

	t.Run("caller cancellation does not fail the batch", func(t *testing.T) {
		source := newFakeConnectionSource(expiringConnection("conn-1"))
		refresher := &fakeRefresher{
			release: make(chan struct{}),
			creds:   models.NewBearerCredentials("rotated", "r", time.Now().Add(time.Hour).Unix()),
		}
		coordinator := NewCredentialCoordinator("conn-1", source, refresher)

		cancelCtx, cancel := context.WithCancel(context.Background())
		cancelled := make(chan error, 1)
		go func() {
			_, err := coordinator.FreshCredentials(cancelCtx)
			cancelled <- err
		}()

		patient := make(chan models.Credentials, 1)
		go func() {
			creds, _ := coordinator.FreshCredentials(context.Background())
			patient <- creds
		}()

		// Give both callers time to join the in-flight refresh, then
		// cancel one and let the refresh finish.
		time.Sleep(10 * time.Millisecond)
		cancel()

		if err := <-cancelled; !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller expected context.Canceled, got %v", err)
		}

		close(refresher.release)

		select {
		case creds := <-patient:
			if creds.AccessToken != "rotated" {
				t.Errorf("patient caller expected rotated token, got %q", creds.AccessToken)
			}
		case <-time.After(time.Second):
			t.Fatal("patient caller never received the refresh result")
		}
	})
}
