package playback

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// retryDelay is how long the scheduler waits before re-running a handler
// that reported incomplete work.
const retryDelay = time.Minute

// TimerScheduler is an in-process DeferredScheduler backed by
// [time.AfterFunc]. It covers hosts without a platform deferred-task
// facility; registrations do not survive the process, which is why the
// session id is persisted separately and checked on the next launch.
type TimerScheduler struct {
	handler func(sessionID string) bool
	logger  *log.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimerScheduler creates a scheduler that invokes handler when a
// registration comes due. A handler returning false is retried after a
// fixed delay.
func NewTimerScheduler(handler func(sessionID string) bool, logger *log.Logger) *TimerScheduler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TimerScheduler{
		handler: handler,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
	}
}

// Schedule registers a deferred close for the session at the given time.
func (s *TimerScheduler) Schedule(at time.Time, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle := shared.GenerateID()
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}

	s.timers[handle] = time.AfterFunc(delay, func() {
		s.fire(handle, sessionID)
	})

	s.logger.Debug("deferred close scheduled", "handle", handle, "session", sessionID, "at", at)
	return handle, nil
}

// Cancel withdraws a registration. Unknown handles are a no-op; the
// registration may have already fired.
func (s *TimerScheduler) Cancel(handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[handle]; ok {
		timer.Stop()
		delete(s.timers, handle)
	}
	return nil
}

func (s *TimerScheduler) fire(handle, sessionID string) {
	s.mu.Lock()
	if _, ok := s.timers[handle]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.timers, handle)
	s.mu.Unlock()

	if s.handler(sessionID) {
		return
	}

	s.logger.Debug("deferred close incomplete, retrying", "session", sessionID)
	s.mu.Lock()
	s.timers[handle] = time.AfterFunc(retryDelay, func() {
		s.fire(handle, sessionID)
	})
	s.mu.Unlock()
}
