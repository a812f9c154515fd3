package approval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"kycflow/internal/kyc/models"
)

// TimerScheduler keeps pending approvals in process memory. Pending work is
// lost on restart; use RedisScheduler when that matters.
type TimerScheduler struct {
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	timers map[models.ApplicationID]*time.Timer
	due    chan models.ApplicationID
	done   chan struct{}
}

type TimerOption func(*TimerScheduler)

func WithTimerLogger(logger *slog.Logger) TimerOption {
	return func(s *TimerScheduler) {
		s.logger = logger
	}
}

func NewTimerScheduler(opts ...TimerOption) *TimerScheduler {
	s := &TimerScheduler{
		logger: slog.Default(),
		now:    time.Now,
		timers: make(map[models.ApplicationID]*time.Timer),
		due:    make(chan models.ApplicationID, 64),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TimerScheduler) Schedule(_ context.Context, id models.ApplicationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(at.Sub(s.now()), func() {
		s.mu.Lock()
		if s.timers[id] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()

		select {
		case s.due <- id:
		case <-s.done:
		}
	})
	s.timers[id] = t
	return nil
}

func (s *TimerScheduler) Cancel(_ context.Context, id models.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	return nil
}

// Pending reports how many approvals are waiting for their timer.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Run fires due approvals one at a time. On return every pending timer is
// stopped. Run must be called at most once.
func (s *TimerScheduler) Run(ctx context.Context, fire Action) error {
	defer s.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-s.due:
			if err := fire(ctx, id); err != nil {
				s.logger.ErrorContext(ctx, "deferred approval failed",
					"application_id", id.String(),
					"error", err,
				)
			}
		}
	}
}

func (s *TimerScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	close(s.done)
}
