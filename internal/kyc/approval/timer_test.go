package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycflow/internal/kyc/models"
)

type recorder struct {
	mu    sync.Mutex
	fired []models.ApplicationID
}

func (r *recorder) fire(_ context.Context, id models.ApplicationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, id)
	return nil
}

func (r *recorder) ids() []models.ApplicationID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ApplicationID(nil), r.fired...)
}

func startTimer(t *testing.T) (*TimerScheduler, *recorder) {
	t.Helper()
	s := NewTimerScheduler()
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx, rec.fire)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, rec
}

func TestTimerScheduler_FiresOnce(t *testing.T) {
	s, rec := startTimer(t)
	id := models.NewApplicationID()

	require.NoError(t, s.Schedule(context.Background(), id, time.Now().Add(20*time.Millisecond)))
	assert.Equal(t, 1, s.Pending())

	require.Eventually(t, func() bool { return len(rec.ids()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, id, rec.ids()[0])
	assert.Equal(t, 0, s.Pending())

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.ids(), 1)
}

func TestTimerScheduler_Cancel(t *testing.T) {
	s, rec := startTimer(t)
	id := models.NewApplicationID()

	require.NoError(t, s.Schedule(context.Background(), id, time.Now().Add(30*time.Millisecond)))
	require.NoError(t, s.Cancel(context.Background(), id))
	assert.Equal(t, 0, s.Pending())

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, rec.ids())
}

func TestTimerScheduler_RescheduleReplaces(t *testing.T) {
	s, rec := startTimer(t)
	id := models.NewApplicationID()

	require.NoError(t, s.Schedule(context.Background(), id, time.Now().Add(time.Hour)))
	require.NoError(t, s.Schedule(context.Background(), id, time.Now().Add(10*time.Millisecond)))
	assert.Equal(t, 1, s.Pending())

	require.Eventually(t, func() bool { return len(rec.ids()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, rec.ids(), 1)
}

func TestTimerScheduler_PastDueFiresImmediately(t *testing.T) {
	s, rec := startTimer(t)
	require.NoError(t, s.Schedule(context.Background(), models.NewApplicationID(), time.Now().Add(-time.Minute)))
	require.Eventually(t, func() bool { return len(rec.ids()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestTimerScheduler_RunStopsPendingTimers(t *testing.T) {
	s := NewTimerScheduler()
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, rec.fire) }()

	require.NoError(t, s.Schedule(context.Background(), models.NewApplicationID(), time.Now().Add(time.Hour)))
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, s.Pending())
}
