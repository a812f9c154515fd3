package publisher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "kycflow/pkg/platform/audit"
	"kycflow/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	appID := uuid.NewString()
	err := pub.Emit(context.Background(), audit.Event{
		ApplicationID: appID,
		Action:        string(audit.EventApplicationSubmitted),
	})
	require.NoError(t, err)

	events, err := store.ListByApplication(context.Background(), appID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	appID := uuid.NewString()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		ApplicationID: appID,
		Action:        string(audit.EventDocumentUploaded),
	}))

	require.Eventually(t, func() bool {
		events, err := store.ListByApplication(context.Background(), appID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	appID := uuid.NewString()
	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			ApplicationID: appID,
			Action:        string(audit.EventStepCompleted),
		}))
	}
	pub.Close()

	events, err := store.ListByApplication(context.Background(), appID)
	require.NoError(t, err)
	assert.Len(t, events, 10)

	err = pub.Emit(context.Background(), audit.Event{ApplicationID: appID})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublisher_DropsWhenBufferFull(t *testing.T) {
	blocking := &blockingStore{started: make(chan struct{}, 1), release: make(chan struct{})}
	var drops atomic.Int32
	pub := NewPublisher(blocking, WithAsyncBuffer(1), WithDropHook(func() { drops.Add(1) }))

	// the drainer takes the first event and blocks on it
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "first"}))
	<-blocking.started

	// one more fits in the buffer, the rest are dropped
	for range 4 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "next"}))
	}
	close(blocking.release)
	pub.Close()

	assert.Equal(t, int32(3), drops.Load())
}

type blockingStore struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingStore) Append(_ context.Context, _ audit.Event) error {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return nil
}
