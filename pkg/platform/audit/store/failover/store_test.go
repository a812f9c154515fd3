package failover

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "kycflow/pkg/platform/audit"
	"kycflow/pkg/platform/audit/store/memory"
	"kycflow/pkg/platform/circuit"
)

type flakyStore struct {
	err   error
	calls int
	*memory.InMemoryStore
}

func (f *flakyStore) Append(ctx context.Context, event audit.Event) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return f.InMemoryStore.Append(ctx, event)
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{InMemoryStore: memory.NewInMemoryStore()}
	fallback := memory.NewInMemoryStore()
	breaker := circuit.New("audit", circuit.WithFailureThreshold(2), circuit.WithCooldown(0))
	store := New(primary, fallback, breaker, nil)
	event := audit.Event{ApplicationID: "app-1", Action: string(audit.EventApplicationStarted)}

	t.Run("healthy primary receives events", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, event))
		events, _ := primary.ListByApplication(ctx, "app-1")
		assert.Len(t, events, 1)
	})

	t.Run("failures divert to fallback and open the circuit", func(t *testing.T) {
		primary.err = errors.New("broker unavailable")
		require.NoError(t, store.Append(ctx, event))
		require.NoError(t, store.Append(ctx, event))

		events, _ := fallback.ListByApplication(ctx, "app-1")
		assert.Len(t, events, 2)
		assert.True(t, breaker.IsOpen())
	})

	t.Run("successful probe closes the circuit", func(t *testing.T) {
		primary.err = nil
		require.NoError(t, store.Append(ctx, event))
		assert.False(t, breaker.IsOpen())
		events, _ := primary.ListByApplication(ctx, "app-1")
		assert.Len(t, events, 2)
	})
}

func TestAppendSkipsPrimaryDuringCooldown(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{err: errors.New("down"), InMemoryStore: memory.NewInMemoryStore()}
	fallback := memory.NewInMemoryStore()
	store := New(primary, fallback, circuit.New("audit", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour)), nil)

	for range 3 {
		require.NoError(t, store.Append(ctx, audit.Event{ApplicationID: "app-2"}))
	}
	assert.Equal(t, 1, primary.calls)
	events, _ := fallback.ListByApplication(ctx, "app-2")
	assert.Len(t, events, 3)
}
