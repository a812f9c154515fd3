package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pendingFunc func(ctx context.Context) (int64, error)

func (f pendingFunc) Pending(ctx context.Context) (int64, error) { return f(ctx) }

func TestQueueDepth(t *testing.T) {
	t.Run("reports the queue size", func(t *testing.T) {
		depth := queueDepth(pendingFunc(func(context.Context) (int64, error) { return 7, nil }), time.Second)
		assert.Equal(t, float64(7), depth())
	})

	t.Run("errors read as zero", func(t *testing.T) {
		depth := queueDepth(pendingFunc(func(context.Context) (int64, error) { return 0, errors.New("connection refused") }), time.Second)
		assert.Zero(t, depth())
	})

	t.Run("a hung backend is abandoned after the timeout", func(t *testing.T) {
		depth := queueDepth(pendingFunc(func(ctx context.Context) (int64, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}), 20*time.Millisecond)

		start := time.Now()
		assert.Zero(t, depth())
		assert.Less(t, time.Since(start), time.Second)
	})
}
