package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "kycflow/pkg/platform/audit"
)

// scriptedFetcher returns one batch per poll, then waits for the poll
// context like a real client with nothing to deliver.
type scriptedFetcher struct {
	batches [][]*kgo.Record
}

func (f *scriptedFetcher) PollFetches(ctx context.Context) kgo.Fetches {
	if len(f.batches) == 0 {
		<-ctx.Done()
		return kgo.Fetches{{Topics: []kgo.FetchTopic{{
			Topic:      "kyc.audit",
			Partitions: []kgo.FetchPartition{{Partition: -1, Err: ctx.Err()}},
		}}}}
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      "kyc.audit",
		Partitions: []kgo.FetchPartition{{Records: batch}},
	}}}}
}

func record(t *testing.T, event audit.Event) *kgo.Record {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return &kgo.Record{Topic: "kyc.audit", Key: []byte(event.ApplicationID), Value: value}
}

func newConsumer(f Fetcher) *Consumer {
	return New(f,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIdleTimeout(20*time.Millisecond),
	)
}

func TestRunDeliversUntilIdle(t *testing.T) {
	f := &scriptedFetcher{batches: [][]*kgo.Record{
		{
			record(t, audit.Event{ApplicationID: "a", Action: string(audit.EventApplicationStarted)}),
			{Topic: "kyc.audit", Value: []byte("not json")},
		},
		{
			record(t, audit.Event{ApplicationID: "b", Action: string(audit.EventApplicationStarted)}),
			record(t, audit.Event{ApplicationID: "a", Action: string(audit.EventApplicationSubmitted)}),
		},
	}}

	var got []string
	err := newConsumer(f).Run(context.Background(), ForApplication("a", func(_ context.Context, e audit.Event) error {
		got = append(got, e.Action)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{
		string(audit.EventApplicationStarted),
		string(audit.EventApplicationSubmitted),
	}, got)
}

func TestRunStopsOnHandlerError(t *testing.T) {
	f := &scriptedFetcher{batches: [][]*kgo.Record{{
		record(t, audit.Event{ApplicationID: "a"}),
		record(t, audit.Event{ApplicationID: "a"}),
	}}}
	boom := errors.New("boom")
	calls := 0
	err := newConsumer(f).Run(context.Background(), func(context.Context, audit.Event) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(&scriptedFetcher{}).Run(ctx, func(context.Context, audit.Event) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
