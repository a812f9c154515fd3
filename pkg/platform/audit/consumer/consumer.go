// Package consumer reads the audit trail back from the Kafka topic the audit
// sink produces to.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "kycflow/pkg/platform/audit"
)

// Fetcher is the subset of *kgo.Client used by the consumer.
type Fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
}

// Handler receives each decoded event in partition order.
type Handler func(ctx context.Context, event audit.Event) error

type Consumer struct {
	client Fetcher
	logger *slog.Logger
	idle   time.Duration
}

type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// WithIdleTimeout makes Run return once no record arrived for d.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Consumer) {
		c.idle = d
	}
}

func New(client Fetcher, opts ...Option) *Consumer {
	c := &Consumer{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until ctx is done, the client closes or the idle timeout passes.
// Records that are not audit events are logged and skipped; a handler error
// stops the run.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		pollCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.idle > 0 {
			pollCtx, cancel = context.WithTimeout(ctx, c.idle)
		}
		fetches := c.client.PollFetches(pollCtx)
		idle := pollCtx.Err() != nil
		cancel()

		if err := ctx.Err(); err != nil {
			return err
		}
		if fetches.IsClientClosed() {
			return nil
		}
		if idle && fetches.NumRecords() == 0 {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return
			}
			c.logger.WarnContext(ctx, "audit fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var handleErr error
		fetches.EachRecord(func(r *kgo.Record) {
			if handleErr != nil {
				return
			}
			var event audit.Event
			if err := json.Unmarshal(r.Value, &event); err != nil {
				c.logger.WarnContext(ctx, "skipping malformed audit record",
					"topic", r.Topic,
					"offset", r.Offset,
					"error", err,
				)
				return
			}
			handleErr = handle(ctx, event)
		})
		if handleErr != nil {
			return handleErr
		}
	}
}

// ForApplication passes through only events of one application.
func ForApplication(applicationID string, next Handler) Handler {
	return func(ctx context.Context, event audit.Event) error {
		if event.ApplicationID != applicationID {
			return nil
		}
		return next(ctx, event)
	}
}
