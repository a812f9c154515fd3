// Package publisher emits audit events to a Store, either synchronously or
// through a bounded buffer drained by a background goroutine.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "kycflow/pkg/platform/audit"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

// drainTimeout bounds each store write made by the background drainer.
const drainTimeout = 5 * time.Second

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	buffer  chan audit.Event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped func()
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithAsyncBuffer makes Emit non-blocking. Events beyond size are dropped
// and reported through the drop hook.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

// WithDropHook is called once per event dropped because the buffer was full.
func WithDropHook(fn func()) Option {
	return func(p *Publisher) {
		p.dropped = fn
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit records an event, filling in the timestamp and category when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.buffer <- event:
	default:
		if p.dropped != nil {
			p.dropped()
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, event dropped",
				"action", event.Action,
				"application_id", event.ApplicationID,
			)
		}
	}
	return nil
}

// Close stops accepting events and waits for buffered ones to be written.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.buffer {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if err := p.store.Append(ctx, event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"application_id", event.ApplicationID,
				"error", err,
			)
		}
		cancel()
	}
}
