package store

import (
	"context"
	"time"

	"kycflow/internal/kyc/models"
)

// latencyStore delays every call to mimic a remote backend.
type latencyStore struct {
	next  Store
	delay time.Duration
}

// WithLatency wraps next so each call waits d first. A zero d returns next
// unchanged.
func WithLatency(next Store, d time.Duration) Store {
	if d <= 0 {
		return next
	}
	return &latencyStore{next: next, delay: d}
}

func (s *latencyStore) wait(ctx context.Context) error {
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *latencyStore) Create(ctx context.Context, app *models.Application) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.next.Create(ctx, app)
}

func (s *latencyStore) FindByID(ctx context.Context, id models.ApplicationID) (*models.Application, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.next.FindByID(ctx, id)
}

func (s *latencyStore) Update(ctx context.Context, app *models.Application) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.next.Update(ctx, app)
}

func (s *latencyStore) RunInTx(ctx context.Context, id models.ApplicationID, fn func(Store) error) error {
	return s.next.RunInTx(ctx, id, func(tx Store) error {
		return fn(&latencyStore{next: tx, delay: s.delay})
	})
}
