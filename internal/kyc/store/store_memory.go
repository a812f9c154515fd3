package store

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"kycflow/internal/kyc/models"
	dErrors "kycflow/pkg/domain-errors"
	"kycflow/pkg/platform/sentinel"
)

// numShards spreads per-application locks so unrelated applications rarely
// contend.
const numShards = 128

const defaultTxTimeout = 5 * time.Second

type InMemoryStore struct {
	mu   sync.RWMutex
	apps map[models.ApplicationID]*models.Application

	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		apps:    make(map[models.ApplicationID]*models.Application),
		timeout: defaultTxTimeout,
	}
}

func (s *InMemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.ID]; exists {
		return sentinel.ErrConflict
	}
	s.apps[app.ID] = app.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id models.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return app.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.apps[app.ID] = app.Clone()
	return nil
}

// RunInTx holds the application's shard lock for the duration of fn. fn only
// ever writes through Update, which swaps the whole record, so a failed fn
// leaves the previous record in place.
func (s *InMemoryStore) RunInTx(ctx context.Context, id models.ApplicationID, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	shard := &s.shards[shardFor(id)]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(s)
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apps)
}

func shardFor(id models.ApplicationID) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(id[:])
	return h.Sum32() % numShards
}
