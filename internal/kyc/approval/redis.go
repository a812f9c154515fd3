package approval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"kycflow/internal/kyc/models"
	dErrors "kycflow/pkg/domain-errors"
)

const (
	defaultQueueKey  = "kycflow:approvals:due"
	defaultPoll      = 500 * time.Millisecond
	defaultBatchSize = 100
	retryDelay       = 5 * time.Second
)

// RedisScheduler keeps pending approvals in a sorted set scored by due time
// in unix milliseconds. Any number of processes may Run against the same
// key; ZREM decides which one claims a due entry.
type RedisScheduler struct {
	client redis.Cmdable
	key    string
	poll   time.Duration
	batch  int64
	logger *slog.Logger
	now    func() time.Time
}

type RedisOption func(*RedisScheduler)

func WithQueueKey(key string) RedisOption {
	return func(s *RedisScheduler) {
		s.key = key
	}
}

func WithPollInterval(d time.Duration) RedisOption {
	return func(s *RedisScheduler) {
		if d > 0 {
			s.poll = d
		}
	}
}

func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(s *RedisScheduler) {
		s.logger = logger
	}
}

func NewRedisScheduler(client redis.Cmdable, opts ...RedisOption) *RedisScheduler {
	s := &RedisScheduler{
		client: client,
		key:    defaultQueueKey,
		poll:   defaultPoll,
		batch:  defaultBatchSize,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisScheduler) Schedule(ctx context.Context, id models.ApplicationID, at time.Time) error {
	err := s.client.ZAdd(ctx, s.key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: id.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("schedule approval: %w", err)
	}
	return nil
}

func (s *RedisScheduler) Cancel(ctx context.Context, id models.ApplicationID) error {
	if err := s.client.ZRem(ctx, s.key, id.String()).Err(); err != nil {
		return fmt.Errorf("cancel approval: %w", err)
	}
	return nil
}

// Pending reports how many approvals are queued, due or not.
func (s *RedisScheduler) Pending(ctx context.Context) (int64, error) {
	return s.client.ZCard(ctx, s.key).Result()
}

// Run polls for due entries until ctx is done. Failed actions are queued
// again after a short delay, except when the application no longer exists.
func (s *RedisScheduler) Run(ctx context.Context, fire Action) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		if err := s.claimDue(ctx, fire); err != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "approval poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *RedisScheduler) claimDue(ctx context.Context, fire Action) error {
	members, err := s.client.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(s.now().UnixMilli(), 10),
		Count: s.batch,
	}).Result()
	if err != nil {
		return fmt.Errorf("list due approvals: %w", err)
	}

	for _, member := range members {
		removed, err := s.client.ZRem(ctx, s.key, member).Result()
		if err != nil {
			return fmt.Errorf("claim approval: %w", err)
		}
		if removed == 0 {
			continue
		}
		id, err := models.ParseApplicationID(member)
		if err != nil {
			s.logger.WarnContext(ctx, "dropping malformed approval entry", "member", member)
			continue
		}
		if err := fire(ctx, id); err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				s.logger.WarnContext(ctx, "dropping approval for unknown application", "application_id", member)
				continue
			}
			s.logger.ErrorContext(ctx, "deferred approval failed, requeueing",
				"application_id", member,
				"error", err,
			)
			if err := s.Schedule(context.WithoutCancel(ctx), id, s.now().Add(retryDelay)); err != nil {
				return err
			}
		}
	}
	return nil
}
