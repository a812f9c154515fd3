package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"kycflow/internal/kyc/approval"
	"kycflow/internal/kyc/store"
	"kycflow/internal/platform/config"
	"kycflow/internal/platform/kafka"
	platformmetrics "kycflow/internal/platform/metrics"
	"kycflow/internal/platform/postgres"
	"kycflow/internal/platform/redis"
	audit "kycflow/pkg/platform/audit"
	"kycflow/pkg/platform/audit/publisher"
	"kycflow/pkg/platform/audit/store/failover"
	auditkafka "kycflow/pkg/platform/audit/store/kafka"
	auditmemory "kycflow/pkg/platform/audit/store/memory"
	auditpostgres "kycflow/pkg/platform/audit/store/postgres"
	"kycflow/pkg/platform/circuit"
)

// auditProbeCooldown spaces retries of an unreachable Kafka sink.
const auditProbeCooldown = 30 * time.Second

func buildStore(ctx context.Context, cfg config.Server, log *slog.Logger) (store.Store, *sql.DB, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.WithLatency(store.NewInMemoryStore(), cfg.KYC.SimulatedLatency), nil, nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Store)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := auditpostgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.InfoContext(ctx, "postgres application store ready")
		return store.WithLatency(store.NewPostgres(db), cfg.KYC.SimulatedLatency), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown KYC_STORE %q", cfg.Store.Driver)
	}
}

// scheduler pairs the approval backend with what main needs to run,
// observe and release it.
type scheduler struct {
	approval.Scheduler
	approval.Runner
	name    string
	pending func() float64
	close   func()
}

func buildScheduler(ctx context.Context, cfg config.Server, log *slog.Logger) (*scheduler, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		s := approval.NewTimerScheduler(approval.WithTimerLogger(log))
		return &scheduler{
			Scheduler: s,
			Runner:    s,
			name:      "timer",
			pending:   func() float64 { return float64(s.Pending()) },
			close:     func() {},
		}, nil
	}

	s := approval.NewRedisScheduler(client,
		approval.WithPollInterval(cfg.KYC.SchedulerPoll),
		approval.WithRedisLogger(log),
	)
	return &scheduler{
		Scheduler: s,
		Runner:    s,
		name:      "redis",
		pending:   queueDepth(s, pendingTimeout),
		close: func() { _ = client.Close() },
	}, nil
}

// pendingTimeout bounds the ZCARD issued on every metrics scrape.
const pendingTimeout = time.Second

type pendingCounter interface {
	Pending(ctx context.Context) (int64, error)
}

// queueDepth reads the queue size for the pending gauge. A slow or failed
// read reports zero rather than holding up the scrape.
func queueDepth(q pendingCounter, timeout time.Duration) func() float64 {
	return func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		n, err := q.Pending(ctx)
		if err != nil {
			return 0
		}
		return float64(n)
	}
}

// auditPublisher counts events the publisher refused so a broken sink shows
// up in metrics as well as logs.
type auditPublisher struct {
	*publisher.Publisher
	metrics *platformmetrics.Metrics
	close   func()
}

func (p *auditPublisher) Emit(ctx context.Context, event audit.Event) error {
	if err := p.Publisher.Emit(ctx, event); err != nil {
		p.metrics.IncrementAuditEmitFailure()
		return err
	}
	return nil
}

// buildAuditPublisher streams to Kafka when brokers are configured, falling
// back to a local store while the broker is unreachable. Without Kafka the
// trail lives in PostgreSQL when that is the application store, else memory.
func buildAuditPublisher(ctx context.Context, cfg config.Server, db *sql.DB, log *slog.Logger, pm *platformmetrics.Metrics) (*auditPublisher, error) {
	opts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithDropHook(pm.IncrementAuditDropped),
	}

	client, err := kafka.New(ctx, cfg.Kafka, log)
	if err != nil {
		return nil, err
	}
	var local audit.Store = auditmemory.NewInMemoryStore()
	if db != nil {
		local = auditpostgres.New(db)
	}
	if client == nil {
		pub := publisher.NewPublisher(local, opts...)
		return &auditPublisher{Publisher: pub, metrics: pm, close: pub.Close}, nil
	}

	sink := failover.New(
		auditkafka.New(client, cfg.Kafka.AuditTopic),
		local,
		circuit.New("audit-kafka", circuit.WithFailureThreshold(5), circuit.WithCooldown(auditProbeCooldown)),
		log,
	)
	pub := publisher.NewPublisher(sink, opts...)
	return &auditPublisher{
		Publisher: pub,
		metrics:   pm,
		close: func() {
			pub.Close()
			client.Close()
		},
	}, nil
}
