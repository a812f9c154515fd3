// Package failover writes audit events to a primary sink and diverts them to
// a fallback store while the primary's circuit is open, so a broker outage
// does not lose the trail.
package failover

import (
	"context"
	"log/slog"

	audit "kycflow/pkg/platform/audit"
	"kycflow/pkg/platform/circuit"
)

type Store struct {
	primary  audit.Store
	fallback audit.Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func New(primary, fallback audit.Store, breaker *circuit.Breaker, logger *slog.Logger) *Store {
	return &Store{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if s.breaker.Allow() {
		err := s.primary.Append(ctx, event)
		if err == nil {
			if _, change := s.breaker.RecordSuccess(); change.Closed && s.logger != nil {
				s.logger.InfoContext(ctx, "audit sink recovered", "breaker", s.breaker.Name())
			}
			return nil
		}
		_, change := s.breaker.RecordFailure()
		if s.logger != nil {
			level := slog.LevelWarn
			if change.Opened {
				level = slog.LevelError
			}
			s.logger.Log(ctx, level, "audit sink write failed, using fallback",
				"breaker", s.breaker.Name(),
				"circuit_opened", change.Opened,
				"application_id", event.ApplicationID,
				"error", err,
			)
		}
	}
	return s.fallback.Append(ctx, event)
}
