// Package approval schedules the deferred back-office decision for submitted
// applications. Schedulers only decide when; the decision itself is the
// Action passed to Run.
package approval

import (
	"context"
	"time"

	"kycflow/internal/kyc/models"
)

// Action is invoked once per due application.
type Action func(ctx context.Context, id models.ApplicationID) error

// Scheduler records when an application becomes due. Scheduling an id that
// is already pending moves its due time.
type Scheduler interface {
	Schedule(ctx context.Context, id models.ApplicationID, at time.Time) error
	Cancel(ctx context.Context, id models.ApplicationID) error
}

// Runner delivers due applications to fire until ctx is done.
type Runner interface {
	Run(ctx context.Context, fire Action) error
}
