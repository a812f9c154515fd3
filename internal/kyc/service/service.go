package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kycflow/internal/kyc/documents"
	"kycflow/internal/kyc/metrics"
	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/store"
	"kycflow/pkg/attrs"
	dErrors "kycflow/pkg/domain-errors"
	audit "kycflow/pkg/platform/audit"
	"kycflow/pkg/platform/device"
	"kycflow/pkg/platform/sentinel"
	"kycflow/pkg/requestcontext"
)

// DefaultApprovalDelay is how long a submitted application waits for the
// simulated back office.
const DefaultApprovalDelay = 10 * time.Second

// Scheduler queues the deferred approval of a submitted application.
type Scheduler interface {
	Schedule(ctx context.Context, id models.ApplicationID, at time.Time) error
	Cancel(ctx context.Context, id models.ApplicationID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives applications through the onboarding steps. Every mutation
// runs inside the store's per-application transaction, so concurrent calls
// for one application apply one at a time and each either commits whole or
// leaves the stored record as it was.
type Service struct {
	store         store.Store
	tracker       *documents.Tracker
	scheduler     Scheduler
	approvalDelay time.Duration

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithApprovalDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.approvalDelay = d
		}
	}
}

// New constructs a Service.
func New(st store.Store, tracker *documents.Tracker, scheduler Scheduler, opts ...Option) *Service {
	s := &Service{
		store:         st,
		tracker:       tracker,
		scheduler:     scheduler,
		approvalDelay: DefaultApprovalDelay,
		tracer:        otel.Tracer("kycflow/internal/kyc/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates an application for the applicant in ctx.
func (s *Service) Start(ctx context.Context) (app *models.Application, err error) {
	ctx, span := s.tracer.Start(ctx, "kyc.Start")
	defer func() { endSpan(span, err) }()

	now := requestcontext.Now(ctx)
	app = models.NewApplication(models.NewApplicationID(), requestcontext.ApplicantID(ctx), now)
	if err := s.store.Create(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
	}
	span.SetAttributes(attribute.String("kyc.application_id", app.ID.String()))

	s.metrics.IncrementStarted()
	s.logAudit(ctx, app, audit.EventApplicationStarted)
	return app, nil
}

// Get returns the application if the caller may see it.
func (s *Service) Get(ctx context.Context, id models.ApplicationID) (app *models.Application, err error) {
	ctx, span := s.startSpan(ctx, "kyc.Get", id)
	defer func() { endSpan(span, err) }()

	app, err = s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if !app.OwnedBy(requestcontext.ApplicantID(ctx)) {
		return nil, errNotFound()
	}
	return app, nil
}

// ApplyPersonalInfo saves the personal step. Saving again overwrites the
// earlier record.
func (s *Service) ApplyPersonalInfo(ctx context.Context, id models.ApplicationID, info models.PersonalInfo) (*models.Application, error) {
	app, err := s.mutate(ctx, "kyc.ApplyPersonalInfo", id, func(app *models.Application, now time.Time) error {
		if err := app.CanApplyPersonalInfo(); err != nil {
			return err
		}
		if err := s.validate(models.StepPersonal, validationPersonal(info)); err != nil {
			return err
		}
		app.ApplyPersonalInfo(info, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.stepCompleted(ctx, app, models.StepPersonal)
	return app, nil
}

// RecordDocumentUpload registers a declared upload. The application moves to
// the address step when the last required document arrives.
func (s *Service) RecordDocumentUpload(ctx context.Context, id models.ApplicationID, kind models.DocumentKind, meta models.FileMeta) (*models.Application, error) {
	var completed bool
	app, err := s.mutate(ctx, "kyc.RecordDocumentUpload", id, func(app *models.Application, now time.Time) error {
		if err := app.CanChangeDocuments(); err != nil {
			return err
		}
		docs, err := s.tracker.Register(app.Documents, kind, meta, now)
		if err != nil {
			s.metrics.IncrementDocumentRejected(string(kind))
			return err
		}
		completed = !app.Documents.Complete() && docs.Complete()
		app.ApplyDocuments(docs, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, app, audit.EventDocumentUploaded, "reason", string(kind))
	if completed {
		s.stepCompleted(ctx, app, models.StepDocuments)
	}
	return app, nil
}

// RemoveDocument withdraws an upload while the application is still on the
// documents step.
func (s *Service) RemoveDocument(ctx context.Context, id models.ApplicationID, kind models.DocumentKind) (*models.Application, error) {
	app, err := s.mutate(ctx, "kyc.RemoveDocument", id, func(app *models.Application, now time.Time) error {
		if err := app.CanRemoveDocument(); err != nil {
			return err
		}
		docs, err := s.tracker.Remove(app.Documents, kind)
		if err != nil {
			return err
		}
		app.ApplyDocuments(docs, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, app, audit.EventDocumentRemoved, "reason", string(kind))
	return app, nil
}

// DocumentsComplete reports whether every required document is uploaded.
func (s *Service) DocumentsComplete(ctx context.Context, id models.ApplicationID) (bool, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return s.tracker.IsComplete(app.Documents), nil
}

// ApplyAddressInfo saves the address step.
func (s *Service) ApplyAddressInfo(ctx context.Context, id models.ApplicationID, info models.AddressInfo) (*models.Application, error) {
	app, err := s.mutate(ctx, "kyc.ApplyAddressInfo", id, func(app *models.Application, now time.Time) error {
		if err := app.CanApplyAddressInfo(); err != nil {
			return err
		}
		if err := s.validate(models.StepAddress, validationAddress(info)); err != nil {
			return err
		}
		app.ApplyAddressInfo(info, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.stepCompleted(ctx, app, models.StepAddress)
	return app, nil
}

// Submit finalizes a complete application and queues its approval. Every
// step is validated again; earlier results are not trusted.
func (s *Service) Submit(ctx context.Context, id models.ApplicationID) (*models.Application, error) {
	var scheduled bool
	app, err := s.mutate(ctx, "kyc.Submit", id, func(app *models.Application, now time.Time) error {
		if err := app.CanSubmit(); err != nil {
			return err
		}
		if res := validationApplication(app); !res.Valid {
			return dErrors.WithFields(dErrors.CodeIncompleteApplication, res.Errors)
		}
		app.ApplySubmission(now)

		// Queued before the write: an approval firing for an application
		// that never reached submitted is a no-op.
		if err := s.scheduler.Schedule(ctx, app.ID, now.Add(s.approvalDelay)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to schedule approval")
		}
		scheduled = true
		return nil
	})
	if err != nil {
		if scheduled {
			s.cancelApproval(ctx, id)
		}
		return nil, err
	}
	s.metrics.IncrementSubmitted()
	s.logAudit(ctx, app, audit.EventApplicationSubmitted, "step", string(models.StepReview))
	return app, nil
}

func (s *Service) cancelApproval(ctx context.Context, id models.ApplicationID) {
	err := s.scheduler.Cancel(context.WithoutCancel(ctx), id)
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to cancel approval after aborted submit",
			"application_id", id.String(),
			"error", err,
		)
	}
}

// Approve is the deferred back-office decision. Applications that are not
// waiting in submitted are left alone, so firing twice is harmless.
func (s *Service) Approve(ctx context.Context, id models.ApplicationID) (err error) {
	ctx, span := s.startSpan(ctx, "kyc.Approve", id)
	defer func() { endSpan(span, err) }()

	var approved *models.Application
	err = s.store.RunInTx(ctx, id, func(tx store.Store) error {
		app, err := tx.FindByID(ctx, id)
		if err != nil {
			return translateStoreError(err)
		}
		if !app.ApplyApproval(requestcontext.Now(ctx)) {
			return nil
		}
		if err := tx.Update(ctx, app); err != nil {
			return translateStoreError(err)
		}
		approved = app
		return nil
	})
	if err != nil {
		return err
	}
	if approved == nil {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "deferred approval skipped", "application_id", id.String())
		}
		return nil
	}

	s.metrics.ObserveApproval(approved.ApprovedAt.Sub(*approved.SubmittedAt))
	s.logAudit(ctx, approved, audit.EventApplicationApproved, "decision", string(models.StatusApproved))
	return nil
}

// mutate loads the caller's application under its transaction, lets apply
// change a private copy and writes it back. Nothing is written when apply
// fails.
func (s *Service) mutate(
	ctx context.Context,
	op string,
	id models.ApplicationID,
	apply func(app *models.Application, now time.Time) error,
) (result *models.Application, err error) {
	ctx, span := s.startSpan(ctx, op, id)
	defer func() { endSpan(span, err) }()

	applicantID := requestcontext.ApplicantID(ctx)
	now := requestcontext.Now(ctx)
	err = s.store.RunInTx(ctx, id, func(tx store.Store) error {
		app, err := tx.FindByID(ctx, id)
		if err != nil {
			return translateStoreError(err)
		}
		if !app.OwnedBy(applicantID) {
			return errNotFound()
		}
		if err := apply(app, now); err != nil {
			return err
		}
		if err := tx.Update(ctx, app); err != nil {
			return translateStoreError(err)
		}
		result = app
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	return result, nil
}

func (s *Service) validate(step models.Step, err error) error {
	if err != nil {
		s.metrics.IncrementValidationFailure(string(step))
	}
	return err
}

func (s *Service) stepCompleted(ctx context.Context, app *models.Application, step models.Step) {
	s.metrics.IncrementStepCompleted(string(step))
	s.logAudit(ctx, app, audit.EventStepCompleted, "step", string(step))
}

func (s *Service) logAudit(ctx context.Context, app *models.Application, event audit.AuditEvent, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if s.logger != nil {
		args := append([]any{
			"application_id", app.ID.String(),
			"applicant_id", app.ApplicantID.String(),
			"status", string(app.Status),
			"current_step", string(app.CurrentStep),
		}, attributes...)
		if requestID != "" {
			args = append(args, "request_id", requestID)
		}
		args = append(args, "event", string(event), "log_type", "audit")
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		ApplicationID: app.ID.String(),
		ApplicantID:   app.ApplicantID,
		Action:        string(event),
		Step:          attrs.ExtractString(attributes, "step"),
		Decision:      attrs.ExtractString(attributes, "decision"),
		Reason:        attrs.ExtractString(attributes, "reason"),
		RequestID:     requestID,
		ClientIP:      requestcontext.ClientIP(ctx),
		Device:        device.Describe(requestcontext.UserAgent(ctx)),
		Timestamp:     requestcontext.Now(ctx),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"application_id", app.ID.String(),
			"error", err,
		)
	}
}

func (s *Service) startSpan(ctx context.Context, name string, id models.ApplicationID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("kyc.application_id", id.String()),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func errNotFound() error {
	return dErrors.New(dErrors.CodeNotFound, "application not found")
}

func translateStoreError(err error) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return errNotFound()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "application store timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "application store failed")
	}
}
