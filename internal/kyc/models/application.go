package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "kycflow/pkg/domain-errors"
)

// ApplicationID identifies a KYC application. It is assigned at creation and
// never changes.
type ApplicationID uuid.UUID

func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

func (id ApplicationID) String() string { return uuid.UUID(id).String() }

func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseApplicationID parses a caller-supplied identifier. Malformed ids
// cannot name any stored application, so they are reported as not found.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return ApplicationID{}, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	return ApplicationID(u), nil
}

// Application is the aggregate root of the onboarding workflow.
//
// Invariants:
//   - Status only moves forward: in_progress -> submitted -> approved
//   - CurrentStep never decreases
//   - CompletionPercentage == Completion(Status, CurrentStep), never set directly
//   - Status != in_progress implies PersonalInfo, a complete Documents set and
//     AddressInfo are all present
//   - CreatedAt is immutable; SubmittedAt and ApprovedAt are written once
//
// Mutation goes through the Apply* methods; each either fully applies or
// returns an error without touching the receiver.
type Application struct {
	ID                   ApplicationID
	ApplicantID          uuid.UUID
	Status               Status
	CurrentStep          Step
	PersonalInfo         *PersonalInfo
	Documents            DocumentSet
	AddressInfo          *AddressInfo
	CompletionPercentage int
	CreatedAt            time.Time
	UpdatedAt            time.Time
	SubmittedAt          *time.Time
	ApprovedAt           *time.Time
}

// NewApplication returns an application in its initial state.
func NewApplication(id ApplicationID, applicantID uuid.UUID, now time.Time) *Application {
	return &Application{
		ID:                   id,
		ApplicantID:          applicantID,
		Status:               StatusInProgress,
		CurrentStep:          StepPersonal,
		Documents:            DocumentSet{},
		CompletionPercentage: Completion(StatusInProgress, StepPersonal),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	c := *a
	if a.PersonalInfo != nil {
		p := *a.PersonalInfo
		c.PersonalInfo = &p
	}
	if a.AddressInfo != nil {
		addr := *a.AddressInfo
		c.AddressInfo = &addr
	}
	c.Documents = a.Documents.Clone()
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		c.SubmittedAt = &t
	}
	if a.ApprovedAt != nil {
		t := *a.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}

// OwnedBy reports whether applicantID may see this application. Internal
// callers pass uuid.Nil.
func (a *Application) OwnedBy(applicantID uuid.UUID) bool {
	return applicantID == uuid.Nil || a.ApplicantID == uuid.Nil || a.ApplicantID == applicantID
}

func (a *Application) requireInProgress() error {
	if a.Status != StatusInProgress {
		return dErrors.New(dErrors.CodeInvalidState, "application is "+string(a.Status)+" and can no longer be changed")
	}
	return nil
}

func (a *Application) requireStep(step Step) error {
	if !a.CurrentStep.AtLeast(step) {
		return dErrors.New(dErrors.CodeInvalidState, "step "+string(step)+" is not reachable before completing "+string(a.CurrentStep))
	}
	return nil
}

func (a *Application) advanceTo(step Step, now time.Time) {
	if step.AtLeast(a.CurrentStep) {
		a.CurrentStep = step
	}
	a.CompletionPercentage = Completion(a.Status, a.CurrentStep)
	a.UpdatedAt = now
}

// CanApplyPersonalInfo checks the status precondition for the personal step.
func (a *Application) CanApplyPersonalInfo() error {
	return a.requireInProgress()
}

// ApplyPersonalInfo overwrites the personal record and moves past the
// personal step. Re-applying never lowers CurrentStep.
func (a *Application) ApplyPersonalInfo(info PersonalInfo, now time.Time) {
	a.PersonalInfo = &info
	a.advanceTo(StepDocuments, now)
}

// CanChangeDocuments checks that uploads are accepted: the personal step is
// done and the application is still open.
func (a *Application) CanChangeDocuments() error {
	if err := a.requireInProgress(); err != nil {
		return err
	}
	return a.requireStep(StepDocuments)
}

// CanRemoveDocument restricts removal to the documents step so a completed
// document set can never shrink behind a later step.
func (a *Application) CanRemoveDocument() error {
	if err := a.CanChangeDocuments(); err != nil {
		return err
	}
	if a.CurrentStep != StepDocuments {
		return dErrors.New(dErrors.CodeInvalidState, "documents can only be removed during the documents step")
	}
	return nil
}

// ApplyDocuments replaces the document set and advances to the address step
// once every required document is present.
func (a *Application) ApplyDocuments(docs DocumentSet, now time.Time) {
	a.Documents = docs
	if docs.Complete() {
		a.advanceTo(StepAddress, now)
		return
	}
	a.advanceTo(a.CurrentStep, now)
}

func (a *Application) CanApplyAddressInfo() error {
	if err := a.requireInProgress(); err != nil {
		return err
	}
	return a.requireStep(StepAddress)
}

func (a *Application) ApplyAddressInfo(info AddressInfo, now time.Time) {
	a.AddressInfo = &info
	a.advanceTo(StepReview, now)
}

// CanSubmit checks the status precondition only; content completeness is
// re-validated by the caller.
func (a *Application) CanSubmit() error {
	return a.requireInProgress()
}

func (a *Application) ApplySubmission(now time.Time) {
	a.Status = StatusSubmitted
	a.SubmittedAt = &now
	a.advanceTo(StepReview, now)
}

// ApplyApproval flips a submitted application to approved. It reports
// false, leaving the application untouched, for any other status.
func (a *Application) ApplyApproval(now time.Time) bool {
	if a.Status != StatusSubmitted || a.ApprovedAt != nil {
		return false
	}
	a.Status = StatusApproved
	a.ApprovedAt = &now
	a.advanceTo(a.CurrentStep, now)
	return true
}

// CheckInvariants reports the first violated aggregate invariant.
func (a *Application) CheckInvariants() error {
	violation := func(msg string) error {
		return dErrors.New(dErrors.CodeInternal, "invariant violated: "+msg)
	}
	if !a.Status.IsValid() {
		return violation("unknown status " + string(a.Status))
	}
	if !a.CurrentStep.IsValid() {
		return violation("unknown step " + string(a.CurrentStep))
	}
	if a.CompletionPercentage != Completion(a.Status, a.CurrentStep) {
		return violation("completion percentage does not match progress")
	}
	if a.Status != StatusInProgress {
		if a.PersonalInfo == nil || a.AddressInfo == nil || !a.Documents.Complete() {
			return violation("finalized application is missing step data")
		}
		if a.SubmittedAt == nil {
			return violation("finalized application has no submission time")
		}
	}
	if a.Status == StatusApproved && a.ApprovedAt == nil {
		return violation("approved application has no approval time")
	}
	if a.CurrentStep.AtLeast(StepAddress) && !a.Documents.Complete() {
		return violation("document set incomplete past the documents step")
	}
	return nil
}
