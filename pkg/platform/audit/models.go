package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events for retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: what an
	// applicant declared and when the application was decided.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine progress through the workflow.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the workflow to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category      EventCategory `json:"category"`
	Timestamp     time.Time     `json:"timestamp"`
	ApplicationID string        `json:"application_id"`
	ApplicantID   uuid.UUID     `json:"applicant_id"`
	Action        string        `json:"action"`
	Step          string        `json:"step,omitempty"`
	Decision      string        `json:"decision,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	RequestID     string        `json:"request_id,omitempty"`
	ClientIP      string        `json:"client_ip,omitempty"`
	// Device is a coarse "browser on OS" description, never the raw user agent.
	Device string `json:"device,omitempty"`
}

type AuditEvent string

const (
	EventApplicationStarted   AuditEvent = "kyc_application_started"
	EventStepCompleted        AuditEvent = "kyc_step_completed"
	EventDocumentUploaded     AuditEvent = "kyc_document_uploaded"
	EventDocumentRemoved      AuditEvent = "kyc_document_removed"
	EventApplicationSubmitted AuditEvent = "kyc_application_submitted"
	EventApplicationApproved  AuditEvent = "kyc_application_approved"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventApplicationSubmitted: CategoryCompliance,
	EventApplicationApproved:  CategoryCompliance,
	EventStepCompleted:        CategoryCompliance,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader is implemented by stores that can replay an application's trail.
// Streaming sinks such as Kafka do not.
type Reader interface {
	ListByApplication(ctx context.Context, applicationID string) ([]Event, error)
}
