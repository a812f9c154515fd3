package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"

	audit "kycflow/pkg/platform/audit"
	txcontext "kycflow/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// Migrate creates the audit table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply audit schema: %w", err)
	}
	return nil
}

// Store implements audit.Store and audit.Reader on a PostgreSQL table. When
// the context carries a transaction the event joins it.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts the event. The category is always derived from the action.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var applicantID *uuid.UUID
	if event.ApplicantID != uuid.Nil {
		applicantID = &event.ApplicantID
	}

	query := `
		INSERT INTO kyc_audit_events (
			id, category, occurred_at, application_id, applicant_id, action,
			step, decision, reason, request_id, client_ip, device
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.New(),
		string(audit.AuditEvent(event.Action).Category()),
		event.Timestamp,
		event.ApplicationID,
		applicantID,
		event.Action,
		event.Step,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByApplication returns an application's trail in insertion order.
func (s *Store) ListByApplication(ctx context.Context, applicationID string) ([]audit.Event, error) {
	query := `
		SELECT category, occurred_at, application_id, applicant_id, action,
			   step, decision, reason, request_id, client_ip, device
		FROM kyc_audit_events
		WHERE application_id = $1
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e           audit.Event
			category    string
			applicantID uuid.NullUUID
		)
		if err := rows.Scan(
			&category, &e.Timestamp, &e.ApplicationID, &applicantID, &e.Action,
			&e.Step, &e.Decision, &e.Reason, &e.RequestID, &e.ClientIP, &e.Device,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		if applicantID.Valid {
			e.ApplicantID = applicantID.UUID
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
