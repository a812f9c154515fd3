package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"kycflow/internal/kyc/models"
	"kycflow/pkg/platform/sentinel"
	"kycflow/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// Migrate creates the application table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply kyc schema: %w", err)
	}
	return nil
}

// PostgresStore persists applications in PostgreSQL. Step payloads and the
// document set are stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectApplication = `
SELECT id, applicant_id, status, current_step, personal_info, documents, address_info,
       completion_percentage, created_at, updated_at, submitted_at, approved_at
FROM kyc_applications
WHERE id = $1`

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	row, err := toRow(app)
	if err != nil {
		return err
	}
	_, err = tx.QuerierFrom(ctx, s.db).ExecContext(ctx, `
INSERT INTO kyc_applications (
    id, applicant_id, status, current_step, personal_info, documents, address_info,
    completion_percentage, created_at, updated_at, submitted_at, approved_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		row.id, row.applicantID, row.status, row.currentStep, jsonArg(row.personalInfo), jsonArg(row.documents), jsonArg(row.addressInfo),
		row.completion, row.createdAt, row.updatedAt, row.submittedAt, row.approvedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert kyc application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id models.ApplicationID) (*models.Application, error) {
	var r applicationRow
	err := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, selectApplication, uuid.UUID(id)).Scan(
		&r.id, &r.applicantID, &r.status, &r.currentStep, &r.personalInfo, &r.documents, &r.addressInfo,
		&r.completion, &r.createdAt, &r.updatedAt, &r.submittedAt, &r.approvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find kyc application: %w", err)
	}
	return r.toApplication()
}

func (s *PostgresStore) Update(ctx context.Context, app *models.Application) error {
	row, err := toRow(app)
	if err != nil {
		return err
	}
	res, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx, `
UPDATE kyc_applications SET
    status = $2, current_step = $3, personal_info = $4, documents = $5, address_info = $6,
    completion_percentage = $7, updated_at = $8, submitted_at = $9, approved_at = $10
WHERE id = $1`,
		row.id, row.status, row.currentStep, jsonArg(row.personalInfo), jsonArg(row.documents), jsonArg(row.addressInfo),
		row.completion, row.updatedAt, row.submittedAt, row.approvedAt,
	)
	if err != nil {
		return fmt.Errorf("update kyc application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update kyc application: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// RunInTx runs fn in a transaction that holds the application's row lock,
// so concurrent read-modify-write cycles on one id queue behind each other.
func (s *PostgresStore) RunInTx(ctx context.Context, id models.ApplicationID, fn func(Store) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin kyc transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	var locked uuid.UUID
	lockErr := sqlTx.QueryRowContext(ctx, `SELECT id FROM kyc_applications WHERE id = $1 FOR UPDATE`, uuid.UUID(id)).Scan(&locked)
	if lockErr != nil && !errors.Is(lockErr, sql.ErrNoRows) {
		return fmt.Errorf("lock kyc application: %w", lockErr)
	}

	if err = fn(&txStore{store: s, tx: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit kyc transaction: %w", err)
	}
	return nil
}

// txStore binds every call to an open transaction regardless of the context
// the caller passes in.
type txStore struct {
	store *PostgresStore
	tx    *sql.Tx
}

func (t *txStore) Create(ctx context.Context, app *models.Application) error {
	return t.store.Create(tx.WithTx(ctx, t.tx), app)
}

func (t *txStore) FindByID(ctx context.Context, id models.ApplicationID) (*models.Application, error) {
	return t.store.FindByID(tx.WithTx(ctx, t.tx), id)
}

func (t *txStore) Update(ctx context.Context, app *models.Application) error {
	return t.store.Update(tx.WithTx(ctx, t.tx), app)
}

// RunInTx on an open transaction joins it.
func (t *txStore) RunInTx(_ context.Context, _ models.ApplicationID, fn func(Store) error) error {
	return fn(t)
}

// jsonArg sends JSON as text so the driver never encodes it as bytea.
func jsonArg(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

type applicationRow struct {
	id           uuid.UUID
	applicantID  uuid.UUID
	status       string
	currentStep  string
	personalInfo []byte
	documents    []byte
	addressInfo  []byte
	completion   int
	createdAt    time.Time
	updatedAt    time.Time
	submittedAt  sql.NullTime
	approvedAt   sql.NullTime
}

func toRow(app *models.Application) (applicationRow, error) {
	r := applicationRow{
		id:          uuid.UUID(app.ID),
		applicantID: app.ApplicantID,
		status:      string(app.Status),
		currentStep: string(app.CurrentStep),
		completion:  app.CompletionPercentage,
		createdAt:   app.CreatedAt.UTC(),
		updatedAt:   app.UpdatedAt.UTC(),
	}
	var err error
	if app.PersonalInfo != nil {
		if r.personalInfo, err = json.Marshal(app.PersonalInfo); err != nil {
			return r, fmt.Errorf("marshal personal info: %w", err)
		}
	}
	if app.AddressInfo != nil {
		if r.addressInfo, err = json.Marshal(app.AddressInfo); err != nil {
			return r, fmt.Errorf("marshal address info: %w", err)
		}
	}
	docs := app.Documents
	if docs == nil {
		docs = models.DocumentSet{}
	}
	if r.documents, err = json.Marshal(docs); err != nil {
		return r, fmt.Errorf("marshal documents: %w", err)
	}
	if app.SubmittedAt != nil {
		r.submittedAt = sql.NullTime{Time: app.SubmittedAt.UTC(), Valid: true}
	}
	if app.ApprovedAt != nil {
		r.approvedAt = sql.NullTime{Time: app.ApprovedAt.UTC(), Valid: true}
	}
	return r, nil
}

func (r applicationRow) toApplication() (*models.Application, error) {
	app := &models.Application{
		ID:                   models.ApplicationID(r.id),
		ApplicantID:          r.applicantID,
		Status:               models.Status(r.status),
		CurrentStep:          models.Step(r.currentStep),
		Documents:            models.DocumentSet{},
		CompletionPercentage: r.completion,
		CreatedAt:            r.createdAt,
		UpdatedAt:            r.updatedAt,
	}
	if len(r.personalInfo) > 0 {
		app.PersonalInfo = &models.PersonalInfo{}
		if err := json.Unmarshal(r.personalInfo, app.PersonalInfo); err != nil {
			return nil, fmt.Errorf("unmarshal personal info: %w", err)
		}
	}
	if len(r.addressInfo) > 0 {
		app.AddressInfo = &models.AddressInfo{}
		if err := json.Unmarshal(r.addressInfo, app.AddressInfo); err != nil {
			return nil, fmt.Errorf("unmarshal address info: %w", err)
		}
	}
	if len(r.documents) > 0 {
		if err := json.Unmarshal(r.documents, &app.Documents); err != nil {
			return nil, fmt.Errorf("unmarshal documents: %w", err)
		}
	}
	if r.submittedAt.Valid {
		t := r.submittedAt.Time
		app.SubmittedAt = &t
	}
	if r.approvedAt.Valid {
		t := r.approvedAt.Time
		app.ApprovedAt = &t
	}
	return app, nil
}
