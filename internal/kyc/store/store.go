// Package store persists KYC applications. Backends return sentinel errors;
// the service decides which domain code applies.
package store

import (
	"context"

	"kycflow/internal/kyc/models"
)

// Store is the only sanctioned way to read or write applications. Values
// crossing the boundary are copies; mutating a returned application has no
// effect until it is passed to Update.
type Store interface {
	// Create inserts a new application. sentinel.ErrConflict if the id exists.
	Create(ctx context.Context, app *models.Application) error
	// FindByID returns sentinel.ErrNotFound for unknown ids.
	FindByID(ctx context.Context, id models.ApplicationID) (*models.Application, error)
	// Update replaces the stored record. sentinel.ErrNotFound for unknown ids.
	Update(ctx context.Context, app *models.Application) error
	// RunInTx serializes fn against every other RunInTx for the same id.
	// Either all writes fn makes through the given Store commit or none do.
	RunInTx(ctx context.Context, id models.ApplicationID, fn func(Store) error) error
}
