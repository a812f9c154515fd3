package testutil

import (
	"net/http"

	"github.com/google/uuid"

	"kycflow/pkg/requestcontext"
)

// WithApplicant adds an applicant id to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithApplicant(req *http.Request, applicantID uuid.UUID) *http.Request {
	return req.WithContext(requestcontext.WithApplicantID(req.Context(), applicantID))
}

// WithBearer sets the Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
