package handler

import (
	"unicode/utf8"

	"kycflow/internal/kyc/models"
	dErrors "kycflow/pkg/domain-errors"
)

// maxFieldLength bounds every free-text field before any rule runs.
const maxFieldLength = 256

// PersonalInfoRequest is the body of PUT /kyc/applications/{id}/personal.
type PersonalInfoRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	PANNumber   string `json:"panNumber"`
	Occupation  string `json:"occupation"`
}

// Validate trims the fields and rejects oversized input. Field rules are
// applied by the service so they cannot be bypassed.
func (r *PersonalInfoRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	sanitize(r)
	return checkLengths(map[string]string{
		"firstName":   r.FirstName,
		"lastName":    r.LastName,
		"dateOfBirth": r.DateOfBirth,
		"gender":      r.Gender,
		"phoneNumber": r.PhoneNumber,
		"email":       r.Email,
		"panNumber":   r.PANNumber,
		"occupation":  r.Occupation,
	})
}

func (r *PersonalInfoRequest) Model() models.PersonalInfo {
	return models.PersonalInfo{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DateOfBirth: r.DateOfBirth,
		Gender:      r.Gender,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		PANNumber:   r.PANNumber,
		Occupation:  r.Occupation,
	}
}

// AddressInfoRequest is the body of PUT /kyc/applications/{id}/address.
type AddressInfoRequest struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
}

func (r *AddressInfoRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	sanitize(r)
	return checkLengths(map[string]string{
		"addressLine1": r.AddressLine1,
		"addressLine2": r.AddressLine2,
		"city":         r.City,
		"state":        r.State,
		"pincode":      r.Pincode,
		"country":      r.Country,
	})
}

func (r *AddressInfoRequest) Model() models.AddressInfo {
	return models.AddressInfo{
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		State:        r.State,
		Pincode:      r.Pincode,
		Country:      r.Country,
	}
}

// DocumentUploadRequest is the body of POST /kyc/applications/{id}/documents.
// It carries what the client declares about a file, never its bytes.
type DocumentUploadRequest struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"sizeBytes"`
	MimeType  string `json:"mimeType"`

	parsedKind models.DocumentKind
}

func (r *DocumentUploadRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	sanitize(r)
	if err := checkLengths(map[string]string{"name": r.Name, "mimeType": r.MimeType}); err != nil {
		return err
	}
	if r.Kind == "" {
		return dErrors.WithFields(dErrors.CodeValidation, []dErrors.FieldError{{Field: "kind", Message: "is required"}})
	}
	kind, err := models.ParseDocumentKind(r.Kind)
	if err != nil {
		return err
	}
	r.parsedKind = kind
	return nil
}

func (r *DocumentUploadRequest) ParsedKind() models.DocumentKind {
	return r.parsedKind
}

func (r *DocumentUploadRequest) FileMeta() models.FileMeta {
	return models.FileMeta{Name: r.Name, SizeBytes: r.SizeBytes, MimeType: r.MimeType}
}

func checkLengths(fields map[string]string) error {
	var errs []dErrors.FieldError
	for _, name := range sortedKeys(fields) {
		if utf8.RuneCountInString(fields[name]) > maxFieldLength {
			errs = append(errs, dErrors.FieldError{Field: name, Message: "is too long"})
		}
	}
	if len(errs) > 0 {
		return dErrors.WithFields(dErrors.CodeValidation, errs)
	}
	return nil
}
