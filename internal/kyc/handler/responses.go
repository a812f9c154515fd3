package handler

import (
	"time"

	"kycflow/internal/kyc/models"
)

// ApplicationResponse is the JSON view of an application.
type ApplicationResponse struct {
	ID                   string                      `json:"id"`
	Status               string                      `json:"status"`
	CurrentStep          string                      `json:"currentStep"`
	CompletionPercentage int                         `json:"completionPercentage"`
	PersonalInfo         *models.PersonalInfo        `json:"personalInfo,omitempty"`
	Documents            map[string]DocumentResponse `json:"documents"`
	MissingDocuments     []string                    `json:"missingDocuments"`
	AddressInfo          *models.AddressInfo         `json:"addressInfo,omitempty"`
	CreatedAt            time.Time                   `json:"createdAt"`
	UpdatedAt            time.Time                   `json:"updatedAt"`
	SubmittedAt          *time.Time                  `json:"submittedAt,omitempty"`
	ApprovedAt           *time.Time                  `json:"approvedAt,omitempty"`
}

type DocumentResponse struct {
	FileName           string    `json:"fileName"`
	FileSizeBytes      int64     `json:"fileSizeBytes"`
	MimeType           string    `json:"mimeType"`
	UploadedAt         time.Time `json:"uploadedAt"`
	VerificationStatus string    `json:"verificationStatus"`
}

type DocumentsCompleteResponse struct {
	Complete bool `json:"complete"`
}

func toApplicationResponse(app *models.Application) *ApplicationResponse {
	docs := make(map[string]DocumentResponse, len(app.Documents))
	for kind, rec := range app.Documents {
		docs[string(kind)] = DocumentResponse{
			FileName:           rec.FileName,
			FileSizeBytes:      rec.FileSizeBytes,
			MimeType:           rec.MimeType,
			UploadedAt:         rec.UploadedAt,
			VerificationStatus: string(rec.VerificationStatus),
		}
	}
	missing := []string{}
	for _, kind := range app.Documents.Missing() {
		missing = append(missing, string(kind))
	}
	return &ApplicationResponse{
		ID:                   app.ID.String(),
		Status:               string(app.Status),
		CurrentStep:          string(app.CurrentStep),
		CompletionPercentage: app.CompletionPercentage,
		PersonalInfo:         app.PersonalInfo,
		Documents:            docs,
		MissingDocuments:     missing,
		AddressInfo:          app.AddressInfo,
		CreatedAt:            app.CreatedAt,
		UpdatedAt:            app.UpdatedAt,
		SubmittedAt:          app.SubmittedAt,
		ApprovedAt:           app.ApprovedAt,
	}
}
