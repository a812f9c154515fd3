package models

import (
	"time"

	dErrors "kycflow/pkg/domain-errors"
)

// DocumentKind names one of the documents required for onboarding.
type DocumentKind string

const (
	DocumentIdentityProof DocumentKind = "identity_proof"
	DocumentAddressProof  DocumentKind = "address_proof"
	DocumentPhoto         DocumentKind = "photo"
)

// RequiredDocumentKinds is the full set a complete application carries.
var RequiredDocumentKinds = []DocumentKind{DocumentIdentityProof, DocumentAddressProof, DocumentPhoto}

func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentIdentityProof, DocumentAddressProof, DocumentPhoto:
		return true
	}
	return false
}

// ParseDocumentKind converts caller input; unknown kinds are bad requests.
func ParseDocumentKind(s string) (DocumentKind, error) {
	k := DocumentKind(s)
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown document kind "+s)
	}
	return k, nil
}

// MustParseDocumentKind is for kinds fixed at compile time.
func MustParseDocumentKind(s string) DocumentKind {
	k, err := ParseDocumentKind(s)
	if err != nil {
		panic("kyc: " + err.Error())
	}
	return k
}

type VerificationStatus string

// VerificationPending is the only status the engine assigns; verification
// itself happens outside this system.
const VerificationPending VerificationStatus = "pending"

// FileMeta is what the client declares about an upload. Raw bytes never
// reach the engine.
type FileMeta struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"sizeBytes"`
	MimeType  string `json:"mimeType"`
}

type DocumentRecord struct {
	FileName           string             `json:"fileName"`
	FileSizeBytes      int64              `json:"fileSizeBytes"`
	MimeType           string             `json:"mimeType"`
	UploadedAt         time.Time          `json:"uploadedAt"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
}

// DocumentSet holds at most one record per kind.
type DocumentSet map[DocumentKind]DocumentRecord

// Complete reports whether every required kind is present.
func (d DocumentSet) Complete() bool {
	return len(d.Missing()) == 0
}

// Missing lists the required kinds not yet uploaded, in canonical order.
func (d DocumentSet) Missing() []DocumentKind {
	var missing []DocumentKind
	for _, k := range RequiredDocumentKinds {
		if _, ok := d[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

func (d DocumentSet) Clone() DocumentSet {
	out := make(DocumentSet, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
