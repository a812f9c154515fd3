// Package documents registers declared uploads against an application's
// document set. It only sees client-declared metadata, never file contents.
package documents

import (
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"kycflow/internal/kyc/models"
	dErrors "kycflow/pkg/domain-errors"
)

const (
	DefaultMaxProofBytes int64 = 5 << 20
	DefaultMaxPhotoBytes int64 = 2 << 20
)

// imageSpellings maps non-standard JPEG spellings that browsers still send
// to the registered type.
var imageSpellings = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
}

// Limits caps declared upload sizes per document kind.
type Limits struct {
	MaxProofBytes int64
	MaxPhotoBytes int64
}

func DefaultLimits() Limits {
	return Limits{MaxProofBytes: DefaultMaxProofBytes, MaxPhotoBytes: DefaultMaxPhotoBytes}
}

func (l Limits) maxBytes(kind models.DocumentKind) int64 {
	if kind == models.DocumentPhoto {
		return l.MaxPhotoBytes
	}
	return l.MaxProofBytes
}

type Tracker struct {
	limits Limits
}

// NewTracker builds a tracker; zero limits fall back to the defaults.
func NewTracker(limits Limits) *Tracker {
	def := DefaultLimits()
	if limits.MaxProofBytes <= 0 {
		limits.MaxProofBytes = def.MaxProofBytes
	}
	if limits.MaxPhotoBytes <= 0 {
		limits.MaxPhotoBytes = def.MaxPhotoBytes
	}
	return &Tracker{limits: limits}
}

func (t *Tracker) Limits() Limits { return t.limits }

// Register checks meta against the kind's constraints and returns a new set
// holding the pending record. docs is never modified; on rejection the
// caller keeps the set it had.
func (t *Tracker) Register(docs models.DocumentSet, kind models.DocumentKind, meta models.FileMeta, now time.Time) (models.DocumentSet, error) {
	if !kind.IsValid() {
		return nil, rejected("kind", "unknown document kind "+string(kind))
	}
	name := strings.TrimSpace(meta.Name)
	if name == "" {
		return nil, rejected("name", "file name is required")
	}
	if meta.SizeBytes <= 0 {
		return nil, rejected("sizeBytes", "file is empty")
	}
	if limit := t.limits.maxBytes(kind); meta.SizeBytes > limit {
		return nil, rejected("sizeBytes", fmt.Sprintf("file is %d bytes, %s allows at most %d", meta.SizeBytes, kind, limit))
	}
	mimeType, ok := allowedType(kind, meta.MimeType)
	if !ok {
		return nil, rejected("mimeType", fmt.Sprintf("type %q is not accepted for %s", meta.MimeType, kind))
	}

	out := docs.Clone()
	out[kind] = models.DocumentRecord{
		FileName:           name,
		FileSizeBytes:      meta.SizeBytes,
		MimeType:           mimeType,
		UploadedAt:         now,
		VerificationStatus: models.VerificationPending,
	}
	return out, nil
}

// Remove returns a copy of docs without kind.
func (t *Tracker) Remove(docs models.DocumentSet, kind models.DocumentKind) (models.DocumentSet, error) {
	if _, ok := docs[kind]; !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no "+string(kind)+" document has been uploaded")
	}
	out := docs.Clone()
	delete(out, kind)
	return out, nil
}

func (t *Tracker) IsComplete(docs models.DocumentSet) bool {
	return docs.Complete()
}

// allowedType resolves the declared type, including known aliases, and
// returns its canonical name when the kind accepts it.
func allowedType(kind models.DocumentKind, declared string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(declared))
	if err != nil {
		return "", false
	}
	if canonical, ok := imageSpellings[mediaType]; ok {
		mediaType = canonical
	}
	m := mimetype.Lookup(mediaType)
	if m == nil {
		return "", false
	}
	if strings.HasPrefix(m.String(), "image/") {
		return m.String(), true
	}
	if kind != models.DocumentPhoto && m.Is("application/pdf") {
		return "application/pdf", true
	}
	return "", false
}

func rejected(field, reason string) error {
	return dErrors.WithFields(dErrors.CodeDocumentRejected, []dErrors.FieldError{{Field: field, Message: reason}})
}
