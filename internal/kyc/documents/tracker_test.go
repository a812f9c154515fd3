package documents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycflow/internal/kyc/models"
	dErrors "kycflow/pkg/domain-errors"
)

const mb = int64(1 << 20)

func TestTracker_Register(t *testing.T) {
	tracker := NewTracker(DefaultLimits())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("builds a complete set one upload at a time", func(t *testing.T) {
		docs := models.DocumentSet{}
		var err error

		docs, err = tracker.Register(docs, models.DocumentIdentityProof, models.FileMeta{Name: "id.png", SizeBytes: 4 * mb, MimeType: "image/png"}, now)
		require.NoError(t, err)
		assert.False(t, tracker.IsComplete(docs))

		docs, err = tracker.Register(docs, models.DocumentAddressProof, models.FileMeta{Name: "bill.pdf", SizeBytes: mb, MimeType: "application/pdf"}, now)
		require.NoError(t, err)
		assert.False(t, tracker.IsComplete(docs))

		docs, err = tracker.Register(docs, models.DocumentPhoto, models.FileMeta{Name: "me.jpg", SizeBytes: mb, MimeType: "image/jpeg"}, now)
		require.NoError(t, err)
		assert.True(t, tracker.IsComplete(docs))

		rec := docs[models.DocumentPhoto]
		assert.Equal(t, "me.jpg", rec.FileName)
		assert.Equal(t, mb, rec.FileSizeBytes)
		assert.Equal(t, "image/jpeg", rec.MimeType)
		assert.Equal(t, now, rec.UploadedAt)
		assert.Equal(t, models.VerificationPending, rec.VerificationStatus)
	})

	t.Run("re-upload replaces the record", func(t *testing.T) {
		docs, err := tracker.Register(models.DocumentSet{}, models.DocumentPhoto, models.FileMeta{Name: "a.png", SizeBytes: 10, MimeType: "image/png"}, now)
		require.NoError(t, err)
		docs, err = tracker.Register(docs, models.DocumentPhoto, models.FileMeta{Name: "b.png", SizeBytes: 20, MimeType: "image/png"}, now)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
		assert.Equal(t, "b.png", docs[models.DocumentPhoto].FileName)
	})

	t.Run("accepts media type parameters", func(t *testing.T) {
		docs, err := tracker.Register(models.DocumentSet{}, models.DocumentAddressProof, models.FileMeta{Name: "bill.pdf", SizeBytes: 10, MimeType: "Application/PDF; name=bill.pdf"}, now)
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", docs[models.DocumentAddressProof].MimeType)
	})

	t.Run("accepts any known image type", func(t *testing.T) {
		for declared, want := range map[string]string{
			"image/gif":   "image/gif",
			"image/bmp":   "image/bmp",
			"image/jpg":   "image/jpeg",
			"image/pjpeg": "image/jpeg",
		} {
			for _, kind := range []models.DocumentKind{models.DocumentPhoto, models.DocumentIdentityProof} {
				docs, err := tracker.Register(models.DocumentSet{}, kind, models.FileMeta{Name: "scan", SizeBytes: 10, MimeType: declared}, now)
				require.NoError(t, err, "%s as %s", declared, kind)
				assert.Equal(t, want, docs[kind].MimeType)
			}
		}
	})
}

func TestTracker_RegisterRejections(t *testing.T) {
	tracker := NewTracker(Limits{})
	now := time.Now()

	cases := []struct {
		name  string
		kind  models.DocumentKind
		meta  models.FileMeta
		field string
	}{
		{"oversized proof", models.DocumentIdentityProof, models.FileMeta{Name: "id.png", SizeBytes: 5*mb + 1, MimeType: "image/png"}, "sizeBytes"},
		{"oversized photo", models.DocumentPhoto, models.FileMeta{Name: "me.png", SizeBytes: 2*mb + 1, MimeType: "image/png"}, "sizeBytes"},
		{"empty file", models.DocumentPhoto, models.FileMeta{Name: "me.png", SizeBytes: 0, MimeType: "image/png"}, "sizeBytes"},
		{"missing name", models.DocumentPhoto, models.FileMeta{Name: " ", SizeBytes: 10, MimeType: "image/png"}, "name"},
		{"pdf photo", models.DocumentPhoto, models.FileMeta{Name: "me.pdf", SizeBytes: 10, MimeType: "application/pdf"}, "mimeType"},
		{"text proof", models.DocumentAddressProof, models.FileMeta{Name: "bill.txt", SizeBytes: 10, MimeType: "text/plain"}, "mimeType"},
		{"unknown type", models.DocumentAddressProof, models.FileMeta{Name: "bill", SizeBytes: 10, MimeType: "application/x-made-up"}, "mimeType"},
		{"malformed type", models.DocumentAddressProof, models.FileMeta{Name: "bill", SizeBytes: 10, MimeType: "pdf"}, "mimeType"},
		{"unknown kind", models.DocumentKind("passport"), models.FileMeta{Name: "p.png", SizeBytes: 10, MimeType: "image/png"}, "kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			docs := models.DocumentSet{
				models.DocumentIdentityProof: {FileName: "existing.png"},
			}
			before := tracker.IsComplete(docs)

			out, err := tracker.Register(docs, tc.kind, tc.meta, now)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeDocumentRejected))
			fields := dErrors.FieldsOf(err)
			require.Len(t, fields, 1)
			assert.Equal(t, tc.field, fields[0].Field)

			assert.Len(t, docs, 1)
			assert.Equal(t, "existing.png", docs[models.DocumentIdentityProof].FileName)
			assert.Equal(t, before, tracker.IsComplete(docs))
		})
	}
}

func TestTracker_CustomLimits(t *testing.T) {
	tracker := NewTracker(Limits{MaxProofBytes: 100, MaxPhotoBytes: 50})
	_, err := tracker.Register(models.DocumentSet{}, models.DocumentPhoto, models.FileMeta{Name: "a.png", SizeBytes: 51, MimeType: "image/png"}, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDocumentRejected))
	_, err = tracker.Register(models.DocumentSet{}, models.DocumentAddressProof, models.FileMeta{Name: "a.pdf", SizeBytes: 100, MimeType: "application/pdf"}, time.Now())
	assert.NoError(t, err)
}

func TestTracker_Remove(t *testing.T) {
	tracker := NewTracker(DefaultLimits())
	docs := models.DocumentSet{models.DocumentPhoto: {FileName: "me.png"}}

	out, err := tracker.Remove(docs, models.DocumentPhoto)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Len(t, docs, 1)

	_, err = tracker.Remove(out, models.DocumentPhoto)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
