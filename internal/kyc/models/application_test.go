package models_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"kycflow/internal/kyc/models"
	dErrors "kycflow/pkg/domain-errors"
)

type ApplicationSuite struct {
	suite.Suite
	now time.Time
	app *models.Application
}

func TestApplicationSuite(t *testing.T) {
	suite.Run(t, new(ApplicationSuite))
}

func (s *ApplicationSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.app = models.NewApplication(models.NewApplicationID(), uuid.New(), s.now)
}

func completeDocs(now time.Time) models.DocumentSet {
	docs := models.DocumentSet{}
	for _, k := range models.RequiredDocumentKinds {
		docs[k] = models.DocumentRecord{
			FileName:           string(k) + ".pdf",
			FileSizeBytes:      1024,
			MimeType:           "application/pdf",
			UploadedAt:         now,
			VerificationStatus: models.VerificationPending,
		}
	}
	return docs
}

func (s *ApplicationSuite) TestNewApplication() {
	s.Equal(models.StatusInProgress, s.app.Status)
	s.Equal(models.StepPersonal, s.app.CurrentStep)
	s.Equal(0, s.app.CompletionPercentage)
	s.Empty(s.app.Documents)
	s.Nil(s.app.SubmittedAt)
	s.Equal(s.now, s.app.CreatedAt)
	s.NoError(s.app.CheckInvariants())
}

func (s *ApplicationSuite) TestCompletion() {
	s.Equal(0, models.Completion(models.StatusInProgress, models.StepPersonal))
	s.Equal(25, models.Completion(models.StatusInProgress, models.StepDocuments))
	s.Equal(50, models.Completion(models.StatusInProgress, models.StepAddress))
	s.Equal(75, models.Completion(models.StatusInProgress, models.StepReview))
	s.Equal(100, models.Completion(models.StatusSubmitted, models.StepReview))
	s.Equal(100, models.Completion(models.StatusApproved, models.StepReview))
	s.Equal(100, models.Completion(models.StatusRejected, models.StepReview))
}

func (s *ApplicationSuite) TestStepProgression() {
	s.Run("documents step is unreachable before personal info", func() {
		err := s.app.CanChangeDocuments()
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("personal info advances to documents", func() {
		s.app.ApplyPersonalInfo(models.PersonalInfo{FirstName: "Asha"}, s.now)
		s.Equal(models.StepDocuments, s.app.CurrentStep)
		s.Equal(25, s.app.CompletionPercentage)
		s.NoError(s.app.CanChangeDocuments())
	})

	s.Run("partial document set stays on documents", func() {
		docs := completeDocs(s.now)
		delete(docs, models.DocumentPhoto)
		s.app.ApplyDocuments(docs, s.now)
		s.Equal(models.StepDocuments, s.app.CurrentStep)
		s.True(dErrors.HasCode(s.app.CanApplyAddressInfo(), dErrors.CodeInvalidState))
	})

	s.Run("complete document set advances to address", func() {
		s.app.ApplyDocuments(completeDocs(s.now), s.now)
		s.Equal(models.StepAddress, s.app.CurrentStep)
		s.Equal(50, s.app.CompletionPercentage)
	})

	s.Run("documents cannot be removed after the documents step", func() {
		s.True(dErrors.HasCode(s.app.CanRemoveDocument(), dErrors.CodeInvalidState))
	})

	s.Run("re-applying personal info never lowers the step", func() {
		s.app.ApplyPersonalInfo(models.PersonalInfo{FirstName: "Asha2"}, s.now)
		s.Equal(models.StepAddress, s.app.CurrentStep)
		s.Equal("Asha2", s.app.PersonalInfo.FirstName)
	})

	s.Run("address advances to review", func() {
		s.app.ApplyAddressInfo(models.AddressInfo{City: "Pune"}, s.now)
		s.Equal(models.StepReview, s.app.CurrentStep)
		s.Equal(75, s.app.CompletionPercentage)
		s.NoError(s.app.CheckInvariants())
	})
}

func (s *ApplicationSuite) TestSubmitAndApprove() {
	s.app.ApplyPersonalInfo(models.PersonalInfo{FirstName: "Asha"}, s.now)
	s.app.ApplyDocuments(completeDocs(s.now), s.now)
	s.app.ApplyAddressInfo(models.AddressInfo{City: "Pune"}, s.now)

	s.Run("approval before submission is a no-op", func() {
		s.False(s.app.ApplyApproval(s.now))
		s.Equal(models.StatusInProgress, s.app.Status)
	})

	submitted := s.now.Add(time.Minute)
	s.Require().NoError(s.app.CanSubmit())
	s.app.ApplySubmission(submitted)
	s.Equal(models.StatusSubmitted, s.app.Status)
	s.Equal(100, s.app.CompletionPercentage)
	s.Equal(submitted, *s.app.SubmittedAt)
	s.NoError(s.app.CheckInvariants())

	s.Run("submitted application rejects mutation", func() {
		s.True(dErrors.HasCode(s.app.CanApplyPersonalInfo(), dErrors.CodeInvalidState))
		s.True(dErrors.HasCode(s.app.CanChangeDocuments(), dErrors.CodeInvalidState))
		s.True(dErrors.HasCode(s.app.CanApplyAddressInfo(), dErrors.CodeInvalidState))
		s.True(dErrors.HasCode(s.app.CanSubmit(), dErrors.CodeInvalidState))
	})

	approved := submitted.Add(10 * time.Second)
	s.True(s.app.ApplyApproval(approved))
	s.Equal(models.StatusApproved, s.app.Status)
	s.Equal(approved, *s.app.ApprovedAt)
	s.Equal(submitted, *s.app.SubmittedAt)
	s.NoError(s.app.CheckInvariants())

	s.Run("second approval is a no-op", func() {
		s.False(s.app.ApplyApproval(approved.Add(time.Hour)))
		s.Equal(approved, *s.app.ApprovedAt)
	})
}

func (s *ApplicationSuite) TestCloneIsDeep() {
	s.app.ApplyPersonalInfo(models.PersonalInfo{FirstName: "Asha"}, s.now)
	s.app.ApplyDocuments(completeDocs(s.now), s.now)

	c := s.app.Clone()
	c.PersonalInfo.FirstName = "Changed"
	delete(c.Documents, models.DocumentPhoto)

	s.Equal("Asha", s.app.PersonalInfo.FirstName)
	s.Contains(s.app.Documents, models.DocumentPhoto)
}

func (s *ApplicationSuite) TestOwnership() {
	s.True(s.app.OwnedBy(s.app.ApplicantID))
	s.True(s.app.OwnedBy(uuid.Nil))
	s.False(s.app.OwnedBy(uuid.New()))
}

func (s *ApplicationSuite) TestCheckInvariantsDetectsViolations() {
	s.app.CompletionPercentage = 60
	s.Error(s.app.CheckInvariants())

	s.app.CompletionPercentage = 100
	s.app.Status = models.StatusSubmitted
	s.Error(s.app.CheckInvariants())
}

func TestParseHelpers(t *testing.T) {
	_, err := models.ParseDocumentKind("passport")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	kind, err := models.ParseDocumentKind("photo")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentPhoto, kind)

	assert.Panics(t, func() { models.MustParseDocumentKind("passport") })
	assert.Panics(t, func() { models.MustParseStep("payment") })
	assert.Equal(t, models.StepAddress, models.MustParseStep("address"))

	_, err = models.ParseApplicationID("not-a-uuid")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	id := models.NewApplicationID()
	parsed, err := models.ParseApplicationID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}
