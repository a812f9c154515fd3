package models

// Status is the lifecycle state of an application.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusInProgress, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsFinal reports whether the applicant can no longer change the application.
func (s Status) IsFinal() bool {
	return s != StatusInProgress
}

// Step is one of the four sequential phases of the workflow.
type Step string

const (
	StepPersonal  Step = "personal"
	StepDocuments Step = "documents"
	StepAddress   Step = "address"
	StepReview    Step = "review"
)

var stepOrder = map[Step]int{
	StepPersonal:  0,
	StepDocuments: 1,
	StepAddress:   2,
	StepReview:    3,
}

// Steps lists the workflow phases in order.
var Steps = []Step{StepPersonal, StepDocuments, StepAddress, StepReview}

func (s Step) IsValid() bool {
	_, ok := stepOrder[s]
	return ok
}

// AtLeast reports whether s is other or a later step.
func (s Step) AtLeast(other Step) bool {
	return stepOrder[s] >= stepOrder[other]
}

// MustParseStep converts a step name known at compile time. Unknown names
// are programming errors.
func MustParseStep(name string) Step {
	s := Step(name)
	if !s.IsValid() {
		panic("kyc: unknown step " + name)
	}
	return s
}

// Completion derives the progress indicator. Every finalized application is
// complete; otherwise each finished step is worth a quarter.
func Completion(status Status, step Step) int {
	if status.IsFinal() {
		return 100
	}
	return stepOrder[step] * 25
}
