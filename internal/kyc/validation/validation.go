// Package validation holds the per-step acceptance rules of the onboarding
// workflow. Every function here is pure: it never looks up or mutates an
// application and reports all problems at once instead of stopping at the
// first one.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"kycflow/internal/kyc/models"
	dErrors "kycflow/pkg/domain-errors"
)

var (
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "pan", panPattern)
	mustRegister(v, "kycemail", emailPattern)
	mustRegister(v, "pincode", pincodePattern)
	return v
}

func mustRegister(v *validator.Validate, tag string, pattern *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic("validation: register " + tag + ": " + err.Error())
	}
}

// Result is the outcome of a rule. Invalid input is never an error value of
// its own; callers turn a failed Result into one with Err.
type Result struct {
	Valid  bool                  `json:"valid"`
	Errors []dErrors.FieldError `json:"errors"`
}

func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return dErrors.WithFields(dErrors.CodeValidation, r.Errors)
}

func result(errs []dErrors.FieldError) Result {
	if errs == nil {
		errs = []dErrors.FieldError{}
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// Personal checks the personal step: names of at least two characters, a
// date of birth, a PAN shaped AAAAA9999A and an email address.
func Personal(info models.PersonalInfo) Result {
	info.FirstName = strings.TrimSpace(info.FirstName)
	info.LastName = strings.TrimSpace(info.LastName)
	info.DateOfBirth = strings.TrimSpace(info.DateOfBirth)
	info.Email = strings.TrimSpace(info.Email)
	return result(structErrors(info))
}

// Address checks the address step: first line of at least five characters,
// a city and a six digit pincode.
func Address(info models.AddressInfo) Result {
	info.AddressLine1 = strings.TrimSpace(info.AddressLine1)
	info.City = strings.TrimSpace(info.City)
	info.Pincode = strings.TrimSpace(info.Pincode)
	return result(structErrors(info))
}

// Documents requires every document kind. Size and type were checked when
// each document was uploaded and are not re-examined.
func Documents(docs models.DocumentSet) Result {
	var errs []dErrors.FieldError
	for _, kind := range docs.Missing() {
		errs = append(errs, dErrors.FieldError{
			Field:   "documents." + string(kind),
			Message: "is required",
		})
	}
	return result(errs)
}

// ForStep validates the data an application holds for step. The review step
// covers every earlier step and is what submission re-checks. An unknown step
// is a programming error and panics.
func ForStep(step models.Step, app *models.Application) Result {
	switch step {
	case models.StepPersonal:
		if app.PersonalInfo == nil {
			return result([]dErrors.FieldError{{Field: "personalInfo", Message: "is required"}})
		}
		return Personal(*app.PersonalInfo)
	case models.StepDocuments:
		return Documents(app.Documents)
	case models.StepAddress:
		if app.AddressInfo == nil {
			return result([]dErrors.FieldError{{Field: "addressInfo", Message: "is required"}})
		}
		return Address(*app.AddressInfo)
	case models.StepReview:
		var errs []dErrors.FieldError
		for _, s := range []models.Step{models.StepPersonal, models.StepDocuments, models.StepAddress} {
			errs = append(errs, ForStep(s, app).Errors...)
		}
		return result(errs)
	default:
		panic("validation: unknown step " + string(step))
	}
}

func structErrors(v any) []dErrors.FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		panic("validation: " + err.Error())
	}
	out := make([]dErrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, dErrors.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "pan":
		return "must be a valid PAN (5 letters, 4 digits, 1 letter)"
	case "kycemail":
		return "must be a valid email address"
	case "pincode":
		return "must be exactly 6 digits"
	default:
		return "is invalid"
	}
}
