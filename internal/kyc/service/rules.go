package service

import (
	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/validation"
)

func validationPersonal(info models.PersonalInfo) error {
	return validation.Personal(info).Err()
}

func validationAddress(info models.AddressInfo) error {
	return validation.Address(info).Err()
}

func validationApplication(app *models.Application) validation.Result {
	return validation.ForStep(models.StepReview, app)
}
