package models

// PersonalInfo is the applicant's identity record. The validate tags are the
// personal step's acceptance rules; fields without a tag are accepted as given.
type PersonalInfo struct {
	FirstName   string `json:"firstName" validate:"min=2"`
	LastName    string `json:"lastName" validate:"min=2"`
	DateOfBirth string `json:"dateOfBirth" validate:"required"`
	Gender      string `json:"gender"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email" validate:"kycemail"`
	PANNumber   string `json:"panNumber" validate:"pan"`
	Occupation  string `json:"occupation"`
}

// AddressInfo is the applicant's residential address.
type AddressInfo struct {
	AddressLine1 string `json:"addressLine1" validate:"min=5"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state"`
	Pincode      string `json:"pincode" validate:"pincode"`
	Country      string `json:"country"`
}
