package checkout

import (
	"strings"

	"freshcart-api/models"
	"freshcart-api/utils"
)

func normalizeAddress(a models.Address) models.Address {
	return models.Address{
		Name:     strings.TrimSpace(a.Name),
		Phone:    strings.TrimSpace(a.Phone),
		Email:    strings.TrimSpace(a.Email),
		Line1:    strings.TrimSpace(a.Line1),
		Line2:    strings.TrimSpace(a.Line2),
		Landmark: strings.TrimSpace(a.Landmark),
		City:     strings.TrimSpace(a.City),
		PinCode:  strings.TrimSpace(a.PinCode),
	}
}

// validateAddress checks the required delivery fields. The pin code itself is
// judged by the pin-code gate.
func validateAddress(a models.Address) error {
	switch {
	case a.Name == "":
		return models.NewValidationError("Name is required", nil)
	case a.Phone == "":
		return models.NewValidationError("Phone number is required", nil)
	case !utils.ValidPhone(a.Phone):
		return models.NewValidationError("Please enter a valid phone number", nil)
	case a.Email != "" && !utils.ValidEmail(a.Email):
		return models.NewValidationError("Please enter a valid email address", nil)
	case a.Line1 == "":
		return models.NewValidationError("Address is required", nil)
	case a.City == "":
		return models.NewValidationError("City is required", nil)
	case a.PinCode == "":
		return models.NewValidationError("Pin code is required", nil)
	}
	return nil
}
