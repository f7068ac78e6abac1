package models

import "time"

type PinCodeRecord struct {
	PinCode  string `json:"pin_code"`
	Area     string `json:"area"`
	IsActive bool   `json:"is_active"`
}

// DeliveryRequest asks the store to start serving a pin code. Written once.
type DeliveryRequest struct {
	ID        string    `json:"id"`
	PinCode   string    `json:"pin_code"`
	Area      string    `json:"area,omitempty"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Processed bool      `json:"processed"`
}

type PinState string

const (
	PinEmpty         PinState = "empty"
	PinFormatInvalid PinState = "format_invalid"
	PinChecking      PinState = "checking"
	PinValid         PinState = "valid"
	PinInvalid       PinState = "invalid"
)

// PinCodeStatus is the gate state for the pin code currently typed at checkout.
type PinCodeStatus struct {
	State   PinState `json:"state"`
	PinCode string   `json:"pin_code,omitempty"`
	Area    string   `json:"area,omitempty"`
	Message string   `json:"message,omitempty"`
}

// CanSubmit reports whether an order may be placed with this pin code.
func (s PinCodeStatus) CanSubmit() bool {
	return s.State == PinValid
}

type CreateDeliveryRequest struct {
	PinCode string `json:"pin_code"`
	Area    string `json:"area"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Message string `json:"message"`
}
