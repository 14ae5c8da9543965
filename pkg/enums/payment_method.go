package enums

import "fmt"

// PaymentMethod identifies how a payment was collected.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodOther    PaymentMethod = "OTHER"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodTransfer,
	PaymentMethodCard,
	PaymentMethodOther,
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
