package enums

import "fmt"

// PaymentMethod captures how money physically arrived.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodMobile   PaymentMethod = "mobile_money"
	PaymentMethodBank     PaymentMethod = "bank_transfer"
	PaymentMethodCheque   PaymentMethod = "cheque"
	PaymentMethodInternal PaymentMethod = "internal"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodMobile,
	PaymentMethodBank,
	PaymentMethodCheque,
	PaymentMethodInternal,
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
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
