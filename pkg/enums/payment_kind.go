package enums

import "fmt"

// PaymentKind distinguishes the semantics of a ledger event.
type PaymentKind string

const (
	PaymentKindPartial PaymentKind = "partial"
	PaymentKindFull    PaymentKind = "full"
	PaymentKindReturn  PaymentKind = "return"
	PaymentKindDues    PaymentKind = "dues"
)

var validPaymentKinds = []PaymentKind{
	PaymentKindPartial,
	PaymentKindFull,
	PaymentKindReturn,
	PaymentKindDues,
}

// IsValid reports whether the value is a known PaymentKind.
func (k PaymentKind) IsValid() bool {
	for _, candidate := range validPaymentKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// CountsTowardBalance reports whether events of this kind add to totalPaid.
func (k PaymentKind) CountsTowardBalance() bool {
	return k == PaymentKindPartial || k == PaymentKindFull
}

// ParsePaymentKind converts raw input into a PaymentKind.
func ParsePaymentKind(value string) (PaymentKind, error) {
	for _, candidate := range validPaymentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment kind %q", value)
}
