package enums

import "fmt"

// UnitStatus tracks the lifecycle of a distributable ticket book.
type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "available"
	UnitStatusDistributed UnitStatus = "distributed"
	UnitStatusSettled     UnitStatus = "settled"
	UnitStatusReturned    UnitStatus = "returned"
)

var validUnitStatuses = []UnitStatus{
	UnitStatusAvailable,
	UnitStatusDistributed,
	UnitStatusSettled,
	UnitStatusReturned,
}

// String implements fmt.Stringer.
func (s UnitStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known UnitStatus.
func (s UnitStatus) IsValid() bool {
	for _, candidate := range validUnitStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseUnitStatus converts raw input into a UnitStatus.
func ParseUnitStatus(value string) (UnitStatus, error) {
	for _, candidate := range validUnitStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit status %q", value)
}
