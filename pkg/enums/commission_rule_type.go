package enums

import "fmt"

// CommissionRuleType identifies one of the independently toggleable rules.
type CommissionRuleType string

const (
	CommissionRuleEarly      CommissionRuleType = "early"
	CommissionRuleStandard   CommissionRuleType = "standard"
	CommissionRuleExtraUnits CommissionRuleType = "extra_units"
)

var validCommissionRuleTypes = []CommissionRuleType{
	CommissionRuleEarly,
	CommissionRuleStandard,
	CommissionRuleExtraUnits,
}

// IsValid reports whether the value is a known CommissionRuleType.
func (t CommissionRuleType) IsValid() bool {
	for _, candidate := range validCommissionRuleTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCommissionRuleType converts raw input into a CommissionRuleType.
func ParseCommissionRuleType(value string) (CommissionRuleType, error) {
	for _, candidate := range validCommissionRuleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission rule type %q", value)
}
