package enums

// ActivityKind labels audit entries written by the assignment flow.
type ActivityKind string

const (
	ActivityAssigned   ActivityKind = "assigned"
	ActivityReassigned ActivityKind = "reassigned"
	ActivityReturned   ActivityKind = "returned"
	ActivitySettled    ActivityKind = "settled"
)
