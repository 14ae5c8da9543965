package enums

import "fmt"

// CycleStatus describes a settlement cycle. OPEN is virtual: it only ever
// appears on the current-cycle statistics view and is never persisted.
type CycleStatus string

const (
	CycleStatusOpen   CycleStatus = "OPEN"
	CycleStatusClosed CycleStatus = "CLOSED"
)

var validCycleStatuses = []CycleStatus{
	CycleStatusOpen,
	CycleStatusClosed,
}

// IsValid reports whether the value is a known CycleStatus.
func (c CycleStatus) IsValid() bool {
	for _, candidate := range validCycleStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCycleStatus converts raw input into a CycleStatus.
func ParseCycleStatus(value string) (CycleStatus, error) {
	for _, candidate := range validCycleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cycle status %q", value)
}
