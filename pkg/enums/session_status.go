package enums

import "fmt"

// SessionStatus tracks the lifecycle of a group checkout session.
type SessionStatus string

const (
	SessionStatusPending        SessionStatus = "pending"
	SessionStatusMemberPayments SessionStatus = "member_payments"
	SessionStatusCompleted      SessionStatus = "completed"
	SessionStatusCancelled      SessionStatus = "cancelled"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusPending,
	SessionStatusMemberPayments,
	SessionStatusCompleted,
	SessionStatusCancelled,
}

// String implements fmt.Stringer.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SessionStatus.
func (s SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// ParseSessionStatus converts raw input into a SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	for _, candidate := range validSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}
