package enums

import "fmt"

// JoinRequestStatus tracks review state for a group join request.
// Requests are terminal once approved or rejected.
type JoinRequestStatus string

const (
	JoinRequestStatusPending  JoinRequestStatus = "pending"
	JoinRequestStatusApproved JoinRequestStatus = "approved"
	JoinRequestStatusRejected JoinRequestStatus = "rejected"
)

var validJoinRequestStatuses = []JoinRequestStatus{
	JoinRequestStatusPending,
	JoinRequestStatusApproved,
	JoinRequestStatusRejected,
}

// String implements fmt.Stringer.
func (j JoinRequestStatus) String() string {
	return string(j)
}

// IsValid reports whether the value is a known JoinRequestStatus.
func (j JoinRequestStatus) IsValid() bool {
	for _, candidate := range validJoinRequestStatuses {
		if candidate == j {
			return true
		}
	}
	return false
}

// ParseJoinRequestStatus converts raw input into a JoinRequestStatus.
func ParseJoinRequestStatus(value string) (JoinRequestStatus, error) {
	for _, candidate := range validJoinRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid join request status %q", value)
}
