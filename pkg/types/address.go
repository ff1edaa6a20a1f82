package types

import "strings"

// Address is the shipping destination a member supplies before paying
// their line item. Stored as JSONB on the line item row.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// IsComplete reports whether every required field is populated.
func (a Address) IsComplete() bool {
	required := []string{a.Line1, a.City, a.State, a.PostalCode, a.Country}
	for _, field := range required {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}
