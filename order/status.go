package order

import "fmt"

// Status is the escrow state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Cancelled and Refunded are recognized but nothing transitions into them yet.
var transitions = map[Status]Status{
	StatusPending: StatusPaid,
	StatusPaid:    StatusCompleted,
}

// ParseStatus validates s as a known status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("order: unknown status %q", s)
	}
	return st, nil
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether next directly follows s.
func (s Status) CanTransitionTo(next Status) bool {
	to, ok := transitions[s]
	return ok && to == next
}
