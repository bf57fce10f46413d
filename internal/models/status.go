package models

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCollected Status = "collected"
)

// AllStatuses lists the states in lifecycle order.
var AllStatuses = []Status{StatusPreparing, StatusReady, StatusCollected}

// ParseStatus accepts only the three literal tokens.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPreparing, StatusReady, StatusCollected:
		return Status(s), true
	}
	return "", false
}

// Rank is the position of s in the lifecycle, -1 when unknown.
func (s Status) Rank() int {
	for i, v := range AllStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

// TransitionTable maps a current state to the states it may move to.
type TransitionTable map[Status]map[Status]bool

// Allows reports whether from -> to is permitted.
func (t TransitionTable) Allows(from, to Status) bool {
	return t[from][to]
}

// ForwardTransitions permits staying put or moving forward, never back.
var ForwardTransitions = TransitionTable{
	StatusPreparing: {StatusPreparing: true, StatusReady: true, StatusCollected: true},
	StatusReady:     {StatusReady: true, StatusCollected: true},
	StatusCollected: {StatusCollected: true},
}

// RollbackTransitions additionally lets staff move an order back to correct mistakes.
var RollbackTransitions = TransitionTable{
	StatusPreparing: {StatusPreparing: true, StatusReady: true, StatusCollected: true},
	StatusReady:     {StatusPreparing: true, StatusReady: true, StatusCollected: true},
	StatusCollected: {StatusPreparing: true, StatusReady: true, StatusCollected: true},
}
