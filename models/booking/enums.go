package booking

// Status is the lifecycle state of a booking
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusActive, StatusCancelled},
	StatusActive:    {StatusCancelled},
	StatusCancelled: {},
}

// Helper methods for Status
func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal returns true if no further transitions are possible
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo returns true if the move from s to next is allowed.
// Staying in the same status is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// GetAllStatuses returns all valid booking statuses
func GetAllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusConfirmed,
		StatusActive,
		StatusCancelled,
	}
}
