package models

// Status is the lifecycle state of a payment. The set is closed; every
// status a rail event can propose is one of these.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusPending   Status = "PENDING"
	StatusPosted    Status = "POSTED"
	StatusSettled   Status = "SETTLED"
	StatusReturned  Status = "RETURNED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// ExpectedNextStates defines the valid status transitions. The key is the
// current status, the value is the set of statuses the rail may legally
// move it to next. PENDING -> PENDING is deliberate: the rail can re-emit
// a pending event and redelivery must stay idempotent. Terminal statuses
// map to an empty slice so the table stays total over the whole set.
var ExpectedNextStates = map[Status][]Status{
	StatusNew: {StatusPending},
	StatusPending: {
		StatusPending,
		StatusFailed,
		StatusPosted,
		StatusCancelled,
	},
	StatusPosted:    {StatusSettled, StatusReturned},
	StatusSettled:   {StatusReturned},
	StatusReturned:  {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// KnownStatus reports whether s is a member of the closed status set.
func KnownStatus(s Status) bool {
	_, ok := ExpectedNextStates[s]
	return ok
}

// AllowedNext returns the legal next statuses for the given current
// status. ok is false when the current status has no table entry at all,
// which signals corrupt local data rather than a normal reject.
func AllowedNext(current Status) ([]Status, bool) {
	next, ok := ExpectedNextStates[current]
	return next, ok
}

// CanTransition reports whether moving from one status to another is
// listed in the table. Unlisted transitions are rejected, never assumed.
func CanTransition(from, to Status) bool {
	next, ok := ExpectedNextStates[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a payment in this status can never move again.
func Terminal(s Status) bool {
	next, ok := ExpectedNextStates[s]
	return ok && len(next) == 0
}
