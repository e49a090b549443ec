package request

import "github.com/example/lifebank/internal/core/errkind"

// Next returns the statuses reachable from s in one step. Terminal statuses
// return nil.
func (s Status) Next() []Status {
	switch s {
	case StatusPending:
		return []Status{StatusApproved, StatusRejected, StatusCancelled}
	case StatusApproved:
		return []Status{StatusFulfilled, StatusCancelled}
	case StatusFulfilled:
		return []Status{StatusCompleted}
	case StatusCompleted, StatusRejected, StatusCancelled:
		return nil
	}
	return nil
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	case StatusPending, StatusApproved, StatusFulfilled:
		return false
	}
	return false
}

// IsActive reports whether a request in s can still make progress.
func IsActive(s Status) bool {
	return s.IsValid() && !IsTerminal(s)
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to Status) bool {
	for _, next := range from.Next() {
		if next == to {
			return true
		}
	}
	return false
}

// HasFulfilledAt reports whether a request in s must carry a fulfillment
// timestamp.
func HasFulfilledAt(s Status) bool {
	return s == StatusFulfilled || s == StatusCompleted
}

// StatusTransitionResult captures the new status and any side effect of
// entering it.
type StatusTransitionResult struct {
	OldStatus   Status
	NewStatus   Status
	FulfilledAt *int64 // set when entering Fulfilled
}

// ApplyStatusTransition checks the edge and computes the side effects.
// The caller passes now to keep this deterministic.
func ApplyStatusTransition(from, to Status, now int64) (StatusTransitionResult, error) {
	if !CanTransition(from, to) {
		if IsTerminal(from) {
			return StatusTransitionResult{}, errkind.New(errkind.InvalidStatusTransition, "%s is terminal, cannot move to %s", from, to)
		}
		return StatusTransitionResult{}, errkind.New(errkind.InvalidStatusTransition, "cannot move from %s to %s", from, to)
	}

	result := StatusTransitionResult{OldStatus: from, NewStatus: to}
	if to == StatusFulfilled {
		result.FulfilledAt = &now
	}
	return result, nil
}

// InitialStatus is the status every new request starts in.
func InitialStatus() Status {
	return StatusPending
}
