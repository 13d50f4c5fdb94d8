package domain

import "servicedesk-control-plane/internal/apperr"

// Transition is a named, guarded operation on a workflow item.
type Transition string

const (
	TransitionCreate       Transition = "create"
	TransitionUpdate       Transition = "update"
	TransitionSubmit       Transition = "submit"
	TransitionMoveToReview Transition = "move_to_review"
	TransitionApprove      Transition = "approve"
	TransitionReject       Transition = "reject"
	TransitionComplete     Transition = "complete"
	TransitionAssign       Transition = "assign"
)

// IsValid returns true if t is a defined transition.
func (t Transition) IsValid() bool {
	_, ok := transitionRules[t]
	return ok || t == TransitionCreate
}

func (t Transition) String() string {
	return string(t)
}

// rule describes where a transition may start and where it lands.
// A nil to means a self-loop: the item stays in its current state but the
// operation is still recorded in the ledger (update, assign).
type rule struct {
	from map[Status]bool
	to   *Status
}

func target(s Status) *Status { return &s }

// transitionRules is the FSM table. TransitionCreate is absent because it has
// no source state; NewItem is the only way to enter the machine.
var transitionRules = map[Transition]rule{
	TransitionUpdate: {
		from: map[Status]bool{StatusDraft: true},
	},
	TransitionSubmit: {
		from: map[Status]bool{StatusDraft: true},
		to:   target(StatusSubmitted),
	},
	TransitionMoveToReview: {
		from: map[Status]bool{StatusSubmitted: true},
		to:   target(StatusInReview),
	},
	TransitionApprove: {
		from: map[Status]bool{StatusInReview: true},
		to:   target(StatusApproved),
	},
	TransitionReject: {
		from: map[Status]bool{StatusInReview: true},
		to:   target(StatusRejected),
	},
	TransitionComplete: {
		from: map[Status]bool{StatusApproved: true},
		to:   target(StatusCompleted),
	},
	TransitionAssign: {
		from: map[Status]bool{StatusSubmitted: true, StatusInReview: true},
	},
}

// ProposeTransition returns the status the item would have after t, without
// mutating the item or touching storage. Terminal states, wrong source states,
// and unknown transitions fail with InvalidTransitionError.
func (i *Item) ProposeTransition(t Transition) (Status, error) {
	r, ok := transitionRules[t]
	if !ok {
		return "", &apperr.InvalidTransitionError{From: i.Status.String(), Transition: t.String()}
	}
	if !r.from[i.Status] {
		return "", &apperr.InvalidTransitionError{From: i.Status.String(), Transition: t.String()}
	}
	if r.to == nil {
		return i.Status, nil
	}
	return *r.to, nil
}
