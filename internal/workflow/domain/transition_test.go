package domain

import (
	"errors"
	"testing"
	"time"

	"servicedesk-control-plane/internal/apperr"
)

func draftItem(t *testing.T) *Item {
	t.Helper()
	item, err := NewItem("item-1", "user-1", "Broken monitor", "Flickers on boot", CategoryHardware, PriorityNormal, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	return item
}

func TestProposeTransition_HappyPath(t *testing.T) {
	steps := []struct {
		transition Transition
		want       Status
	}{
		{TransitionSubmit, StatusSubmitted},
		{TransitionMoveToReview, StatusInReview},
		{TransitionApprove, StatusApproved},
		{TransitionComplete, StatusCompleted},
	}

	item := draftItem(t)
	for _, step := range steps {
		next, err := item.ProposeTransition(step.transition)
		if err != nil {
			t.Fatalf("ProposeTransition(%s) from %s: %v", step.transition, item.Status, err)
		}
		if next != step.want {
			t.Fatalf("ProposeTransition(%s) = %s, want %s", step.transition, next, step.want)
		}
		item.Status = next
	}
}

func TestProposeTransition_RejectPath(t *testing.T) {
	item := draftItem(t)
	item.Status = StatusInReview

	next, err := item.ProposeTransition(TransitionReject)
	if err != nil {
		t.Fatalf("ProposeTransition(reject): %v", err)
	}
	if next != StatusRejected {
		t.Errorf("ProposeTransition(reject) = %s, want %s", next, StatusRejected)
	}
}

func TestProposeTransition_SelfLoops(t *testing.T) {
	item := draftItem(t)

	next, err := item.ProposeTransition(TransitionUpdate)
	if err != nil {
		t.Fatalf("ProposeTransition(update): %v", err)
	}
	if next != StatusDraft {
		t.Errorf("update from draft = %s, want %s", next, StatusDraft)
	}

	for _, status := range []Status{StatusSubmitted, StatusInReview} {
		item.Status = status
		next, err := item.ProposeTransition(TransitionAssign)
		if err != nil {
			t.Fatalf("ProposeTransition(assign) from %s: %v", status, err)
		}
		if next != status {
			t.Errorf("assign from %s = %s, want state unchanged", status, next)
		}
	}
}

func TestProposeTransition_Invalid(t *testing.T) {
	cases := []struct {
		name       string
		status     Status
		transition Transition
	}{
		{"skip to review", StatusDraft, TransitionMoveToReview},
		{"skip to approve", StatusDraft, TransitionApprove},
		{"approve before review", StatusSubmitted, TransitionApprove},
		{"complete without approval", StatusInReview, TransitionComplete},
		{"submit twice", StatusSubmitted, TransitionSubmit},
		{"update after draft", StatusSubmitted, TransitionUpdate},
		{"assign draft", StatusDraft, TransitionAssign},
		{"reopen rejected", StatusRejected, TransitionSubmit},
		{"complete rejected", StatusRejected, TransitionComplete},
		{"complete completed", StatusCompleted, TransitionComplete},
		{"assign completed", StatusCompleted, TransitionAssign},
		{"unknown transition", StatusDraft, Transition("escalate")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := draftItem(t)
			item.Status = tc.status
			_, err := item.ProposeTransition(tc.transition)
			var invalid *apperr.InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("ProposeTransition(%s) from %s: err = %v, want InvalidTransitionError", tc.transition, tc.status, err)
			}
			if invalid.From != tc.status.String() {
				t.Errorf("error From = %q, want %q", invalid.From, tc.status)
			}
			if item.Status != tc.status {
				t.Errorf("item status changed to %s on failed transition", item.Status)
			}
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, status := range []Status{StatusRejected, StatusCompleted} {
		if !status.IsTerminal() {
			t.Errorf("%s should be terminal", status)
		}
	}
	for _, status := range []Status{StatusDraft, StatusSubmitted, StatusInReview, StatusApproved} {
		if status.IsTerminal() {
			t.Errorf("%s should not be terminal", status)
		}
	}
}
