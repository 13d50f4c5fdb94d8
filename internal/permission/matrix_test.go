package permission

import (
	"testing"

	"servicedesk-control-plane/internal/workflow/domain"
)

func TestIsAllowed(t *testing.T) {
	cases := []struct {
		name       string
		role       Role
		transition domain.Transition
		isOwner    bool
		want       bool
	}{
		{"creator creates", RoleCreator, domain.TransitionCreate, true, true},
		{"reviewer cannot create", RoleReviewer, domain.TransitionCreate, true, false},
		{"admin cannot create for others", RoleAdmin, domain.TransitionCreate, true, false},

		{"owner submits own draft", RoleCreator, domain.TransitionSubmit, true, true},
		{"creator cannot submit foreign draft", RoleCreator, domain.TransitionSubmit, false, false},
		{"owner edits own draft", RoleCreator, domain.TransitionUpdate, true, true},
		{"creator cannot edit foreign draft", RoleCreator, domain.TransitionUpdate, false, false},
		{"admin cannot edit foreign draft", RoleAdmin, domain.TransitionUpdate, false, false},

		{"reviewer moves to review", RoleReviewer, domain.TransitionMoveToReview, false, true},
		{"creator cannot move to review", RoleCreator, domain.TransitionMoveToReview, true, false},
		{"admin moves to review", RoleAdmin, domain.TransitionMoveToReview, false, true},

		{"approver approves", RoleApprover, domain.TransitionApprove, false, true},
		{"approver rejects", RoleApprover, domain.TransitionReject, false, true},
		{"approver completes", RoleApprover, domain.TransitionComplete, false, true},
		{"reviewer cannot approve", RoleReviewer, domain.TransitionApprove, false, false},
		{"creator cannot approve own item", RoleCreator, domain.TransitionApprove, true, false},
		{"admin approves", RoleAdmin, domain.TransitionApprove, false, true},

		{"reviewer assigns", RoleReviewer, domain.TransitionAssign, false, true},
		{"approver cannot assign", RoleApprover, domain.TransitionAssign, false, false},

		{"unknown transition denied", RoleAdmin, domain.Transition("escalate"), false, false},
		{"unknown role denied", Role("auditor"), domain.TransitionApprove, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsAllowed(tc.role, tc.transition, tc.isOwner)
			if got != tc.want {
				t.Errorf("IsAllowed(%s, %s, %v) = %v, want %v", tc.role, tc.transition, tc.isOwner, got, tc.want)
			}
		})
	}
}

func TestRole_IsValid(t *testing.T) {
	for _, role := range []Role{RoleCreator, RoleReviewer, RoleApprover, RoleAdmin} {
		if !role.IsValid() {
			t.Errorf("%s should be valid", role)
		}
	}
	if Role("superuser").IsValid() {
		t.Error("superuser should not be valid")
	}
}
