// Package permission is the static role/transition allow table consulted by
// the orchestrator before any mutation is computed. It is a pure lookup with
// no state and no side effects.
package permission

import "servicedesk-control-plane/internal/workflow/domain"

// Role is a caller's capability as supplied by the identity collaborator.
type Role string

const (
	RoleCreator  Role = "creator"
	RoleReviewer Role = "reviewer"
	RoleApprover Role = "approver"
	RoleAdmin    Role = "admin"
)

var validRoles = map[Role]bool{
	RoleCreator:  true,
	RoleReviewer: true,
	RoleApprover: true,
	RoleAdmin:    true,
}

// IsValid returns true if r is a defined role.
func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}

// entry marks which roles may perform a transition and whether the actor must
// own the item. Ownership-guarded transitions (create, update, submit) are
// never granted to admin: only the owning creator edits their draft.
type entry struct {
	roles     map[Role]bool
	ownerOnly bool
}

var matrix = map[domain.Transition]entry{
	domain.TransitionCreate: {
		roles: map[Role]bool{RoleCreator: true},
	},
	domain.TransitionUpdate: {
		roles:     map[Role]bool{RoleCreator: true},
		ownerOnly: true,
	},
	domain.TransitionSubmit: {
		roles:     map[Role]bool{RoleCreator: true},
		ownerOnly: true,
	},
	domain.TransitionMoveToReview: {
		roles: map[Role]bool{RoleReviewer: true, RoleAdmin: true},
	},
	domain.TransitionApprove: {
		roles: map[Role]bool{RoleApprover: true, RoleAdmin: true},
	},
	domain.TransitionReject: {
		roles: map[Role]bool{RoleApprover: true, RoleAdmin: true},
	},
	domain.TransitionComplete: {
		roles: map[Role]bool{RoleApprover: true, RoleAdmin: true},
	},
	domain.TransitionAssign: {
		roles: map[Role]bool{RoleReviewer: true, RoleAdmin: true},
	},
}

// IsAllowed reports whether role may perform t. isOwner is the precomputed
// ownership predicate (actor_id == item.creator_id); it only matters for
// ownership-guarded transitions.
func IsAllowed(role Role, t domain.Transition, isOwner bool) bool {
	e, ok := matrix[t]
	if !ok {
		return false
	}
	if !e.roles[role] {
		return false
	}
	if e.ownerOnly && !isOwner {
		return false
	}
	return true
}
