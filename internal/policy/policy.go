// Package policy decides whether an authenticated actor may perform an
// action against a target user. Rules live in one ordered list so the
// evaluation order (ownership before field-level checks) stays explicit
// and testable instead of being scattered through handlers.
package policy

import (
	"github.com/geocoder89/userhub/internal/domain/user"
)

type Action string

const (
	// ActionView covers fetch/list; any authenticated identity may view
	// any profile. Intentional in the product today, under review.
	ActionView Action = "view"

	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	// ActionChangeRole is the field-level gate on the role attribute of
	// an update payload. Evaluated separately from ActionUpdate, after
	// it, so a non-owner is rejected before escalation is considered.
	ActionChangeRole Action = "change_role"
)

// DeniedError is the typed authorization failure; handlers map it to 403.
type DeniedError struct {
	Message string
}

func (e *DeniedError) Error() string {
	return "forbidden: " + e.Message
}

type Input struct {
	Actor    user.Identity
	Action   Action
	TargetID int64
}

type rule struct {
	name    string
	applies func(Input) bool
	allow   func(Input) bool
	deny    string
}

type Evaluator struct {
	rules []rule
}

// NewEvaluator builds the default rule list. Order matters: the
// self-or-admin ownership rules run before the admin-only role gate.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		rules: []rule{
			{
				name:    "update_self_or_admin",
				applies: func(in Input) bool { return in.Action == ActionUpdate },
				allow:   selfOrAdmin,
				deny:    "You can only update your own profile",
			},
			{
				name:    "delete_self_or_admin",
				applies: func(in Input) bool { return in.Action == ActionDelete },
				allow:   selfOrAdmin,
				deny:    "You can only delete your own account",
			},
			{
				name:    "role_change_admin_only",
				applies: func(in Input) bool { return in.Action == ActionChangeRole },
				allow:   func(in Input) bool { return in.Actor.IsAdmin() },
				deny:    "Only admins can change user roles",
			},
		},
	}
}

// Evaluate walks the rule list in order and returns the first denial.
// An action no rule applies to is allowed; authentication already
// happened upstream.
func (e *Evaluator) Evaluate(in Input) error {
	for _, r := range e.rules {
		if !r.applies(in) {
			continue
		}

		if !r.allow(in) {
			return &DeniedError{Message: r.deny}
		}
	}

	return nil
}

func selfOrAdmin(in Input) bool {
	return in.Actor.IsAdmin() || in.Actor.ID == in.TargetID
}
