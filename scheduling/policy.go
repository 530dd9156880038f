package scheduling

import (
	"github.com/fernanda-avila/MIndCare2025/model"
)

// Actor is the authenticated caller of a scheduling operation.
type Actor struct {
	UserID uint
	Role   model.Role
}

func (a Actor) valid() bool {
	return a.UserID != 0 && a.Role.Valid()
}

// Operation names a guarded action.
type Operation string

const (
	OpCreate             Operation = "appointment.create"
	OpUpdate             Operation = "appointment.update"
	OpCancel             Operation = "appointment.cancel"
	OpListMine           Operation = "appointment.list_mine"
	OpAgenda             Operation = "appointment.agenda"
	OpProfessionalUpdate Operation = "professional.update"
)

// Ownership is the predicate an allowed role must additionally satisfy.
type Ownership int

const (
	// OwnAny places no ownership requirement.
	OwnAny Ownership = iota
	// OwnAppointment requires the actor to own the appointment.
	OwnAppointment
	// OwnAppointmentOrLinkedProfessional also accepts the user linked to the
	// appointment's professional.
	OwnAppointmentOrLinkedProfessional
	// OwnLinkedProfessional requires the actor to be the professional's user.
	OwnLinkedProfessional
)

// Rule is one cell of the policy table.
type Rule struct {
	Allowed   bool
	Ownership Ownership
}

// Resource carries the identities ownership predicates are evaluated against.
type Resource struct {
	OwnerUserID        uint
	ProfessionalUserID *uint
}

func allow(o Ownership) Rule { return Rule{Allowed: true, Ownership: o} }

var deny = Rule{}

var policy = map[Operation]map[model.Role]Rule{
	OpCreate: {
		model.RoleAdmin:        allow(OwnAny),
		model.RoleHelper:       allow(OwnAny),
		model.RoleProfessional: allow(OwnAppointment),
		model.RoleUser:         allow(OwnAppointment),
	},
	OpUpdate: {
		model.RoleAdmin:        allow(OwnAny),
		model.RoleHelper:       allow(OwnAny),
		model.RoleProfessional: allow(OwnAppointmentOrLinkedProfessional),
		model.RoleUser:         allow(OwnAppointmentOrLinkedProfessional),
	},
	OpCancel: {
		model.RoleAdmin:        allow(OwnAny),
		model.RoleHelper:       allow(OwnAny),
		model.RoleProfessional: allow(OwnAppointment),
		model.RoleUser:         allow(OwnAppointment),
	},
	OpListMine: {
		model.RoleAdmin:        allow(OwnAny),
		model.RoleHelper:       allow(OwnAny),
		model.RoleProfessional: allow(OwnAppointmentOrLinkedProfessional),
		model.RoleUser:         allow(OwnAppointment),
	},
	OpAgenda: {
		model.RoleAdmin:        allow(OwnAny),
		model.RoleHelper:       allow(OwnLinkedProfessional),
		model.RoleProfessional: allow(OwnLinkedProfessional),
		model.RoleUser:         deny,
	},
	OpProfessionalUpdate: {
		model.RoleAdmin:        allow(OwnAny),
		model.RoleHelper:       allow(OwnLinkedProfessional),
		model.RoleProfessional: deny,
		model.RoleUser:         deny,
	},
}

// RuleFor returns the policy cell for op and role. Unknown pairs are denied.
func RuleFor(op Operation, role model.Role) Rule {
	rules, ok := policy[op]
	if !ok {
		return deny
	}
	return rules[role]
}

func (o Ownership) satisfiedBy(actor Actor, res Resource) bool {
	owner := res.OwnerUserID != 0 && res.OwnerUserID == actor.UserID
	linked := res.ProfessionalUserID != nil && *res.ProfessionalUserID == actor.UserID
	switch o {
	case OwnAny:
		return true
	case OwnAppointment:
		return owner
	case OwnAppointmentOrLinkedProfessional:
		return owner || linked
	case OwnLinkedProfessional:
		return linked
	}
	return false
}

// Authorize is the single gate every guarded operation goes through. It
// returns an ErrForbidden-wrapped error when the table denies the actor.
func Authorize(op Operation, actor Actor, res Resource) error {
	if !actor.valid() {
		return forbidden("unauthenticated actor")
	}
	rule := RuleFor(op, actor.Role)
	if !rule.Allowed {
		return forbidden("role %s may not perform %s", actor.Role, op)
	}
	if !rule.Ownership.satisfiedBy(actor, res) {
		return forbidden("%s requires ownership", op)
	}
	return nil
}
