package scheduling

import (
	"testing"

	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizeTable(t *testing.T) {
	const me, someone = uint(1), uint(2)
	mine := &[]uint{me}[0]
	theirs := &[]uint{someone}[0]

	tests := []struct {
		name  string
		op    Operation
		role  model.Role
		res   Resource
		allow bool
	}{
		{"admin updates anything", OpUpdate, model.RoleAdmin, Resource{OwnerUserID: someone}, true},
		{"helper updates anything", OpUpdate, model.RoleHelper, Resource{OwnerUserID: someone}, true},
		{"user updates own", OpUpdate, model.RoleUser, Resource{OwnerUserID: me}, true},
		{"user updates foreign", OpUpdate, model.RoleUser, Resource{OwnerUserID: someone}, false},
		{"professional updates linked", OpUpdate, model.RoleProfessional, Resource{OwnerUserID: someone, ProfessionalUserID: mine}, true},
		{"professional updates unlinked", OpUpdate, model.RoleProfessional, Resource{OwnerUserID: someone, ProfessionalUserID: theirs}, false},
		{"user cancels own", OpCancel, model.RoleUser, Resource{OwnerUserID: me}, true},
		{"linked professional cannot cancel", OpCancel, model.RoleProfessional, Resource{OwnerUserID: someone, ProfessionalUserID: mine}, false},
		{"admin agenda", OpAgenda, model.RoleAdmin, Resource{ProfessionalUserID: theirs}, true},
		{"helper own agenda", OpAgenda, model.RoleHelper, Resource{ProfessionalUserID: mine}, true},
		{"helper foreign agenda", OpAgenda, model.RoleHelper, Resource{ProfessionalUserID: theirs}, false},
		{"helper unlinked agenda", OpAgenda, model.RoleHelper, Resource{}, false},
		{"user agenda", OpAgenda, model.RoleUser, Resource{ProfessionalUserID: mine}, false},
		{"helper edits own profile", OpProfessionalUpdate, model.RoleHelper, Resource{ProfessionalUserID: mine}, true},
		{"professional edits profile", OpProfessionalUpdate, model.RoleProfessional, Resource{ProfessionalUserID: mine}, false},
		{"user books for self", OpCreate, model.RoleUser, Resource{OwnerUserID: me}, true},
		{"user books for another", OpCreate, model.RoleUser, Resource{OwnerUserID: someone}, false},
		{"admin books for another", OpCreate, model.RoleAdmin, Resource{OwnerUserID: someone}, true},
		{"unknown operation", Operation("appointment.delete"), model.RoleAdmin, Resource{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.op, Actor{UserID: me, Role: tt.role}, tt.res)
			if tt.allow {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorizeRejectsInvalidActor(t *testing.T) {
	assert.ErrorIs(t, Authorize(OpCreate, Actor{UserID: 0, Role: model.RoleAdmin}, Resource{}), ErrForbidden)
	assert.ErrorIs(t, Authorize(OpCreate, Actor{UserID: 1, Role: "ROOT"}, Resource{OwnerUserID: 1}), ErrForbidden)
}

func TestEveryOperationCoversEveryRole(t *testing.T) {
	for op, rules := range policy {
		for _, role := range []model.Role{model.RoleAdmin, model.RoleHelper, model.RoleProfessional, model.RoleUser} {
			_, ok := rules[role]
			assert.True(t, ok, "%s has no rule for %s", op, role)
		}
	}
}
