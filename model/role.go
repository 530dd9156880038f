package model

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles known to the API.
type Role string

const (
	RoleUser         Role = "USER"
	RoleHelper       Role = "HELPER"
	RoleAdmin        Role = "ADMIN"
	RoleProfessional Role = "PROFESSIONAL"
)

var allRoles = []Role{RoleUser, RoleHelper, RoleAdmin, RoleProfessional}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts a role name in any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Registrable reports whether the role may be chosen at self-registration.
func (r Role) Registrable() bool {
	return r == RoleUser || r == RoleHelper
}
