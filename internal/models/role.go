package models

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the campus role stored on every user entry.
type Role string

const (
	RoleStudent Role = "alumno"
	RoleTeacher Role = "profesor"
	RoleAdmin   Role = "admin"
)

// DefaultRole is assigned at first sign-in.
const DefaultRole = RoleStudent

var ErrInvalidRole = errors.New("invalid role")

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// ParseRole accepts the stored values, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}
