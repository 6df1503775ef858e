package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// UserRole separates bank administrators from users whose access comes from a role.
type UserRole string

const (
	UserRoleAdmin  UserRole = "A"
	UserRoleCustom UserRole = "C"
)

var userRoles = map[string]UserRole{
	"A":      UserRoleAdmin,
	"ADMIN":  UserRoleAdmin,
	"C":      UserRoleCustom,
	"CUSTOM": UserRoleCustom,
}

// accepts the stored letter or the spelled-out name
func (p *UserRole) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("user role must be string")
	}
	role, ok := userRoles[strings.ToUpper(strings.TrimSpace(str))]
	if !ok {
		return errors.New("invalid user role")
	}
	*p = role
	return nil
}
