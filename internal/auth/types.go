package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the authorisation tier carried in a token.
type Role string

const (
	// RoleViewer can read junction state, corridors and history.
	RoleViewer Role = "viewer"

	// RoleOperator is a traffic operator: reads everything and issues
	// manual overrides.
	RoleOperator Role = "operator"

	// RoleDispatcher is an emergency dispatcher: everything an operator can
	// do plus emergency preemption.
	RoleDispatcher Role = "dispatcher"
)

// ValidRoles lists every role a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleDispatcher}

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ValidRoles {
		if r == v {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Sentinel errors; match with errors.Is.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrUnknownRole  = errors.New("unknown role")
	ErrForbidden    = errors.New("insufficient permissions")
)
