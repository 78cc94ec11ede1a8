// Package authz is the single decision point for resource access.
// There are exactly two rules in the system: admins can do everything,
// everyone else can only touch tasks they own. Ownership is binary and
// non-transferable; there is no sharing or delegation model.
package authz

import (
	"primetask/internal/model"

	"github.com/google/uuid"
)

// CanAccessTask reports whether a caller may read, update or delete a
// task owned by ownerID. Unknown roles are denied.
func CanAccessTask(role model.Role, callerID, ownerID uuid.UUID) bool {
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleUser:
		return callerID == ownerID
	default:
		return false
	}
}

// TaskScope returns the owner filter for list and stats operations:
// nil means unscoped (admin sees everything), otherwise the caller only
// sees their own tasks. Scoping is never an error.
func TaskScope(role model.Role, callerID uuid.UUID) *uuid.UUID {
	if role == model.RoleAdmin {
		return nil
	}
	id := callerID
	return &id
}

// CanManageUsers reports whether a caller may access the user resource
// (list, read, update, delete other accounts).
func CanManageUsers(role model.Role) bool {
	return role == model.RoleAdmin
}
