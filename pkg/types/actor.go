package types

import (
	"github.com/google/uuid"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
)

// Actor identifies the user a core operation runs on behalf of. It is
// always passed explicitly; nothing in the engine resolves the current
// user from ambient state.
type Actor struct {
	ID    uuid.UUID
	Roles []enums.Role
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	for _, role := range a.Roles {
		if role == enums.RoleAdmin {
			return true
		}
	}
	return false
}
