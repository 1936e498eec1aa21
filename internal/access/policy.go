package access

import (
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/google/uuid"
)

// NotPermittedMessage is returned when the caller may not act on a resource.
const NotPermittedMessage = "You are not permitted to perform this action"

// Policy decides whether caller may act on a resource owned by ownerID.
type Policy func(caller *models.User, ownerID uuid.UUID) bool

// IsOwner reports whether caller owns the resource.
func IsOwner(caller *models.User, ownerID uuid.UUID) bool {
	return caller != nil && ownerID != uuid.Nil && caller.ID == ownerID
}

// CanAccess allows the owner and any caller at or above min.
func CanAccess(caller *models.User, ownerID uuid.UUID, min models.Role) bool {
	if caller == nil {
		return false
	}
	return IsOwner(caller, ownerID) || caller.Role.Outranks(min)
}

// OwnerOnly admits only the owner.
var OwnerOnly Policy = IsOwner

// OwnerOrRole admits the owner and callers at or above min.
func OwnerOrRole(min models.Role) Policy {
	return func(caller *models.User, ownerID uuid.UUID) bool {
		return CanAccess(caller, ownerID, min)
	}
}
