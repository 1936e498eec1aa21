package ratelimit

import (
	"github.com/budgetwise/budgetwise-api/internal/config"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/google/uuid"
)

// KeyFor builds the limiter key of a user.
func KeyFor(userID uuid.UUID) string {
	if userID == uuid.Nil {
		return ""
	}
	return "u:" + userID.String()
}

// LimitFor returns the per-second limit that applies to user.
// Zero means unlimited.
func LimitFor(cfg config.RateLimitConfig, user *models.User) int {
	if user == nil {
		return 0
	}
	if user.Role.Outranks(models.RoleServiceAccount) {
		return cfg.ServiceLimit
	}
	return cfg.Limit
}
