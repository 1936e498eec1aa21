package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/budgetwise/budgetwise-api/internal/access"
	"github.com/budgetwise/budgetwise-api/internal/http/response"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Messages shared by the resource handlers.
const (
	msgInvalidJSON     = "Invalid request body"
	msgInvalidID       = "Invalid id"
	msgInvalidOwner    = "Invalid owner id"
	msgInternal        = "Internal server error"
	msgUnauthenticated = "You must be signed in to perform this action"
	msgNoItems         = "No items provided"
	msgAllInvalid      = "All provided items are invalid"
	msgUserNotFound    = "User not found"
)

// errNotFound marks a row that is missing or belongs to another owner.
var errNotFound = errors.New("not found")

// BatchResult is the partial-failure body of batch operations.
type BatchResult struct {
	Success []any `json:"success"`
	Failed  []any `json:"failed"`
}

// BatchFailure describes one rejected batch item.
type BatchFailure struct {
	ID     uint64 `json:"id"`
	Reason string `json:"reason"`
}

// idRequest is one element of a batch delete body.
type idRequest struct {
	ID uint64 `json:"id"`
}

func newBatchResult() BatchResult {
	return BatchResult{Success: make([]any, 0), Failed: make([]any, 0)}
}

// respondBatch writes 200 unless every item failed.
func respondBatch(c *gin.Context, result BatchResult) {
	if len(result.Success) == 0 {
		response.JSON(c, http.StatusBadRequest, msgAllInvalid, result)
		return
	}
	response.OK(c, result)
}

// bindBatch decodes a JSON array body and rejects an empty list.
func bindBatch[T any](c *gin.Context) ([]T, bool) {
	var items []T
	if errBind := c.ShouldBindJSON(&items); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return nil, false
	}
	if len(items) == 0 {
		response.Error(c, http.StatusBadRequest, msgNoItems)
		return nil, false
	}
	return items, true
}

func mustCaller(c *gin.Context) (*models.User, bool) {
	caller, ok := access.CallerFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, msgUnauthenticated)
		return nil, false
	}
	return caller, true
}

func parseID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, msgInvalidID)
		return 0, false
	}
	return id, true
}

// resolveOwner reads ?owner=<uuid>, defaulting to the caller.
func resolveOwner(c *gin.Context, caller *models.User) (uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query("owner"))
	if raw == "" {
		return caller.ID, true
	}
	id, errParse := uuid.Parse(raw)
	if errParse != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidOwner)
		return uuid.Nil, false
	}
	return id, true
}

// ownerOrCaller returns the payload owner, or the caller when unset.
func ownerOrCaller(owner *uuid.UUID, caller *models.User) uuid.UUID {
	if owner == nil || *owner == uuid.Nil {
		return caller.ID
	}
	return *owner
}

// findUser loads the user that will own a resource.
func findUser(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if errFind := db.WithContext(ctx).First(&user, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, errNotFound
		}
		return nil, errFind
	}
	return &user, nil
}

// findByID loads a row by primary key.
func findByID[T any](ctx context.Context, db *gorm.DB, id uint64) (*T, error) {
	var row T
	if errFind := db.WithContext(ctx).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, errNotFound
		}
		return nil, errFind
	}
	return &row, nil
}

// findOwned loads a row by primary key and treats a foreign owner as missing.
func findOwned[T any](ctx context.Context, db *gorm.DB, id uint64, ownerID uuid.UUID) (*T, error) {
	var row T
	if errFind := db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, errNotFound
		}
		return nil, errFind
	}
	return &row, nil
}

// exists reports whether any row matches the query.
func exists(q *gorm.DB) (bool, error) {
	var count int64
	if errCount := q.Limit(1).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// lookupFailed writes 404 for errNotFound and 500 otherwise.
func lookupFailed(c *gin.Context, logger log.FieldLogger, err error, notFoundMessage string) {
	if errors.Is(err, errNotFound) {
		response.Error(c, http.StatusNotFound, notFoundMessage)
		return
	}
	internalError(c, logger, err, "lookup failed")
}

func internalError(c *gin.Context, logger log.FieldLogger, err error, what string) {
	logger.WithError(err).WithField("path", c.FullPath()).Error("api: " + what)
	response.Error(c, http.StatusInternalServerError, msgInternal)
}

// writeFailed answers a failed insert or update. A unique index violation
// reports the same conflict as the pre-check, since a concurrent writer can
// win between the check and the write.
func writeFailed(c *gin.Context, logger log.FieldLogger, err error, conflict, what string) {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		response.Error(c, http.StatusConflict, conflict)
		return
	}
	internalError(c, logger, err, what)
}

func notPermitted(c *gin.Context) {
	response.Error(c, http.StatusConflict, access.NotPermittedMessage)
}
