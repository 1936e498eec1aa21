package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/budgetwise/budgetwise-api/internal/access"
	dbutil "github.com/budgetwise/budgetwise-api/internal/db"
	"github.com/budgetwise/budgetwise-api/internal/http/response"
	"github.com/budgetwise/budgetwise-api/internal/logging"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	msgCategoryNotFound = "Category not found"
	msgCategoryExists   = "A category with this name already exists"
	msgCategoryName     = "Category name is required"
)

// CategoryHandler manages category endpoints. Categories are visible to their owner only.
type CategoryHandler struct {
	db     *gorm.DB
	logger log.FieldLogger
}

// NewCategoryHandler constructs a CategoryHandler.
func NewCategoryHandler(db *gorm.DB, logger log.FieldLogger) *CategoryHandler {
	return &CategoryHandler{db: db, logger: logging.OrStandard(logger)}
}

type categoryRequest struct {
	OwnerID     *uuid.UUID `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

// Create adds a category for the owner.
func (h *CategoryHandler) Create(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		response.Error(c, http.StatusBadRequest, msgCategoryName)
		return
	}
	ctx := c.Request.Context()
	ownerID := ownerOrCaller(body.OwnerID, caller)

	if _, errUser := findUser(ctx, h.db, ownerID); errUser != nil {
		lookupFailed(c, h.logger, errUser, msgUserNotFound)
		return
	}
	taken, errTaken := h.nameTaken(c, ownerID, name, 0)
	if errTaken != nil {
		internalError(c, h.logger, errTaken, "check category name failed")
		return
	}
	if taken {
		response.Error(c, http.StatusConflict, msgCategoryExists)
		return
	}
	if !access.OwnerOnly(caller, ownerID) {
		notPermitted(c)
		return
	}

	category := models.Category{
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(body.Description),
	}
	if errCreate := h.db.WithContext(ctx).Create(&category).Error; errCreate != nil {
		writeFailed(c, h.logger, errCreate, msgCategoryExists, "create category failed")
		return
	}
	response.OK(c, category)
}

// List returns the categories of ?owner (default: caller), optionally filtered by ?search.
func (h *CategoryHandler) List(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	ownerID, ok := resolveOwner(c, caller)
	if !ok {
		return
	}
	if !access.OwnerOnly(caller, ownerID) {
		notPermitted(c)
		return
	}

	q := h.db.WithContext(c.Request.Context()).Where("owner_id = ?", ownerID)
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+search+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}
	rows := make([]models.Category, 0)
	if errFind := q.Order("name ASC").Find(&rows).Error; errFind != nil {
		internalError(c, h.logger, errFind, "list categories failed")
		return
	}
	response.OK(c, rows)
}

// Get returns one category.
func (h *CategoryHandler) Get(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	category, errFind := findByID[models.Category](c.Request.Context(), h.db, id)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgCategoryNotFound)
		return
	}
	if !access.OwnerOnly(caller, category.OwnerID) {
		notPermitted(c)
		return
	}
	response.OK(c, category)
}

// Update renames or re-describes a category. The owner never changes.
func (h *CategoryHandler) Update(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		response.Error(c, http.StatusBadRequest, msgCategoryName)
		return
	}
	ctx := c.Request.Context()

	category, errFind := findByID[models.Category](ctx, h.db, id)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgCategoryNotFound)
		return
	}
	taken, errTaken := h.nameTaken(c, category.OwnerID, name, category.ID)
	if errTaken != nil {
		internalError(c, h.logger, errTaken, "check category name failed")
		return
	}
	if taken {
		response.Error(c, http.StatusConflict, msgCategoryExists)
		return
	}
	if !access.OwnerOnly(caller, category.OwnerID) {
		notPermitted(c)
		return
	}

	category.Name = name
	category.Description = strings.TrimSpace(body.Description)
	if errSave := h.db.WithContext(ctx).Save(category).Error; errSave != nil {
		writeFailed(c, h.logger, errSave, msgCategoryExists, "update category failed")
		return
	}
	response.OK(c, category)
}

// Delete removes a batch of categories, reporting per-item failures.
func (h *CategoryHandler) Delete(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	items, ok := bindBatch[idRequest](c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result := newBatchResult()
	for _, item := range items {
		category, errFind := findByID[models.Category](ctx, h.db, item.ID)
		if errFind != nil {
			if !errors.Is(errFind, errNotFound) {
				internalError(c, h.logger, errFind, "load category failed")
				return
			}
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: msgCategoryNotFound})
			continue
		}
		if !access.OwnerOnly(caller, category.OwnerID) {
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: access.NotPermittedMessage})
			continue
		}
		if errDelete := h.db.WithContext(ctx).Delete(&models.Category{}, category.ID).Error; errDelete != nil {
			h.logger.WithError(errDelete).WithField("id", category.ID).Warn("api: delete category failed")
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: msgInternal})
			continue
		}
		result.Success = append(result.Success, category)
	}
	respondBatch(c, result)
}

func (h *CategoryHandler) nameTaken(c *gin.Context, ownerID uuid.UUID, name string, excludeID uint64) (bool, error) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Category{}).
		Where("owner_id = ?", ownerID).
		Where(dbutil.LowerEqualsExpr("name"), name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	return exists(q)
}
