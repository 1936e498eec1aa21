package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/access"
	"github.com/budgetwise/budgetwise-api/internal/http/response"
	"github.com/budgetwise/budgetwise-api/internal/logging"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/budgetwise/budgetwise-api/internal/subscriptions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	msgSubscriptionNotFound = "Subscription not found"
	msgInvalidExecuteAt     = "Execution must lay between the first and 31nd of the month"
	msgSubscriptionAmount   = "Transfer amount is required"
	msgAlreadyMaterialized  = "Subscriptions were already materialized today"
)

// Materializer runs the subscription job on demand.
type Materializer interface {
	RunOnce(ctx context.Context, now time.Time) (int, error)
}

// SubscriptionHandler manages subscription endpoints.
// Service accounts and admins may act on any owner's subscriptions.
type SubscriptionHandler struct {
	db           *gorm.DB
	materializer Materializer
	policy       access.Policy
	logger       log.FieldLogger
	now          func() time.Time
}

// NewSubscriptionHandler constructs a SubscriptionHandler. materializer may be nil.
func NewSubscriptionHandler(db *gorm.DB, materializer Materializer, logger log.FieldLogger) *SubscriptionHandler {
	return &SubscriptionHandler{
		db:           db,
		materializer: materializer,
		policy:       access.OwnerOrRole(models.RoleServiceAccount),
		logger:       logging.OrStandard(logger),
		now:          time.Now,
	}
}

type subscriptionRequest struct {
	OwnerID         *uuid.UUID       `json:"owner_id"`
	CategoryID      uint64           `json:"category_id"`
	PaymentMethodID uint64           `json:"payment_method_id"`
	Paused          bool             `json:"paused"`
	ExecuteAt       int              `json:"execute_at"`
	Receiver        string           `json:"receiver"`
	Description     string           `json:"description"`
	TransferAmount  *decimal.Decimal `json:"transfer_amount"`
}

// bind decodes and validates the body. The execution day is checked before anything else.
func (h *SubscriptionHandler) bind(c *gin.Context) (*subscriptionRequest, bool) {
	var body subscriptionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return nil, false
	}
	if !models.ValidExecuteAt(body.ExecuteAt) {
		response.Error(c, http.StatusConflict, msgInvalidExecuteAt)
		return nil, false
	}
	if body.TransferAmount == nil {
		response.Error(c, http.StatusBadRequest, msgSubscriptionAmount)
		return nil, false
	}
	return &body, true
}

// checkRefs verifies category and payment method belong to ownerID.
func (h *SubscriptionHandler) checkRefs(c *gin.Context, ownerID uuid.UUID, categoryID, paymentMethodID uint64) bool {
	ctx := c.Request.Context()
	if _, errCategory := findOwned[models.Category](ctx, h.db, categoryID, ownerID); errCategory != nil {
		lookupFailed(c, h.logger, errCategory, msgCategoryNotFound)
		return false
	}
	if _, errMethod := findOwned[models.PaymentMethod](ctx, h.db, paymentMethodID, ownerID); errMethod != nil {
		lookupFailed(c, h.logger, errMethod, msgPaymentMethodNotFound)
		return false
	}
	return true
}

// Create adds a subscription.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	body, ok := h.bind(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ownerID := ownerOrCaller(body.OwnerID, caller)

	if _, errUser := findUser(ctx, h.db, ownerID); errUser != nil {
		lookupFailed(c, h.logger, errUser, msgUserNotFound)
		return
	}
	if !h.checkRefs(c, ownerID, body.CategoryID, body.PaymentMethodID) {
		return
	}
	if !h.policy(caller, ownerID) {
		notPermitted(c)
		return
	}

	sub := models.Subscription{OwnerID: ownerID}
	body.apply(&sub)
	if errCreate := h.db.WithContext(ctx).Create(&sub).Error; errCreate != nil {
		internalError(c, h.logger, errCreate, "create subscription failed")
		return
	}
	response.OK(c, sub)
}

func (r *subscriptionRequest) apply(sub *models.Subscription) {
	sub.CategoryID = r.CategoryID
	sub.PaymentMethodID = r.PaymentMethodID
	sub.Paused = r.Paused
	sub.ExecuteAt = r.ExecuteAt
	sub.Receiver = strings.TrimSpace(r.Receiver)
	sub.Description = strings.TrimSpace(r.Description)
	sub.TransferAmount = *r.TransferAmount
}

// List returns the subscriptions of ?owner (default: caller).
func (h *SubscriptionHandler) List(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	ownerID, ok := resolveOwner(c, caller)
	if !ok {
		return
	}
	if !h.policy(caller, ownerID) {
		notPermitted(c)
		return
	}
	rows := make([]models.Subscription, 0)
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("owner_id = ?", ownerID).
		Order("execute_at ASC, id ASC").
		Find(&rows).Error; errFind != nil {
		internalError(c, h.logger, errFind, "list subscriptions failed")
		return
	}
	response.OK(c, rows)
}

// All returns every subscription. Mounted behind a service-account role check.
func (h *SubscriptionHandler) All(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Subscription{})
	if paused := strings.TrimSpace(c.Query("paused")); paused != "" {
		q = q.Where("paused = ?", paused == "true" || paused == "1")
	}
	rows := make([]models.Subscription, 0)
	if errFind := q.Order("id ASC").Find(&rows).Error; errFind != nil {
		internalError(c, h.logger, errFind, "list all subscriptions failed")
		return
	}
	response.OK(c, rows)
}

// Get returns one subscription.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	sub, errFind := findByID[models.Subscription](c.Request.Context(), h.db, id)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgSubscriptionNotFound)
		return
	}
	if !h.policy(caller, sub.OwnerID) {
		notPermitted(c)
		return
	}
	response.OK(c, sub)
}

// Update replaces a subscription's fields. The owner never changes.
func (h *SubscriptionHandler) Update(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	body, ok := h.bind(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	sub, errFind := findByID[models.Subscription](ctx, h.db, id)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgSubscriptionNotFound)
		return
	}
	if !h.checkRefs(c, sub.OwnerID, body.CategoryID, body.PaymentMethodID) {
		return
	}
	if !h.policy(caller, sub.OwnerID) {
		notPermitted(c)
		return
	}

	body.apply(sub)
	if errSave := h.db.WithContext(ctx).Save(sub).Error; errSave != nil {
		internalError(c, h.logger, errSave, "update subscription failed")
		return
	}
	response.OK(c, sub)
}

// Delete removes one subscription. Transactions it produced are kept.
func (h *SubscriptionHandler) Delete(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sub, errFind := findByID[models.Subscription](ctx, h.db, id)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgSubscriptionNotFound)
		return
	}
	if !h.policy(caller, sub.OwnerID) {
		notPermitted(c)
		return
	}
	if errDelete := h.db.WithContext(ctx).Delete(&models.Subscription{}, sub.ID).Error; errDelete != nil {
		internalError(c, h.logger, errDelete, "delete subscription failed")
		return
	}
	response.OK(c, sub)
}

// Materialize runs today's materialization immediately. Mounted behind an admin role check.
func (h *SubscriptionHandler) Materialize(c *gin.Context) {
	if h.materializer == nil {
		response.Error(c, http.StatusServiceUnavailable, "Scheduler is not configured")
		return
	}
	created, errRun := h.materializer.RunOnce(c.Request.Context(), h.now())
	if errRun != nil {
		if errors.Is(errRun, subscriptions.ErrAlreadyRan) {
			response.Error(c, http.StatusConflict, msgAlreadyMaterialized)
			return
		}
		internalError(c, h.logger, errRun, "materialize subscriptions failed")
		return
	}
	response.OK(c, gin.H{"created": created})
}
