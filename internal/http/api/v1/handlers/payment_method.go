package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/budgetwise/budgetwise-api/internal/access"
	"github.com/budgetwise/budgetwise-api/internal/http/response"
	"github.com/budgetwise/budgetwise-api/internal/logging"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	msgPaymentMethodNotFound = "Payment method not found"
	msgPaymentMethodExists   = "This payment method already exists"
	msgPaymentMethodFields   = "Payment method name and address are required"
)

// PaymentMethodHandler manages payment method endpoints.
type PaymentMethodHandler struct {
	db     *gorm.DB
	logger log.FieldLogger
}

// NewPaymentMethodHandler constructs a PaymentMethodHandler.
func NewPaymentMethodHandler(db *gorm.DB, logger log.FieldLogger) *PaymentMethodHandler {
	return &PaymentMethodHandler{db: db, logger: logging.OrStandard(logger)}
}

type paymentMethodRequest struct {
	OwnerID     *uuid.UUID `json:"owner_id"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Description string     `json:"description"`
}

func (r *paymentMethodRequest) normalize() bool {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	r.Description = strings.TrimSpace(r.Description)
	return r.Name != "" && r.Address != ""
}

// Create adds a payment method for the owner.
func (h *PaymentMethodHandler) Create(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var body paymentMethodRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if !body.normalize() {
		response.Error(c, http.StatusBadRequest, msgPaymentMethodFields)
		return
	}
	ctx := c.Request.Context()
	ownerID := ownerOrCaller(body.OwnerID, caller)

	if _, errUser := findUser(ctx, h.db, ownerID); errUser != nil {
		lookupFailed(c, h.logger, errUser, msgUserNotFound)
		return
	}
	taken, errTaken := h.taken(c, ownerID, body.Name, body.Address, 0)
	if errTaken != nil {
		internalError(c, h.logger, errTaken, "check payment method failed")
		return
	}
	if taken {
		response.Error(c, http.StatusConflict, msgPaymentMethodExists)
		return
	}
	if !access.OwnerOnly(caller, ownerID) {
		notPermitted(c)
		return
	}

	method := models.PaymentMethod{
		OwnerID:     ownerID,
		Name:        body.Name,
		Address:     body.Address,
		Description: body.Description,
	}
	if errCreate := h.db.WithContext(ctx).Create(&method).Error; errCreate != nil {
		writeFailed(c, h.logger, errCreate, msgPaymentMethodExists, "create payment method failed")
		return
	}
	response.OK(c, method)
}

// List returns the payment methods of ?owner (default: caller).
func (h *PaymentMethodHandler) List(c *gin.Context) {
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
	rows := make([]models.PaymentMethod, 0)
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&rows).Error; errFind != nil {
		internalError(c, h.logger, errFind, "list payment methods failed")
		return
	}
	response.OK(c, rows)
}

// Get returns one payment method.
func (h *PaymentMethodHandler) Get(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	method, errFind := findByID[models.PaymentMethod](c.Request.Context(), h.db, id)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgPaymentMethodNotFound)
		return
	}
	if !access.OwnerOnly(caller, method.OwnerID) {
		notPermitted(c)
		return
	}
	response.OK(c, method)
}

// Update changes a payment method. The owner never changes.
func (h *PaymentMethodHandler) Update(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body paymentMethodRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if !body.normalize() {
		response.Error(c, http.StatusBadRequest, msgPaymentMethodFields)
		return
	}
	ctx := c.Request.Context()

	method, errFind := findByID[models.PaymentMethod](ctx, h.db, id)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgPaymentMethodNotFound)
		return
	}
	taken, errTaken := h.taken(c, method.OwnerID, body.Name, body.Address, method.ID)
	if errTaken != nil {
		internalError(c, h.logger, errTaken, "check payment method failed")
		return
	}
	if taken {
		response.Error(c, http.StatusConflict, msgPaymentMethodExists)
		return
	}
	if !access.OwnerOnly(caller, method.OwnerID) {
		notPermitted(c)
		return
	}

	method.Name = body.Name
	method.Address = body.Address
	method.Description = body.Description
	if errSave := h.db.WithContext(ctx).Save(method).Error; errSave != nil {
		writeFailed(c, h.logger, errSave, msgPaymentMethodExists, "update payment method failed")
		return
	}
	response.OK(c, method)
}

// Delete removes a batch of payment methods, reporting per-item failures.
func (h *PaymentMethodHandler) Delete(c *gin.Context) {
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
		method, errFind := findByID[models.PaymentMethod](ctx, h.db, item.ID)
		if errFind != nil {
			if !errors.Is(errFind, errNotFound) {
				internalError(c, h.logger, errFind, "load payment method failed")
				return
			}
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: msgPaymentMethodNotFound})
			continue
		}
		if !access.OwnerOnly(caller, method.OwnerID) {
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: access.NotPermittedMessage})
			continue
		}
		if errDelete := h.db.WithContext(ctx).Delete(&models.PaymentMethod{}, method.ID).Error; errDelete != nil {
			h.logger.WithError(errDelete).WithField("id", method.ID).Warn("api: delete payment method failed")
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: msgInternal})
			continue
		}
		result.Success = append(result.Success, method)
	}
	respondBatch(c, result)
}

func (h *PaymentMethodHandler) taken(c *gin.Context, ownerID uuid.UUID, name, address string, excludeID uint64) (bool, error) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.PaymentMethod{}).
		Where("owner_id = ? AND name = ? AND address = ?", ownerID, name, address)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	return exists(q)
}
