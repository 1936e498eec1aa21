package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/access"
	"github.com/budgetwise/budgetwise-api/internal/http/response"
	"github.com/budgetwise/budgetwise-api/internal/logging"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	msgTransactionNotFound = "Transaction not found"
	msgTransactionAmount   = "Transfer amount is required"
	msgInvalidRange        = "Invalid date range"
)

// TransactionHandler manages transaction endpoints and their file attachments.
// Service accounts and admins may act on any owner's transactions.
type TransactionHandler struct {
	db     *gorm.DB
	policy access.Policy
	logger log.FieldLogger
	now    func() time.Time
}

// NewTransactionHandler constructs a TransactionHandler.
func NewTransactionHandler(db *gorm.DB, logger log.FieldLogger) *TransactionHandler {
	return &TransactionHandler{
		db:     db,
		policy: access.OwnerOrRole(models.RoleServiceAccount),
		logger: logging.OrStandard(logger),
		now:    time.Now,
	}
}

type transactionRequest struct {
	OwnerID         *uuid.UUID       `json:"owner_id"`
	CategoryID      uint64           `json:"category_id"`
	PaymentMethodID uint64           `json:"payment_method_id"`
	ProcessedAt     *time.Time       `json:"processed_at"`
	Receiver        string           `json:"receiver"`
	Description     string           `json:"description"`
	TransferAmount  *decimal.Decimal `json:"transfer_amount"`
}

func (r *transactionRequest) apply(tx *models.Transaction, now time.Time) {
	tx.CategoryID = r.CategoryID
	tx.PaymentMethodID = r.PaymentMethodID
	tx.Receiver = strings.TrimSpace(r.Receiver)
	tx.Description = strings.TrimSpace(r.Description)
	tx.TransferAmount = *r.TransferAmount
	if r.ProcessedAt != nil && !r.ProcessedAt.IsZero() {
		tx.ProcessedAt = r.ProcessedAt.UTC()
	} else if tx.ProcessedAt.IsZero() {
		tx.ProcessedAt = now.UTC()
	}
}

func (h *TransactionHandler) bind(c *gin.Context) (*transactionRequest, bool) {
	var body transactionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return nil, false
	}
	if body.TransferAmount == nil {
		response.Error(c, http.StatusBadRequest, msgTransactionAmount)
		return nil, false
	}
	return &body, true
}

func (h *TransactionHandler) checkRefs(c *gin.Context, ownerID uuid.UUID, categoryID, paymentMethodID uint64) bool {
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

// Create books a transaction. processed_at defaults to now.
func (h *TransactionHandler) Create(c *gin.Context) {
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

	row := models.Transaction{OwnerID: ownerID}
	body.apply(&row, h.now())
	if errCreate := h.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		internalError(c, h.logger, errCreate, "create transaction failed")
		return
	}
	response.OK(c, row)
}

// List returns the transactions of ?owner, newest first.
// Optional filters: ?from, ?to (RFC 3339 or YYYY-MM-DD, to exclusive) and ?category_id.
func (h *TransactionHandler) List(c *gin.Context) {
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

	q := h.db.WithContext(c.Request.Context()).Where("owner_id = ?", ownerID)
	from, okFrom := parseTimeQuery(c.Query("from"))
	to, okTo := parseTimeQuery(c.Query("to"))
	if !okFrom || !okTo || (!from.IsZero() && !to.IsZero() && !from.Before(to)) {
		response.Error(c, http.StatusBadRequest, msgInvalidRange)
		return
	}
	if !from.IsZero() {
		q = q.Where("processed_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("processed_at < ?", to)
	}
	if raw := strings.TrimSpace(c.Query("category_id")); raw != "" {
		categoryID, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			response.Error(c, http.StatusBadRequest, msgInvalidID)
			return
		}
		q = q.Where("category_id = ?", categoryID)
	}

	rows := make([]models.Transaction, 0)
	if errFind := q.Order("processed_at DESC, id DESC").Find(&rows).Error; errFind != nil {
		internalError(c, h.logger, errFind, "list transactions failed")
		return
	}
	response.OK(c, rows)
}

// parseTimeQuery accepts an empty value as "no bound".
func parseTimeQuery(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	if t, errParse := time.Parse(time.RFC3339, raw); errParse == nil {
		return t.UTC(), true
	}
	if t, errParse := time.Parse(time.DateOnly, raw); errParse == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// Get returns one transaction with its files.
func (h *TransactionHandler) Get(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var row models.Transaction
	errFind := h.db.WithContext(c.Request.Context()).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&row, id).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, msgTransactionNotFound)
			return
		}
		internalError(c, h.logger, errFind, "load transaction failed")
		return
	}
	if !h.policy(caller, row.OwnerID) {
		notPermitted(c)
		return
	}
	response.OK(c, row)
}

// Update replaces a transaction's fields. The owner never changes.
func (h *TransactionHandler) Update(c *gin.Context) {
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

	row, errFind := findByID[models.Transaction](ctx, h.db, id)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgTransactionNotFound)
		return
	}
	if !h.checkRefs(c, row.OwnerID, body.CategoryID, body.PaymentMethodID) {
		return
	}
	if !h.policy(caller, row.OwnerID) {
		notPermitted(c)
		return
	}

	body.apply(row, h.now())
	if errSave := h.db.WithContext(ctx).Save(row).Error; errSave != nil {
		internalError(c, h.logger, errSave, "update transaction failed")
		return
	}
	response.OK(c, row)
}

// Delete removes a batch of transactions together with their files.
func (h *TransactionHandler) Delete(c *gin.Context) {
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
		row, errFind := findByID[models.Transaction](ctx, h.db, item.ID)
		if errFind != nil {
			if !errors.Is(errFind, errNotFound) {
				internalError(c, h.logger, errFind, "load transaction failed")
				return
			}
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: msgTransactionNotFound})
			continue
		}
		if !h.policy(caller, row.OwnerID) {
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: access.NotPermittedMessage})
			continue
		}
		errDelete := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if errFiles := tx.Where("transaction_id = ?", row.ID).Delete(&models.TransactionFile{}).Error; errFiles != nil {
				return errFiles
			}
			return tx.Delete(&models.Transaction{}, row.ID).Error
		})
		if errDelete != nil {
			h.logger.WithError(errDelete).WithField("id", row.ID).Warn("api: delete transaction failed")
			result.Failed = append(result.Failed, BatchFailure{ID: item.ID, Reason: msgInternal})
			continue
		}
		result.Success = append(result.Success, row)
	}
	respondBatch(c, result)
}
