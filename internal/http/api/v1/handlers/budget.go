package handlers

import (
	"net/http"
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
	msgBudgetNotFound = "Budget not found"
	msgBudgetExists   = "A budget for this category already exists"
	msgBudgetAmount   = "Budget amount must be a positive number"
	msgBudgetCategory = "Budget category is required"
	msgInvalidMonth   = "Month must be formatted as YYYY-MM"
)

var hundred = decimal.NewFromInt(100)

// BudgetHandler manages budget endpoints. Budgets are visible to their owner only.
type BudgetHandler struct {
	db     *gorm.DB
	logger log.FieldLogger
	now    func() time.Time
}

// NewBudgetHandler constructs a BudgetHandler.
func NewBudgetHandler(db *gorm.DB, logger log.FieldLogger) *BudgetHandler {
	return &BudgetHandler{db: db, logger: logging.OrStandard(logger), now: time.Now}
}

type budgetRequest struct {
	OwnerID    *uuid.UUID       `json:"owner_id"`
	CategoryID uint64           `json:"category_id"`
	Amount     *decimal.Decimal `json:"amount"`
}

func (r *budgetRequest) validate(c *gin.Context) bool {
	if r.CategoryID == 0 {
		response.Error(c, http.StatusBadRequest, msgBudgetCategory)
		return false
	}
	if r.Amount == nil || !r.Amount.IsPositive() {
		response.Error(c, http.StatusBadRequest, msgBudgetAmount)
		return false
	}
	return true
}

// Create adds a budget for one of the owner's categories.
func (h *BudgetHandler) Create(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var body budgetRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if !body.validate(c) {
		return
	}
	ctx := c.Request.Context()
	ownerID := ownerOrCaller(body.OwnerID, caller)

	if _, errUser := findUser(ctx, h.db, ownerID); errUser != nil {
		lookupFailed(c, h.logger, errUser, msgUserNotFound)
		return
	}
	if _, errCategory := findOwned[models.Category](ctx, h.db, body.CategoryID, ownerID); errCategory != nil {
		lookupFailed(c, h.logger, errCategory, msgCategoryNotFound)
		return
	}
	taken, errTaken := h.taken(c, ownerID, body.CategoryID, 0)
	if errTaken != nil {
		internalError(c, h.logger, errTaken, "check budget failed")
		return
	}
	if taken {
		response.Error(c, http.StatusConflict, msgBudgetExists)
		return
	}
	if !access.OwnerOnly(caller, ownerID) {
		notPermitted(c)
		return
	}

	budget := models.Budget{
		OwnerID:    ownerID,
		CategoryID: body.CategoryID,
		Amount:     *body.Amount,
	}
	if errCreate := h.db.WithContext(ctx).Create(&budget).Error; errCreate != nil {
		writeFailed(c, h.logger, errCreate, msgBudgetExists, "create budget failed")
		return
	}
	response.OK(c, budget)
}

// List returns the budgets of ?owner (default: caller).
func (h *BudgetHandler) List(c *gin.Context) {
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
	rows := make([]models.Budget, 0)
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		internalError(c, h.logger, errFind, "list budgets failed")
		return
	}
	response.OK(c, rows)
}

// Get returns one budget.
func (h *BudgetHandler) Get(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	budget, errFind := findByID[models.Budget](c.Request.Context(), h.db, id)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgBudgetNotFound)
		return
	}
	if !access.OwnerOnly(caller, budget.OwnerID) {
		notPermitted(c)
		return
	}
	response.OK(c, budget)
}

// Update changes a budget's category or amount. The owner never changes.
func (h *BudgetHandler) Update(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body budgetRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if !body.validate(c) {
		return
	}
	ctx := c.Request.Context()

	budget, errFind := findByID[models.Budget](ctx, h.db, id)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgBudgetNotFound)
		return
	}
	if _, errCategory := findOwned[models.Category](ctx, h.db, body.CategoryID, budget.OwnerID); errCategory != nil {
		lookupFailed(c, h.logger, errCategory, msgCategoryNotFound)
		return
	}
	taken, errTaken := h.taken(c, budget.OwnerID, body.CategoryID, budget.ID)
	if errTaken != nil {
		internalError(c, h.logger, errTaken, "check budget failed")
		return
	}
	if taken {
		response.Error(c, http.StatusConflict, msgBudgetExists)
		return
	}
	if !access.OwnerOnly(caller, budget.OwnerID) {
		notPermitted(c)
		return
	}

	budget.CategoryID = body.CategoryID
	budget.Amount = *body.Amount
	if errSave := h.db.WithContext(ctx).Save(budget).Error; errSave != nil {
		writeFailed(c, h.logger, errSave, msgBudgetExists, "update budget failed")
		return
	}
	response.OK(c, budget)
}

// Delete removes one budget and returns it.
func (h *BudgetHandler) Delete(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	budget, errFind := findByID[models.Budget](ctx, h.db, id)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgBudgetNotFound)
		return
	}
	if !access.OwnerOnly(caller, budget.OwnerID) {
		notPermitted(c)
		return
	}
	if errDelete := h.db.WithContext(ctx).Delete(&models.Budget{}, budget.ID).Error; errDelete != nil {
		internalError(c, h.logger, errDelete, "delete budget failed")
		return
	}
	response.OK(c, budget)
}

// BudgetProgress is the spending state of one budget for a month.
type BudgetProgress struct {
	Budget     models.Budget   `json:"budget"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Progress reports, per budget of ?owner, the expenses booked in ?month (YYYY-MM, default current).
func (h *BudgetHandler) Progress(c *gin.Context) {
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
	start, ok := h.monthStart(c)
	if !ok {
		return
	}
	end := start.AddDate(0, 1, 0)
	ctx := c.Request.Context()

	var budgets []models.Budget
	if errFind := h.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&budgets).Error; errFind != nil {
		internalError(c, h.logger, errFind, "list budgets failed")
		return
	}

	type categoryTotal struct {
		CategoryID uint64
		Total      decimal.Decimal
	}
	var totals []categoryTotal
	if errSum := h.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("category_id, SUM(transfer_amount) AS total").
		Where("owner_id = ? AND transfer_amount < 0", ownerID).
		Where("processed_at >= ? AND processed_at < ?", start, end).
		Group("category_id").
		Scan(&totals).Error; errSum != nil {
		internalError(c, h.logger, errSum, "sum expenses failed")
		return
	}
	spentBy := make(map[uint64]decimal.Decimal, len(totals))
	for _, row := range totals {
		spentBy[row.CategoryID] = row.Total.Neg()
	}

	out := make([]BudgetProgress, 0, len(budgets))
	for _, budget := range budgets {
		spent := spentBy[budget.CategoryID]
		progress := BudgetProgress{
			Budget:    budget,
			Spent:     spent,
			Remaining: budget.Amount.Sub(spent),
		}
		if budget.Amount.IsPositive() {
			progress.Percentage = spent.Mul(hundred).Div(budget.Amount).Round(2)
		}
		out = append(out, progress)
	}
	response.OK(c, out)
}

func (h *BudgetHandler) monthStart(c *gin.Context) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query("month"))
	if raw == "" {
		now := h.now().UTC()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), true
	}
	parsed, errParse := time.Parse("2006-01", raw)
	if errParse != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidMonth)
		return time.Time{}, false
	}
	return parsed.UTC(), true
}

func (h *BudgetHandler) taken(c *gin.Context, ownerID uuid.UUID, categoryID, excludeID uint64) (bool, error) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Budget{}).
		Where("owner_id = ? AND category_id = ?", ownerID, categoryID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	return exists(q)
}
