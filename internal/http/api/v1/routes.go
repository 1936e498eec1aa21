package v1

import (
	"net/http"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/access"
	"github.com/budgetwise/budgetwise-api/internal/http/api/v1/handlers"
	"github.com/budgetwise/budgetwise-api/internal/http/response"
	"github.com/budgetwise/budgetwise-api/internal/logging"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/budgetwise/budgetwise-api/internal/notify"
	"github.com/budgetwise/budgetwise-api/internal/ratelimit"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the collaborators the v1 API is built from.
// Notifier, Limiter and Materializer may be nil.
type Deps struct {
	DB           *gorm.DB
	Guard        *access.Guard
	Notifier     notify.Notifier
	Limiter      *ratelimit.Manager
	Materializer handlers.Materializer
	ResetTTL     time.Duration
	Logger       log.FieldLogger
}

// NewEngine builds a gin engine with recovery, request logging and the v1 routes.
func NewEngine(deps Deps) *gin.Engine {
	logger := logging.OrStandard(deps.Logger)
	engine := gin.New()
	engine.Use(Recovery(logger), RequestLogger(logger))
	RegisterRoutes(engine, deps)
	engine.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "Route not found")
	})
	return engine
}

// RegisterRoutes registers health, auth and resource routes.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil || deps.Guard == nil {
		return
	}
	logger := logging.OrStandard(deps.Logger)

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	// Auth routes accept the session cookie only.
	authHandler := handlers.NewAuthHandler(deps.DB, deps.Guard, deps.Notifier, deps.ResetTTL, logger)
	auth := r.Group("/v1/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/validate", authHandler.Validate)
	auth.POST("/logout", authHandler.Logout)
	auth.PUT("/password", authHandler.ChangePassword)
	auth.POST("/password/reset", authHandler.RequestPasswordReset)
	auth.GET("/password/reset/:token", authHandler.ValidatePasswordReset)
	auth.POST("/password/change", authHandler.ChangePasswordWithToken)

	authed := r.Group("/v1")
	authed.Use(deps.Guard.Authenticate(true))
	if deps.Limiter != nil {
		authed.Use(ratelimit.Middleware(deps.Limiter))
	}

	categoryHandler := handlers.NewCategoryHandler(deps.DB, logger)
	authed.POST("/category", categoryHandler.Create)
	authed.GET("/category", categoryHandler.List)
	authed.GET("/category/:id", categoryHandler.Get)
	authed.PUT("/category/:id", categoryHandler.Update)
	authed.DELETE("/category", categoryHandler.Delete)

	paymentMethodHandler := handlers.NewPaymentMethodHandler(deps.DB, logger)
	authed.POST("/payment-method", paymentMethodHandler.Create)
	authed.GET("/payment-method", paymentMethodHandler.List)
	authed.GET("/payment-method/:id", paymentMethodHandler.Get)
	authed.PUT("/payment-method/:id", paymentMethodHandler.Update)
	authed.DELETE("/payment-method", paymentMethodHandler.Delete)

	budgetHandler := handlers.NewBudgetHandler(deps.DB, logger)
	authed.POST("/budget", budgetHandler.Create)
	authed.GET("/budget", budgetHandler.List)
	authed.GET("/budget/progress", budgetHandler.Progress)
	authed.GET("/budget/:id", budgetHandler.Get)
	authed.PUT("/budget/:id", budgetHandler.Update)
	authed.DELETE("/budget/:id", budgetHandler.Delete)

	subscriptionHandler := handlers.NewSubscriptionHandler(deps.DB, deps.Materializer, logger)
	authed.POST("/subscription", subscriptionHandler.Create)
	authed.GET("/subscription", subscriptionHandler.List)
	authed.GET("/subscription/all", access.RequireRole(models.RoleServiceAccount), subscriptionHandler.All)
	authed.POST("/subscription/materialize", access.RequireRole(models.RoleAdmin), subscriptionHandler.Materialize)
	authed.GET("/subscription/:id", subscriptionHandler.Get)
	authed.PUT("/subscription/:id", subscriptionHandler.Update)
	authed.DELETE("/subscription/:id", subscriptionHandler.Delete)

	transactionHandler := handlers.NewTransactionHandler(deps.DB, logger)
	authed.POST("/transaction", transactionHandler.Create)
	authed.GET("/transaction", transactionHandler.List)
	authed.DELETE("/transaction", transactionHandler.Delete)
	authed.POST("/transaction/file", transactionHandler.AttachFiles)
	authed.GET("/transaction/file", transactionHandler.ListFiles)
	authed.DELETE("/transaction/file", transactionHandler.DetachFiles)
	authed.GET("/transaction/:id", transactionHandler.Get)
	authed.PUT("/transaction/:id", transactionHandler.Update)
}
