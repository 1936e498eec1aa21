package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/access"
	dbutil "github.com/budgetwise/budgetwise-api/internal/db"
	"github.com/budgetwise/budgetwise-api/internal/http/response"
	"github.com/budgetwise/budgetwise-api/internal/logging"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/budgetwise/budgetwise-api/internal/notify"
	"github.com/budgetwise/budgetwise-api/internal/security"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	msgEmailInUse       = "This email is already in use"
	msgWrongPassword    = "The provided password is incorrect"
	msgInvalidEmail     = "A valid email is required"
	msgNameRequired     = "Name is required"
	msgPasswordTooShort = "Password must be at least 6 characters"
	msgResetNotFound    = "Password reset request not found"
	msgResetUsed        = "This password reset link was already used"
	msgResetExpired     = "This password reset link has expired"
	msgResetRequested   = "A password reset link was sent"
	msgPasswordChanged  = "Password changed"
	msgSignedOut        = "Signed out"
)

const (
	minPasswordLength = 6
	resetTokenBytes   = 32
)

var errResetConsumed = errors.New("password reset already used")

// AuthHandler serves registration, sign-in and password reset.
type AuthHandler struct {
	db       *gorm.DB
	guard    *access.Guard
	notifier notify.Notifier
	resetTTL time.Duration
	now      func() time.Time
	logger   log.FieldLogger
}

// NewAuthHandler constructs an AuthHandler. notifier may be nil.
func NewAuthHandler(db *gorm.DB, guard *access.Guard, notifier notify.Notifier, resetTTL time.Duration, logger log.FieldLogger) *AuthHandler {
	return &AuthHandler{
		db:       db,
		guard:    guard,
		notifier: notifier,
		resetTTL: resetTTL,
		now:      time.Now,
		logger:   logging.OrStandard(logger),
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Password string `json:"password"`
}

// Register creates a BASIC account.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	email := normalizeEmail(body.Email)
	name := strings.TrimSpace(body.Name)
	switch {
	case !validEmail(email):
		response.Error(c, http.StatusBadRequest, msgInvalidEmail)
		return
	case name == "":
		response.Error(c, http.StatusBadRequest, msgNameRequired)
		return
	case len(body.Password) < minPasswordLength:
		response.Error(c, http.StatusBadRequest, msgPasswordTooShort)
		return
	}
	ctx := c.Request.Context()

	taken, errTaken := exists(h.db.WithContext(ctx).Model(&models.User{}).Where(dbutil.LowerEqualsExpr("email"), email))
	if errTaken != nil {
		internalError(c, h.logger, errTaken, "check email failed")
		return
	}
	if taken {
		response.Error(c, http.StatusConflict, msgEmailInUse)
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		internalError(c, h.logger, errHash, "hash password failed")
		return
	}
	user := models.User{
		Email:    email,
		Name:     name,
		Surname:  strings.TrimSpace(body.Surname),
		Password: hash,
		Role:     models.RoleBasic,
	}
	if errCreate := h.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		writeFailed(c, h.logger, errCreate, msgEmailInUse, "create user failed")
		return
	}
	h.notify(notify.PathRegister, mailFor(&user))
	response.OK(c, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	user, errFind := h.userByEmail(c.Request.Context(), body.Email)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgUserNotFound)
		return
	}
	if !security.CheckPassword(user.Password, body.Password) {
		response.Error(c, http.StatusUnauthorized, msgWrongPassword)
		return
	}
	if errIssue := h.guard.IssueSession(c, user.ID); errIssue != nil {
		internalError(c, h.logger, errIssue, "issue session failed")
		return
	}
	response.OK(c, user)
}

// Validate returns the live user behind the session cookie.
func (h *AuthHandler) Validate(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	response.OK(c, user)
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.guard.ClearSession(c)
	response.JSON(c, http.StatusOK, msgSignedOut, nil)
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset issues a one-time token and mails it to the user.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var body resetRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	ctx := c.Request.Context()
	user, errFind := h.userByEmail(ctx, body.Email)
	if errFind != nil {
		lookupFailed(c, h.logger, errFind, msgUserNotFound)
		return
	}
	token, errToken := security.GenerateRandomString(resetTokenBytes)
	if errToken != nil {
		internalError(c, h.logger, errToken, "generate reset token failed")
		return
	}
	reset := models.PasswordReset{OwnerID: user.ID, Token: token}
	if errCreate := h.db.WithContext(ctx).Create(&reset).Error; errCreate != nil {
		internalError(c, h.logger, errCreate, "create password reset failed")
		return
	}
	h.notify(notify.PathPasswordReset, notify.PasswordResetMail{AccountMail: mailFor(user), Token: token})
	response.JSON(c, http.StatusOK, msgResetRequested, nil)
}

// ValidatePasswordReset reports whether :token may still be used.
func (h *AuthHandler) ValidatePasswordReset(c *gin.Context) {
	if _, ok := h.usableReset(c, c.Param("token")); !ok {
		return
	}
	response.JSON(c, http.StatusOK, "", gin.H{"valid": true})
}

type changeWithTokenRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ChangePasswordWithToken consumes a reset token and sets a new password.
func (h *AuthHandler) ChangePasswordWithToken(c *gin.Context) {
	var body changeWithTokenRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if len(body.Password) < minPasswordLength {
		response.Error(c, http.StatusBadRequest, msgPasswordTooShort)
		return
	}
	reset, ok := h.usableReset(c, body.Token)
	if !ok {
		return
	}
	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		internalError(c, h.logger, errHash, "hash password failed")
		return
	}

	var user models.User
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		consumed := tx.Model(&models.PasswordReset{}).
			Where("id = ? AND used = ?", reset.ID, false).
			Update("used", true)
		if consumed.Error != nil {
			return consumed.Error
		}
		if consumed.RowsAffected == 0 {
			return errResetConsumed
		}
		if errFind := tx.First(&user, "id = ?", reset.OwnerID).Error; errFind != nil {
			return errFind
		}
		return tx.Model(&user).Update("password", hash).Error
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, errResetConsumed):
			response.Error(c, http.StatusUnauthorized, msgResetUsed)
		case errors.Is(errTx, gorm.ErrRecordNotFound):
			response.Error(c, http.StatusNotFound, msgUserNotFound)
		default:
			internalError(c, h.logger, errTx, "change password failed")
		}
		return
	}
	h.notify(notify.PathPasswordChanged, mailFor(&user))
	response.JSON(c, http.StatusOK, msgPasswordChanged, nil)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword sets a new password for the signed-in user.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := h.sessionUser(c)
	if !ok {
		return
	}
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.Error(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if len(body.NewPassword) < minPasswordLength {
		response.Error(c, http.StatusBadRequest, msgPasswordTooShort)
		return
	}
	if !security.CheckPassword(user.Password, body.CurrentPassword) {
		response.Error(c, http.StatusUnauthorized, msgWrongPassword)
		return
	}
	hash, errHash := security.HashPassword(body.NewPassword)
	if errHash != nil {
		internalError(c, h.logger, errHash, "hash password failed")
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(user).Update("password", hash).Error; errUpdate != nil {
		internalError(c, h.logger, errUpdate, "update password failed")
		return
	}
	h.notify(notify.PathPasswordChanged, mailFor(user))
	response.JSON(c, http.StatusOK, msgPasswordChanged, nil)
}

// usableReset loads a token and rejects used or expired ones.
func (h *AuthHandler) usableReset(c *gin.Context, token string) (*models.PasswordReset, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		response.Error(c, http.StatusNotFound, msgResetNotFound)
		return nil, false
	}
	var reset models.PasswordReset
	if errFind := h.db.WithContext(c.Request.Context()).Where("token = ?", token).First(&reset).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, msgResetNotFound)
			return nil, false
		}
		internalError(c, h.logger, errFind, "load password reset failed")
		return nil, false
	}
	if reset.Used {
		response.Error(c, http.StatusUnauthorized, msgResetUsed)
		return nil, false
	}
	if reset.Expired(h.now(), h.resetTTL) {
		response.Error(c, http.StatusUnauthorized, msgResetExpired)
		return nil, false
	}
	return &reset, true
}

// sessionUser resolves the caller from the session cookie only.
func (h *AuthHandler) sessionUser(c *gin.Context) (*models.User, bool) {
	user, errResolve := h.guard.ResolveCaller(c, false)
	if errResolve != nil {
		if errors.Is(errResolve, access.ErrUnauthenticated) {
			response.Error(c, http.StatusUnauthorized, msgUnauthenticated)
			return nil, false
		}
		internalError(c, h.logger, errResolve, "resolve session failed")
		return nil, false
	}
	return user, true
}

func (h *AuthHandler) userByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	errFind := h.db.WithContext(ctx).Where(dbutil.LowerEqualsExpr("email"), normalizeEmail(email)).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, errNotFound
		}
		return nil, errFind
	}
	return &user, nil
}

func (h *AuthHandler) notify(path string, payload any) {
	if h.notifier == nil {
		return
	}
	h.notifier.Dispatch(path, payload)
}

func mailFor(user *models.User) notify.AccountMail {
	return notify.AccountMail{Email: user.Email, Name: user.Name, Surname: user.Surname}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}
