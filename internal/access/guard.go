package access

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/config"
	"github.com/budgetwise/budgetwise-api/internal/http/response"
	"github.com/budgetwise/budgetwise-api/internal/logging"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/budgetwise/budgetwise-api/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// callerKey stores the resolved user on the gin context.
const callerKey = "caller"

var (
	// ErrUnauthenticated reports a missing, invalid or stale credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrMalformedBearer reports a bearer credential that is not a user id.
	ErrMalformedBearer = errors.New("malformed bearer credential")
)

// Guard resolves the calling user from a session cookie or bearer credential.
type Guard struct {
	db      *gorm.DB
	session config.SessionConfig
	now     func() time.Time
	logger  log.FieldLogger
}

// NewGuard constructs a Guard.
func NewGuard(db *gorm.DB, session config.SessionConfig, logger log.FieldLogger) *Guard {
	return &Guard{
		db:      db,
		session: session,
		now:     time.Now,
		logger:  logging.OrStandard(logger),
	}
}

// ResolveCaller returns the live user behind the request credential.
// The session cookie is tried first; the bearer header only when allowBearer.
func (g *Guard) ResolveCaller(c *gin.Context, allowBearer bool) (*models.User, error) {
	if raw, errCookie := c.Cookie(g.session.CookieName); errCookie == nil && raw != "" {
		if userID, errParse := security.ParseSessionToken(g.session.Secret, raw); errParse == nil {
			user, errFind := g.findUser(c, userID)
			if errFind == nil {
				return user, nil
			}
			if !errors.Is(errFind, ErrUnauthenticated) {
				return nil, errFind
			}
		}
	}

	if !allowBearer {
		return nil, ErrUnauthenticated
	}
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return nil, ErrUnauthenticated
	}
	userID, errParse := uuid.Parse(token)
	if errParse != nil {
		return nil, ErrMalformedBearer
	}
	user, errFind := g.findUser(c, userID)
	if errFind != nil {
		return nil, errFind
	}
	if errIssue := g.IssueSession(c, user.ID); errIssue != nil {
		g.logger.WithError(errIssue).Warn("access: issue session for bearer caller failed")
	}
	return user, nil
}

func (g *Guard) findUser(c *gin.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if errFind := g.db.WithContext(c.Request.Context()).First(&user, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, errFind
	}
	return &user, nil
}

// IssueSession sets a fresh session cookie for userID.
func (g *Guard) IssueSession(c *gin.Context, userID uuid.UUID) error {
	token, err := security.NewSessionToken(g.session.Secret, userID, g.session.Expiry, g.now())
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.session.CookieName, token, int(g.session.Expiry.Seconds()), "/", "", g.session.Secure, true)
	return nil
}

// ClearSession expires the session cookie.
func (g *Guard) ClearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.session.CookieName, "", -1, "/", "", g.session.Secure, true)
}

// Authenticate rejects requests without a resolvable caller.
func (g *Guard) Authenticate(allowBearer bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := g.ResolveCaller(c, allowBearer)
		if err != nil {
			switch {
			case errors.Is(err, ErrUnauthenticated):
				response.Abort(c, http.StatusUnauthorized, "You must be signed in to perform this action")
			case errors.Is(err, ErrMalformedBearer):
				response.Abort(c, http.StatusInternalServerError, "Could not read the provided credential")
			default:
				g.logger.WithError(err).Error("access: resolve caller failed")
				response.Abort(c, http.StatusInternalServerError, "Internal server error")
			}
			return
		}
		SetCaller(c, user)
		c.Next()
	}
}

// RequireRole rejects callers below min. It must run after Authenticate.
func RequireRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "You must be signed in to perform this action")
			return
		}
		if !caller.Role.Outranks(min) {
			response.Abort(c, http.StatusConflict, NotPermittedMessage)
			return
		}
		c.Next()
	}
}

// SetCaller stores the resolved user on the request context.
func SetCaller(c *gin.Context, user *models.User) {
	c.Set(callerKey, user)
}

// CallerFrom returns the user stored by Authenticate.
func CallerFrom(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
