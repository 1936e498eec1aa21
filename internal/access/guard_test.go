package access

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/config"
	"github.com/budgetwise/budgetwise-api/internal/db"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/budgetwise/budgetwise-api/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testSession = config.SessionConfig{
	Secret:     "test-secret",
	Expiry:     time.Hour,
	CookieName: "session",
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "access-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedUser(t *testing.T, conn *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: "Test", Password: "x", Role: role}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func newRouter(guard *Guard, allowBearer bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", guard.Authenticate(allowBearer), func(c *gin.Context) {
		caller, _ := CallerFrom(c)
		c.String(http.StatusOK, caller.ID.String())
	})
	r.GET("/service", guard.Authenticate(true), RequireRole(models.RoleServiceAccount), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func sessionCookie(t *testing.T, id uuid.UUID) *http.Cookie {
	t.Helper()
	token, err := security.NewSessionToken(testSession.Secret, id, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	return &http.Cookie{Name: testSession.CookieName, Value: token}
}

func TestAuthenticate_SessionCookie(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn, "a@b.com", models.RoleBasic)
	r := newRouter(NewGuard(conn, testSession, nil), false)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(sessionCookie(t, user.ID))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != user.ID.String() {
		t.Fatalf("expected caller %s, got %s", user.ID, rec.Body.String())
	}
}

func TestAuthenticate_DeletedUserIsUnauthenticated(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn, "gone@b.com", models.RoleBasic)
	if err := conn.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	r := newRouter(NewGuard(conn, testSession, nil), false)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(sessionCookie(t, user.ID))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_Bearer(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn, "bearer@b.com", models.RoleBasic)
	r := newRouter(NewGuard(conn, testSession, nil), true)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+user.ID.String())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	found := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == testSession.CookieName && cookie.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a session cookie to be issued for bearer caller")
	}
}

func TestAuthenticate_BearerFailures(t *testing.T) {
	conn := openTestDB(t)
	r := newRouter(NewGuard(conn, testSession, nil), true)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "unknown id", header: "Bearer " + uuid.NewString(), want: http.StatusUnauthorized},
		{name: "malformed", header: "Bearer not-a-uuid", want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestAuthenticate_BearerIgnoredWhenDisallowed(t *testing.T) {
	conn := openTestDB(t)
	user := seedUser(t, conn, "auth@b.com", models.RoleBasic)
	r := newRouter(NewGuard(conn, testSession, nil), false)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+user.ID.String())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	conn := openTestDB(t)
	basic := seedUser(t, conn, "basic@b.com", models.RoleBasic)
	service := seedUser(t, conn, "svc@b.com", models.RoleServiceAccount)
	r := newRouter(NewGuard(conn, testSession, nil), true)

	for _, tc := range []struct {
		user *models.User
		want int
	}{
		{user: basic, want: http.StatusConflict},
		{user: service, want: http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/service", nil)
		req.Header.Set("Authorization", "Bearer "+tc.user.ID.String())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.user.Email, tc.want, rec.Code)
		}
	}
}
