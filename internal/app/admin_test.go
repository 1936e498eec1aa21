package app

import (
	"path/filepath"
	"testing"

	"github.com/budgetwise/budgetwise-api/internal/config"
	"github.com/budgetwise/budgetwise-api/internal/db"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/budgetwise/budgetwise-api/internal/security"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "app-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if migrate {
		if errMigrate := db.Migrate(conn); errMigrate != nil {
			t.Fatalf("migrate: %v", errMigrate)
		}
	}
	return conn
}

func TestHasAdminInitialized(t *testing.T) {
	conn := openTestDB(t, false)

	initialized, err := HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized: %v", err)
	}
	if initialized {
		t.Fatalf("expected initialized=false before migrate")
	}

	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	basic := models.User{Email: "basic@example.com", Name: "Basic", Password: "hash"}
	if errCreate := conn.Create(&basic).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	initialized, err = HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized after seed: %v", err)
	}
	if initialized {
		t.Fatalf("expected initialized=false with only basic users")
	}

	admin := models.User{Email: "root@example.com", Name: "Root", Password: "hash", Role: models.RoleAdmin}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}
	initialized, err = HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized after admin: %v", err)
	}
	if !initialized {
		t.Fatalf("expected initialized=true after admin created")
	}
}

func TestCreateAdminUserWithConn_CreatesAdmin(t *testing.T) {
	conn := openTestDB(t, true)

	if errCreate := CreateAdminUserWithConn(conn, "Admin@Example.com", "password", ""); errCreate != nil {
		t.Fatalf("CreateAdminUserWithConn: %v", errCreate)
	}
	var admin models.User
	if errFind := conn.First(&admin, "email = ?", "admin@example.com").Error; errFind != nil {
		t.Fatalf("find admin: %v", errFind)
	}
	if admin.Role != models.RoleAdmin {
		t.Fatalf("expected admin role, got %v", admin.Role)
	}
	if !security.CheckPassword(admin.Password, "password") {
		t.Fatalf("expected stored password hash to verify")
	}
}

func TestCreateAdminUserWithConn_PromotesExisting(t *testing.T) {
	conn := openTestDB(t, true)
	user := models.User{Email: "owner@example.com", Name: "Owner", Password: "hash"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}

	if errCreate := CreateAdminUserWithConn(conn, "owner@example.com", "ignored", "Owner"); errCreate != nil {
		t.Fatalf("CreateAdminUserWithConn: %v", errCreate)
	}
	var reloaded models.User
	if errFind := conn.First(&reloaded, "id = ?", user.ID).Error; errFind != nil {
		t.Fatalf("reload: %v", errFind)
	}
	if reloaded.Role != models.RoleAdmin {
		t.Fatalf("expected promoted role, got %v", reloaded.Role)
	}
	if reloaded.Password != "hash" {
		t.Fatalf("expected password untouched on promotion")
	}
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	conn := openTestDB(t, true)

	created, err := EnsureBootstrapAdmin(conn, config.BootstrapAdminConfig{})
	if err != nil || created {
		t.Fatalf("expected no-op without config, got created=%v err=%v", created, err)
	}

	cfg := config.BootstrapAdminConfig{Email: "root@example.com", Password: "secret", Name: "Root"}
	created, err = EnsureBootstrapAdmin(conn, cfg)
	if err != nil {
		t.Fatalf("EnsureBootstrapAdmin: %v", err)
	}
	if !created {
		t.Fatalf("expected bootstrap admin to be created")
	}

	created, err = EnsureBootstrapAdmin(conn, config.BootstrapAdminConfig{Email: "other@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("EnsureBootstrapAdmin second call: %v", err)
	}
	if created {
		t.Fatalf("expected no second admin once initialized")
	}
}
