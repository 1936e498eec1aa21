package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/budgetwise/budgetwise-api/internal/config"
	dbutil "github.com/budgetwise/budgetwise-api/internal/db"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/budgetwise/budgetwise-api/internal/security"
	"gorm.io/gorm"
)

// HasAdminInitialized reports whether at least one ADMIN account exists.
func HasAdminInitialized(conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil db")
	}
	if !conn.Migrator().HasTable(&models.User{}) {
		return false, nil
	}
	var count int64
	if errCount := conn.Model(&models.User{}).Where("role >= ?", models.RoleAdmin).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// CreateAdminUserWithConn creates an ADMIN account, or promotes the existing
// account with the same email.
func CreateAdminUserWithConn(conn *gorm.DB, email, password, name string) error {
	if conn == nil {
		return fmt.Errorf("open database: nil connection")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return fmt.Errorf("admin email and password are required")
	}

	var existing models.User
	errFind := conn.Where(dbutil.LowerEqualsExpr("email"), email).First(&existing).Error
	if errFind == nil {
		if errPromote := conn.Model(&existing).Update("role", models.RoleAdmin).Error; errPromote != nil {
			return fmt.Errorf("promote admin: %w", errPromote)
		}
		return nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("find admin: %w", errFind)
	}

	hashedPassword, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("hash password: %w", errHash)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Admin"
	}
	admin := models.User{
		Email:    email,
		Name:     name,
		Password: hashedPassword,
		Role:     models.RoleAdmin,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("create admin: %w", errCreate)
	}
	return nil
}

// EnsureBootstrapAdmin seeds the configured admin when no admin exists yet.
// It reports whether an account was created or promoted.
func EnsureBootstrapAdmin(conn *gorm.DB, cfg config.BootstrapAdminConfig) (bool, error) {
	if strings.TrimSpace(cfg.Email) == "" || cfg.Password == "" {
		return false, nil
	}
	initialized, errInit := HasAdminInitialized(conn)
	if errInit != nil {
		return false, errInit
	}
	if initialized {
		return false, nil
	}
	if errCreate := CreateAdminUserWithConn(conn, cfg.Email, cfg.Password, cfg.Name); errCreate != nil {
		return false, errCreate
	}
	return true, nil
}
