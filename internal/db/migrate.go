package db

import (
	"fmt"

	"github.com/budgetwise/budgetwise-api/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

func autoMigrate(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.PaymentMethod{},
		&models.Budget{},
		&models.Subscription{},
		&models.Transaction{},
		&models.TransactionFile{},
		&models.PasswordReset{},
		&models.JobRun{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if err := autoMigrate(conn); err != nil {
		return err
	}
	return execAll(conn, []string{
		`CREATE INDEX IF NOT EXISTS idx_transactions_owner_processed
		ON transactions (owner_id, processed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_due
		ON subscriptions (execute_at) WHERE paused = false`,
		`CREATE INDEX IF NOT EXISTS idx_users_email_lower
		ON users (LOWER(email))`,
	})
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if err := autoMigrate(conn); err != nil {
		return err
	}
	return execAll(conn, []string{
		`CREATE INDEX IF NOT EXISTS idx_transactions_owner_processed
		ON transactions (owner_id, processed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_due
		ON subscriptions (execute_at, paused)`,
	})
}

func execAll(conn *gorm.DB, statements []string) error {
	for _, stmt := range statements {
		if errExec := conn.Exec(stmt).Error; errExec != nil {
			return fmt.Errorf("db: exec migration: %w", errExec)
		}
	}
	return nil
}
