package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestIsSQLiteDSN(t *testing.T) {
	cases := []struct {
		dsn  string
		want bool
	}{
		{"file:budget.db", true},
		{"  FILE:/tmp/x.db?_pragma=foreign_keys(1)", true},
		{"postgres://u:p@localhost/db", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsSQLiteDSN(tc.dsn); got != tc.want {
			t.Fatalf("IsSQLiteDSN(%q) = %v, want %v", tc.dsn, got, tc.want)
		}
	}
}

func TestOpen_RejectsEmptyDSN(t *testing.T) {
	if _, err := Open("   "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestMigrate_SQLiteIsIdempotent(t *testing.T) {
	conn, err := Open("file:" + filepath.Join(t.TempDir(), "migrate-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer func() { _ = Close(conn) }()

	for i := 0; i < 2; i++ {
		if errMigrate := Migrate(conn); errMigrate != nil {
			t.Fatalf("migrate pass %d: %v", i+1, errMigrate)
		}
	}
	if DialectName(conn) != DialectSQLite || !IsSQLite(conn) {
		t.Fatalf("expected sqlite dialect, got %q", DialectName(conn))
	}
	for _, model := range []any{
		&models.User{}, &models.Category{}, &models.PaymentMethod{}, &models.Budget{},
		&models.Subscription{}, &models.Transaction{}, &models.TransactionFile{},
		&models.PasswordReset{}, &models.JobRun{},
	} {
		if !conn.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T", model)
		}
	}
}

func TestMigrate_EnforcesUniqueBudgetPerCategory(t *testing.T) {
	conn, err := Open("file:" + filepath.Join(t.TempDir(), "unique-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	owner := uuid.New()
	first := models.Budget{OwnerID: owner, CategoryID: 1, Amount: decimal.NewFromInt(10)}
	if errCreate := conn.Create(&first).Error; errCreate != nil {
		t.Fatalf("create budget: %v", errCreate)
	}
	dup := models.Budget{OwnerID: owner, CategoryID: 1, Amount: decimal.NewFromInt(20)}
	errCreate := conn.Create(&dup).Error
	if errCreate == nil {
		t.Fatalf("expected unique violation for duplicate budget")
	}
	if !errors.Is(errCreate, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey, got %v", errCreate)
	}
}

func TestLikeHelpers(t *testing.T) {
	conn, err := Open("file:" + filepath.Join(t.TempDir(), "like-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if got := CaseInsensitiveLikeExpr(conn, "name"); got == "" {
		t.Fatalf("expected like expression")
	}
	if got := NormalizeLikePattern(conn, "%Food%"); got != "%food%" {
		t.Fatalf("expected lowered pattern on sqlite, got %q", got)
	}
	if got := LowerEqualsExpr("email"); got != "LOWER(email) = LOWER(?)" {
		t.Fatalf("unexpected expr %q", got)
	}
}
