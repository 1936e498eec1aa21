package subscriptions

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/config"
	"github.com/budgetwise/budgetwise-api/internal/db"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "subscriptions-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func newTestMaterializer(t *testing.T, conn *gorm.DB) *Materializer {
	t.Helper()
	m, err := NewMaterializer(conn, config.SchedulerConfig{RunAt: "03:00", Timezone: "UTC"}, nil)
	if err != nil {
		t.Fatalf("NewMaterializer: %v", err)
	}
	return m
}

func seedSubscription(t *testing.T, conn *gorm.DB, owner uuid.UUID, day int, paused bool, amount string) models.Subscription {
	t.Helper()
	sub := models.Subscription{
		OwnerID:         owner,
		CategoryID:      1,
		PaymentMethodID: 1,
		Paused:          paused,
		ExecuteAt:       day,
		Receiver:        "Streaming Inc",
		Description:     "monthly plan",
		TransferAmount:  decimal.RequireFromString(amount),
	}
	if err := conn.Create(&sub).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return sub
}

func TestRunOnce_SkipsPausedSubscriptions(t *testing.T) {
	conn := openTestDB(t)
	owner := uuid.New()
	active := seedSubscription(t, conn, owner, 15, false, "-12.99")
	seedSubscription(t, conn, owner, 15, true, "-8.00")
	seedSubscription(t, conn, owner, 16, false, "-5.00")

	now := time.Date(2026, time.March, 15, 3, 0, 0, 0, time.UTC)
	created, err := newTestMaterializer(t, conn).RunOnce(context.Background(), now)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected 1 transaction, got %d", created)
	}

	var rows []models.Transaction
	if errFind := conn.Find(&rows).Error; errFind != nil {
		t.Fatalf("find transactions: %v", errFind)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 stored transaction, got %d", len(rows))
	}
	tx := rows[0]
	if tx.OwnerID != owner || tx.Receiver != active.Receiver || tx.Description != active.Description {
		t.Fatalf("transaction does not copy subscription fields: %+v", tx)
	}
	if !tx.TransferAmount.Equal(active.TransferAmount) {
		t.Fatalf("expected amount %s, got %s", active.TransferAmount, tx.TransferAmount)
	}
	if tx.SubscriptionID == nil || *tx.SubscriptionID != active.ID {
		t.Fatalf("expected subscription reference %d, got %v", active.ID, tx.SubscriptionID)
	}
	if !tx.ProcessedAt.Equal(now) {
		t.Fatalf("expected processed_at %s, got %s", now, tx.ProcessedAt)
	}
}

func TestRunOnce_AtMostOncePerDay(t *testing.T) {
	conn := openTestDB(t)
	seedSubscription(t, conn, uuid.New(), 2, false, "-1.00")
	m := newTestMaterializer(t, conn)

	first := time.Date(2026, time.June, 2, 3, 0, 0, 0, time.UTC)
	if _, err := m.RunOnce(context.Background(), first); err != nil {
		t.Fatalf("first run: %v", err)
	}
	_, err := m.RunOnce(context.Background(), first.Add(5*time.Hour))
	if !errors.Is(err, ErrAlreadyRan) {
		t.Fatalf("expected ErrAlreadyRan, got %v", err)
	}

	var count int64
	if errCount := conn.Model(&models.Transaction{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected no duplicate transactions, got %d", count)
	}

	var run models.JobRun
	if errFind := conn.Where("job_name = ?", JobName).First(&run).Error; errFind != nil {
		t.Fatalf("find run: %v", errFind)
	}
	if run.Created != 1 {
		t.Fatalf("expected ledger created=1, got %d", run.Created)
	}

	next := first.AddDate(0, 1, 0)
	created, err := m.RunOnce(context.Background(), next)
	if err != nil {
		t.Fatalf("next month run: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected subscription to fire again next month, got %d", created)
	}
}

func TestRunOnce_NothingDue(t *testing.T) {
	conn := openTestDB(t)
	seedSubscription(t, conn, uuid.New(), 20, false, "-1.00")

	created, err := newTestMaterializer(t, conn).RunOnce(context.Background(), time.Date(2026, time.May, 3, 3, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected nothing created, got %d", created)
	}
}

func TestRunOnce_ShortMonthFiresExactDayByDefault(t *testing.T) {
	conn := openTestDB(t)
	owner := uuid.New()
	seedSubscription(t, conn, owner, 28, false, "-2.00")
	seedSubscription(t, conn, owner, 30, false, "-3.00")
	seedSubscription(t, conn, owner, 31, false, "-4.00")

	created, err := newTestMaterializer(t, conn).RunOnce(context.Background(), time.Date(2026, time.February, 28, 3, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected only day 28 to fire, got %d", created)
	}
}

func TestRunOnce_MonthEndClamp(t *testing.T) {
	conn := openTestDB(t)
	owner := uuid.New()
	seedSubscription(t, conn, owner, 30, false, "-3.00")
	seedSubscription(t, conn, owner, 31, false, "-4.00")
	seedSubscription(t, conn, owner, 27, false, "-5.00")

	m, errNew := NewMaterializer(conn, config.SchedulerConfig{RunAt: "03:00", Timezone: "UTC", MonthEndClamp: true}, nil)
	if errNew != nil {
		t.Fatalf("NewMaterializer: %v", errNew)
	}
	created, err := m.RunOnce(context.Background(), time.Date(2026, time.February, 28, 3, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected days 30 and 31 to fire on the last day of February, got %d", created)
	}
}

func TestWait_BlocksUntilInFlightRunReturns(t *testing.T) {
	conn := openTestDB(t)
	seedSubscription(t, conn, uuid.New(), 15, false, "-9.99")

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	errRegister := conn.Callback().Create().Before("gorm:create").Register("test:hold_job_run", func(tx *gorm.DB) {
		if tx.Statement.Table != "job_runs" {
			return
		}
		once.Do(func() {
			close(entered)
			<-release
		})
	})
	if errRegister != nil {
		t.Fatalf("register callback: %v", errRegister)
	}

	m := newTestMaterializer(t, conn)
	m.now = func() time.Time { return time.Date(2026, time.January, 15, 4, 0, 0, 0, time.UTC) }
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("catch-up run did not start")
	}
	cancel()

	waited := make(chan struct{})
	go func() {
		m.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		t.Fatalf("Wait returned while a run was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatalf("Wait did not return after the run finished")
	}
}

func TestNextRun(t *testing.T) {
	m := &Materializer{loc: time.UTC, hour: 3, minute: 0}

	before := time.Date(2026, time.January, 10, 1, 0, 0, 0, time.UTC)
	if got := m.nextRun(before); !got.Equal(time.Date(2026, time.January, 10, 3, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected same-day run, got %s", got)
	}
	after := time.Date(2026, time.January, 31, 3, 0, 0, 0, time.UTC)
	if got := m.nextRun(after); !got.Equal(time.Date(2026, time.February, 1, 3, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected next-day run, got %s", got)
	}
}
