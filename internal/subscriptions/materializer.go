package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/config"
	"github.com/budgetwise/budgetwise-api/internal/logging"
	"github.com/budgetwise/budgetwise-api/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobName identifies the materialization run in the job ledger.
const JobName = "subscription-materialization"

const (
	insertBatchSize = 200
	runTimeout      = 5 * time.Minute
)

// ErrAlreadyRan reports that the job already completed for the date.
var ErrAlreadyRan = errors.New("subscriptions: already materialized for this date")

// Materializer turns due subscriptions into transactions once per day.
type Materializer struct {
	db     *gorm.DB
	loc    *time.Location
	hour   int
	minute int
	clamp  bool
	now    func() time.Time
	logger log.FieldLogger

	wg sync.WaitGroup
}

// NewMaterializer constructs a Materializer from the scheduler settings.
func NewMaterializer(db *gorm.DB, cfg config.SchedulerConfig, logger log.FieldLogger) (*Materializer, error) {
	if db == nil {
		return nil, fmt.Errorf("subscriptions: nil db")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	hour, minute, err := cfg.Clock()
	if err != nil {
		return nil, err
	}
	return &Materializer{
		db:     db,
		loc:    loc,
		hour:   hour,
		minute: minute,
		clamp:  cfg.MonthEndClamp,
		now:    time.Now,
		logger: logging.OrStandard(logger),
	}, nil
}

// RunOnce materializes every unpaused subscription due on the day of now.
// The insert and the ledger entry commit together, so a second call for the
// same date returns ErrAlreadyRan without writing anything.
func (m *Materializer) RunOnce(ctx context.Context, now time.Time) (int, error) {
	if m == nil || m.db == nil {
		return 0, fmt.Errorf("subscriptions: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	local := now.In(m.loc)
	day := local.Day()
	entry := m.logger.WithFields(log.Fields{"job": JobName, "date": local.Format("2006-01-02")})

	created := 0
	errTx := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := models.JobRun{JobName: JobName, RunDate: runDate(local)}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ledger)
		if res.Error != nil {
			return fmt.Errorf("subscriptions: record run: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyRan
		}

		q := tx.Where("paused = ?", false)
		if m.clamp && isLastDayOfMonth(local) {
			q = q.Where("execute_at >= ?", day)
		} else {
			q = q.Where("execute_at = ?", day)
		}
		var due []models.Subscription
		if errFind := q.Order("id").Find(&due).Error; errFind != nil {
			return fmt.Errorf("subscriptions: load due: %w", errFind)
		}
		if len(due) == 0 {
			entry.Info("subscriptions: nothing due today")
			return nil
		}

		rows := make([]models.Transaction, 0, len(due))
		for i := range due {
			rows = append(rows, transactionFor(&due[i], now))
		}
		if errCreate := tx.CreateInBatches(&rows, insertBatchSize).Error; errCreate != nil {
			return fmt.Errorf("subscriptions: insert transactions: %w", errCreate)
		}
		if errUpdate := tx.Model(&models.JobRun{}).Where("id = ?", ledger.ID).Update("created", len(rows)).Error; errUpdate != nil {
			return fmt.Errorf("subscriptions: update run: %w", errUpdate)
		}
		created = len(rows)
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, ErrAlreadyRan) {
			entry.Info("subscriptions: already materialized, skipping")
		}
		return 0, errTx
	}
	if created > 0 {
		entry.WithField("created", created).Info("subscriptions: materialized")
	}
	return created, nil
}

func transactionFor(sub *models.Subscription, now time.Time) models.Transaction {
	subID := sub.ID
	return models.Transaction{
		OwnerID:         sub.OwnerID,
		CategoryID:      sub.CategoryID,
		PaymentMethodID: sub.PaymentMethodID,
		SubscriptionID:  &subID,
		ProcessedAt:     now.UTC(),
		Receiver:        sub.Receiver,
		Description:     sub.Description,
		TransferAmount:  sub.TransferAmount,
		CreatedAt:       now.UTC(),
	}
}

// runDate keys the ledger by the local calendar date, stored at UTC midnight.
func runDate(local time.Time) datatypes.Date {
	return datatypes.Date(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC))
}

func isLastDayOfMonth(t time.Time) bool {
	return t.AddDate(0, 0, 1).Month() != t.Month()
}
