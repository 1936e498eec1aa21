package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/access"
	"github.com/budgetwise/budgetwise-api/internal/config"
	"github.com/budgetwise/budgetwise-api/internal/db"
	v1 "github.com/budgetwise/budgetwise-api/internal/http/api/v1"
	"github.com/budgetwise/budgetwise-api/internal/logging"
	"github.com/budgetwise/budgetwise-api/internal/notify"
	"github.com/budgetwise/budgetwise-api/internal/ratelimit"
	"github.com/budgetwise/budgetwise-api/internal/security"
	"github.com/budgetwise/budgetwise-api/internal/subscriptions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(conn) }()
	return db.Migrate(conn.WithContext(ctx))
}

// RunServer boots the API server and blocks until ctx is cancelled.
// A positive port overrides the configured one.
func RunServer(ctx context.Context, appCfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(appCfg.ConfigPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Port = port
	}

	logger, logCloser := logging.New(logging.Options{Debug: cfg.Debug, ToFile: cfg.LoggingToFile, Dir: cfg.LogDir})
	defer func() { _ = logCloser.Close() }()
	logging.Install(logger)

	dsn, err := cfg.DSN()
	if err != nil {
		return err
	}
	if info, errInfo := config.DescribeDSN(dsn); errInfo == nil {
		logger.WithFields(log.Fields{
			"type": info.Type,
			"host": info.Host,
			"name": info.Name,
			"path": info.Path,
		}).Info("opening database")
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(conn) }()
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	created, errAdmin := EnsureBootstrapAdmin(conn, cfg.BootstrapAdmin)
	if errAdmin != nil {
		return fmt.Errorf("bootstrap admin: %w", errAdmin)
	}
	if created {
		logger.WithField("email", strings.ToLower(strings.TrimSpace(cfg.BootstrapAdmin.Email))).Info("bootstrap admin ready")
	}

	if strings.TrimSpace(cfg.Session.Secret) == "" {
		secret, errSecret := security.GenerateRandomString(32)
		if errSecret != nil {
			return fmt.Errorf("generate session secret: %w", errSecret)
		}
		cfg.Session.Secret = secret
		logger.Warn("session.secret is not set; using a random secret, sessions end on restart")
	}

	guard := access.NewGuard(conn, cfg.Session, logger)
	dispatcher := notify.NewDispatcher(cfg.Mail, logger)
	defer dispatcher.Wait()
	if cfg.Mail.BaseURL == "" {
		logger.Warn("mail.base-url is not set; notifications are disabled")
	}

	var limiter *ratelimit.Manager
	if cfg.RateLimit.Limit > 0 || cfg.RateLimit.ServiceLimit > 0 {
		limiter = ratelimit.NewManager(cfg.RateLimit, time.Now, nil, logger)
		defer func() { _ = limiter.Close() }()
	}

	materializer, err := subscriptions.NewMaterializer(conn, cfg.Scheduler, logger)
	if err != nil {
		return err
	}
	if cfg.Scheduler.Disabled {
		logger.Info("subscription scheduler disabled")
	} else {
		schedulerCtx, stopScheduler := context.WithCancel(ctx)
		defer materializer.Wait()
		defer stopScheduler()
		materializer.Start(schedulerCtx)
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := v1.NewEngine(v1.Deps{
		DB:           conn,
		Guard:        guard,
		Notifier:     dispatcher,
		Limiter:      limiter,
		Materializer: materializer,
		ResetTTL:     cfg.PasswordReset.TTL,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", server.Addr)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
		close(errCh)
	}()

	select {
	case errServe, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", errServe)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("http server shutdown: %w", errShutdown)
	}
	return nil
}
