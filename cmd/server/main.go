package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/budgetwise/budgetwise-api/internal/app"
	"github.com/budgetwise/budgetwise-api/internal/config"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if errRun := run(ctx, os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses flags, loads .env and config, then migrates or serves.
func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("budgetwise", flag.ContinueOnError)
	cfgPath := flags.String("config", "", "config file path (or env CONFIG_PATH)")
	port := flags.Int("port", 0, "listen port, overrides the config file")
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading config")
	migrateOnly := flags.Bool("migrate", false, "run database migrations and exit")
	if errParse := flags.Parse(args); errParse != nil {
		return errParse
	}
	if errValidate := validatePort(*port); errValidate != nil {
		return errValidate
	}

	if path := strings.TrimSpace(*envFile); path != "" {
		if errEnv := godotenv.Load(path); errEnv != nil && !errors.Is(errEnv, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, errEnv)
		}
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}

	if *migrateOnly {
		if errMigrate := app.Migrate(ctx, appCfg); errMigrate != nil {
			return errMigrate
		}
		log.Info("migrations applied")
		return nil
	}
	return app.RunServer(ctx, appCfg, *port)
}

// validatePort accepts 0 as "use the configured port".
func validatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
