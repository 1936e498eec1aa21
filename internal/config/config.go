package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath    = "CONFIG_PATH"
	EnvDBConnection  = "DB_CONNECTION"
	EnvSessionSecret = "SESSION_SECRET"
	EnvSessionExpiry = "SESSION_EXPIRY"
	EnvMailBaseURL   = "MAIL_BASE_URL"
	EnvPort          = "PORT"
)

// Defaults applied when the config file omits a value.
const (
	defaultPort              = 8080
	defaultSessionExpiry     = 30 * 24 * time.Hour
	defaultSessionCookieName = "budgetwise_session"
	defaultResetTTL          = 30 * time.Minute
	defaultMailTimeout       = 5 * time.Second
	defaultRunAt             = "03:00"
	defaultRedisPrefix       = "budgetwise:rl"
	defaultLogDir            = "logs"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn`, `database.dsn` or `database.type` in config file)")

// Config is the full server configuration.
type Config struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Debug         bool   `yaml:"debug"`
	LoggingToFile bool   `yaml:"logging-to-file"`
	LogDir        string `yaml:"log-dir"`

	DatabaseDSN string         `yaml:"database-dsn"`
	Database    DatabaseConfig `yaml:"database"`

	Session        SessionConfig        `yaml:"session"`
	PasswordReset  PasswordResetConfig  `yaml:"password-reset"`
	Mail           MailConfig           `yaml:"mail"`
	Scheduler      SchedulerConfig      `yaml:"scheduler"`
	RateLimit      RateLimitConfig      `yaml:"rate-limit"`
	BootstrapAdmin BootstrapAdminConfig `yaml:"bootstrap-admin"`
}

// DatabaseConfig describes the database either as a raw DSN or by parts.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	SSLMode  string `yaml:"ssl-mode"`
}

// SessionConfig holds the session cookie signing settings.
type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	Expiry     time.Duration `yaml:"expiry"`
	CookieName string        `yaml:"cookie-name"`
	Secure     bool          `yaml:"secure"`
}

// PasswordResetConfig bounds the lifetime of reset tokens.
type PasswordResetConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// MailConfig points at the external mail service.
type MailConfig struct {
	BaseURL string        `yaml:"base-url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SchedulerConfig controls the daily subscription job.
type SchedulerConfig struct {
	Disabled bool   `yaml:"disabled"`
	RunAt    string `yaml:"run-at"`
	Timezone string `yaml:"timezone"`
	// MonthEndClamp also fires days past the end of a short month on its last day.
	MonthEndClamp bool `yaml:"month-end-clamp"`
}

// RateLimitConfig holds per-second request limits by role.
type RateLimitConfig struct {
	Limit        int         `yaml:"limit"`
	ServiceLimit int         `yaml:"service-limit"`
	Redis        RedisConfig `yaml:"redis"`
}

// RedisConfig configures the shared rate limit backend.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// BootstrapAdminConfig seeds the first admin account.
type BootstrapAdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Load reads the YAML config file, applies env overrides and fills defaults.
// A missing file yields a config built from defaults and the environment.
func Load(configPath string) (Config, error) {
	var cfg Config
	data, errRead := os.ReadFile(configPath)
	if errRead != nil && !os.IsNotExist(errRead) {
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if _, errLoc := cfg.Scheduler.Location(); errLoc != nil {
		return Config{}, errLoc
	}
	if _, _, errRunAt := cfg.Scheduler.Clock(); errRunAt != nil {
		return Config{}, errRunAt
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvSessionSecret)); secret != "" {
		cfg.Session.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvSessionExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			cfg.Session.Expiry = expiry
		}
	}
	if baseURL := strings.TrimSpace(os.Getenv(EnvMailBaseURL)); baseURL != "" {
		cfg.Mail.BaseURL = baseURL
	}
	if portRaw := strings.TrimSpace(os.Getenv(EnvPort)); portRaw != "" {
		if port, errParse := strconv.Atoi(portRaw); errParse == nil && port > 0 {
			cfg.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.LogDir) == "" {
		cfg.LogDir = defaultLogDir
	}
	if cfg.Session.Expiry <= 0 {
		cfg.Session.Expiry = defaultSessionExpiry
	}
	if strings.TrimSpace(cfg.Session.CookieName) == "" {
		cfg.Session.CookieName = defaultSessionCookieName
	}
	if cfg.PasswordReset.TTL <= 0 {
		cfg.PasswordReset.TTL = defaultResetTTL
	}
	if cfg.Mail.Timeout <= 0 {
		cfg.Mail.Timeout = defaultMailTimeout
	}
	cfg.Mail.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Mail.BaseURL), "/")
	if strings.TrimSpace(cfg.Scheduler.RunAt) == "" {
		cfg.Scheduler.RunAt = defaultRunAt
	}
	if cfg.RateLimit.Limit < 0 {
		cfg.RateLimit.Limit = 0
	}
	if cfg.RateLimit.ServiceLimit < 0 {
		cfg.RateLimit.ServiceLimit = 0
	}
	if cfg.RateLimit.Redis.DB < 0 {
		cfg.RateLimit.Redis.DB = 0
	}
	if strings.TrimSpace(cfg.RateLimit.Redis.Prefix) == "" {
		cfg.RateLimit.Redis.Prefix = defaultRedisPrefix
	}
}

// DSN resolves the database DSN from the raw value or the database section.
func (c Config) DSN() (string, error) {
	if dsn := strings.TrimSpace(c.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(c.Database.DSN); dsn != "" {
		return dsn, nil
	}
	if strings.TrimSpace(c.Database.Type) == "" {
		return "", ErrMissingDatabaseDSN
	}
	return BuildDSN(c.Database)
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", strings.TrimSpace(c.Host), c.Port)
}

// LoadDatabaseDSN reads only the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return "", err
	}
	return cfg.DSN()
}

// Location returns the time zone the scheduler runs in.
func (s SchedulerConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone %q: %w", name, err)
	}
	return loc, nil
}

// Clock parses run-at as HH:MM.
func (s SchedulerConfig) Clock() (int, int, error) {
	raw := strings.TrimSpace(s.RunAt)
	if raw == "" {
		raw = defaultRunAt
	}
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("scheduler run-at %q: expected HH:MM", raw)
	}
	return parsed.Hour(), parsed.Minute(), nil
}
