package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// defaultSQLitePath is the default SQLite database file name.
const defaultSQLitePath = "budgetwise.db"

// BuildDSN builds a database DSN from the database section.
func BuildDSN(db DatabaseConfig) (string, error) {
	switch strings.ToLower(strings.TrimSpace(db.Type)) {
	case "", "postgres":
		if strings.TrimSpace(db.Host) == "" {
			return "", fmt.Errorf("database host is required")
		}
		if strings.TrimSpace(db.Name) == "" {
			return "", fmt.Errorf("database name is required")
		}
		port := db.Port
		if port <= 0 {
			port = 5432
		}
		sslMode := strings.TrimSpace(db.SSLMode)
		if sslMode == "" {
			sslMode = "disable"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.User, db.Password),
			Host:     fmt.Sprintf("%s:%d", strings.TrimSpace(db.Host), port),
			Path:     "/" + strings.TrimSpace(db.Name),
			RawQuery: "sslmode=" + url.QueryEscape(sslMode),
		}
		return u.String(), nil
	case "sqlite":
		return buildSQLiteDSN(db.Path), nil
	default:
		return "", fmt.Errorf("unsupported database type %q", db.Type)
	}
}

// buildSQLiteDSN constructs a SQLite DSN with default pragmas.
func buildSQLiteDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = defaultSQLitePath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
	}, "&")
}

// DSNInfo is a secret-free description of a DSN, used for startup logging.
type DSNInfo struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

// DescribeDSN parses a DSN into its non-secret parts.
func DescribeDSN(dsn string) (DSNInfo, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return DSNInfo{}, fmt.Errorf("empty dsn")
	}

	if strings.HasPrefix(strings.ToLower(trimmed), "file:") {
		pathPart := trimmed[len("file:"):]
		pathPart, _, _ = strings.Cut(pathPart, "?")
		return DSNInfo{Type: "sqlite", Path: strings.TrimSpace(pathPart)}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil {
		return DSNInfo{}, fmt.Errorf("parse dsn: %w", errParse)
	}
	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "postgres", "postgresql":
		port := 5432
		if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
			parsedPort, errPort := strconv.Atoi(rawPort)
			if errPort != nil {
				return DSNInfo{}, fmt.Errorf("parse port: %w", errPort)
			}
			port = parsedPort
		}
		info := DSNInfo{
			Type:    "postgres",
			Host:    strings.TrimSpace(u.Hostname()),
			Port:    port,
			Name:    strings.TrimSpace(strings.TrimPrefix(u.Path, "/")),
			SSLMode: strings.TrimSpace(u.Query().Get("sslmode")),
		}
		if info.SSLMode == "" {
			info.SSLMode = "disable"
		}
		if u.User != nil {
			info.User = strings.TrimSpace(u.User.Username())
			_, info.PasswordSet = u.User.Password()
		}
		return info, nil
	default:
		return DSNInfo{}, fmt.Errorf("unsupported dsn scheme")
	}
}
