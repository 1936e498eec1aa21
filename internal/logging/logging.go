package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the log file.
const (
	logFileName       = "budgetwise.log"
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 5
	logFileMaxAgeDays = 30
)

// Options controls logger construction.
type Options struct {
	Debug  bool
	ToFile bool
	Dir    string
	Output io.Writer // Defaults to stdout.
}

// New builds a logger writing text lines, optionally mirrored to a rotated file.
// The returned closer releases the file handle and is never nil.
func New(opts Options) (*log.Logger, io.Closer) {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if opts.Debug {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if !opts.ToFile {
		logger.SetOutput(out)
		return logger, nopCloser{}
	}

	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		dir = "logs"
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(out, rotator))
	return logger, rotator
}

// Install makes logger the process default so library code logging through
// the package-level logrus functions shares its level and outputs.
func Install(logger *log.Logger) {
	if logger == nil {
		return
	}
	std := log.StandardLogger()
	std.SetOutput(logger.Out)
	std.SetFormatter(logger.Formatter)
	std.SetLevel(logger.GetLevel())
}

// OrStandard returns l, or the standard logger when l is nil.
func OrStandard(l log.FieldLogger) log.FieldLogger {
	if l == nil {
		return log.StandardLogger()
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
