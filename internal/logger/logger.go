package logger

import (
	"crypto/rand"
	"io"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Config holds logger configuration
type Config struct {
	Level  string
	Format string // "text" or "json"
}

// New creates a logrus logger writing to out (stderr when nil).
// Unknown levels fall back to warn.
func New(cfg Config, out io.Writer) *logrus.Logger {
	log := logrus.New()

	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
		})
	}

	return log
}

// NewRunID returns a fresh ULID identifying one conversion run.
func NewRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// WithRun returns an entry carrying the run id on every line.
func WithRun(log *logrus.Logger, runID string) *logrus.Entry {
	return log.WithField("run_id", runID)
}

// Discard returns an entry that drops everything. Handy for callers that
// don't care about logs (tests, library use).
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}
