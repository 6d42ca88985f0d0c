package db

import (
	"fmt"
	"os"
	"strings"

	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/dgraph-io/badger/v3"
)

// Open opens (creating if needed) the badger database at path. Badger's own
// messages are routed to log at debug level and above.
func Open(path string, log logger.Logger) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	if log != nil {
		opts = opts.WithLogger(&badgerLogger{log: log.WithField("component", "badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}

// badgerLogger adapts logger.Logger to badger.Logger
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(trim(format, args), nil)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(trim(format, args), nil)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(trim(format, args), nil)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(trim(format, args), nil)
}

func trim(format string, args []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
