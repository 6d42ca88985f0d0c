package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/dgraph-io/badger/v3"
	"github.com/robfig/cron/v3"
)

// ValueLogGC periodically reclaims space in badger's value log
type ValueLogGC struct {
	db           *badger.DB
	cron         *cron.Cron
	discardRatio float64
	logger       logger.Logger
}

// NewValueLogGC schedules value log garbage collection. schedule accepts
// standard five-field cron expressions and descriptors such as "@every 10m".
func NewValueLogGC(db *badger.DB, schedule string, discardRatio float64, log logger.Logger) (*ValueLogGC, error) {
	if discardRatio <= 0 || discardRatio >= 1 {
		return nil, fmt.Errorf("discard ratio must be in (0, 1), got %v", discardRatio)
	}
	if log == nil {
		log = logger.NewNop()
	}

	gc := &ValueLogGC{
		db: db,
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
		discardRatio: discardRatio,
		logger:       log,
	}

	if _, err := gc.cron.AddFunc(schedule, func() {
		if _, err := gc.RunOnce(); err != nil {
			gc.logger.Error("Value log GC failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid GC schedule %q: %w", schedule, err)
	}

	return gc, nil
}

// Start begins running the schedule in the background
func (g *ValueLogGC) Start() {
	g.cron.Start()
}

// Stop halts the schedule; the returned context is done once a running job finishes
func (g *ValueLogGC) Stop() context.Context {
	return g.cron.Stop()
}

// RunOnce rewrites value log files until badger reports nothing left to
// collect and returns how many files were rewritten
func (g *ValueLogGC) RunOnce() (int, error) {
	rewritten := 0
	for {
		err := g.db.RunValueLogGC(g.discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return rewritten, err
		}
		rewritten++
	}

	g.logger.Debug("Value log GC finished", map[string]interface{}{
		"rewritten": rewritten,
	})
	return rewritten, nil
}
