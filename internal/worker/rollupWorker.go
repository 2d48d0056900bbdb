package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"

	"github.com/sirupsen/logrus"
)

// RollupRefresher rebuilds the monthly rollup report and stores it in the cache.
type RollupRefresher interface {
	RefreshRollup(ctx context.Context) ([]entity.MonthlyRollup, error)
}

// RollupWorker keeps the cached monthly report warm so GET /reports/monthly
// rarely has to scan the transaction table.
type RollupWorker struct {
	refresher RollupRefresher
	interval  time.Duration

	runs     atomic.Int64
	failures atomic.Int64
	lastRun  atomic.Int64 // unix nanos
}

func NewRollupWorker(refresher RollupRefresher, interval time.Duration) *RollupWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &RollupWorker{
		refresher: refresher,
		interval:  interval,
	}
}

// Start refreshes once immediately and then on every tick until ctx is done.
func (w *RollupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.WithField("interval", w.interval.String()).Info("Rollup worker started")
	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			logrus.WithFields(w.GetStats()).Info("Rollup worker stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *RollupWorker) refresh(ctx context.Context) {
	start := time.Now()
	w.runs.Add(1)
	w.lastRun.Store(start.UnixNano())

	rollups, err := w.refresher.RefreshRollup(ctx)
	if err != nil {
		w.failures.Add(1)
		if ctx.Err() != nil {
			return
		}
		logrus.WithError(err).Error("Failed to refresh monthly rollup")
		return
	}

	logrus.WithFields(logrus.Fields{
		"months":   len(rollups),
		"duration": time.Since(start).String(),
	}).Debug("Monthly rollup refreshed")
}

// GetStats reports what the worker has done so far.
func (w *RollupWorker) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"worker_type": "rollup_refresh",
		"interval":    w.interval.String(),
		"runs":        w.runs.Load(),
		"failures":    w.failures.Load(),
	}
	if last := w.lastRun.Load(); last > 0 {
		stats["last_run"] = time.Unix(0, last).UTC().Format(time.RFC3339)
	}
	return stats
}
