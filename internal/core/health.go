package core

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/coregx/updatebulk/internal/logger"
)

const healthCheckTimeout = 5 * time.Second

// healthChecker pings the pool in the background and re-detects server
// capabilities once a failing connection comes back, since a failover may
// land on a server whose dialect differs from the one compiled for.
type healthChecker struct {
	db        *sql.DB
	logger    logger.Logger
	interval  time.Duration
	dialect   func() string
	onRecover func(context.Context) error

	stop chan struct{}
	wg   sync.WaitGroup

	mu       sync.RWMutex
	lastErr  error
	lastPing time.Time
	failures int
}

func newHealthChecker(db *sql.DB, log logger.Logger, interval time.Duration,
	dialect func() string, onRecover func(context.Context) error) *healthChecker {
	return &healthChecker{
		db:        db,
		logger:    log,
		interval:  interval,
		dialect:   dialect,
		onRecover: onRecover,
		stop:      make(chan struct{}),
	}
}

func (h *healthChecker) start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.ping()
			case <-h.stop:
				return
			}
		}
	}()
}

func (h *healthChecker) ping() {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	err := h.db.PingContext(ctx)

	h.mu.Lock()
	h.lastErr = err
	h.lastPing = time.Now()
	previous := h.failures
	if err != nil {
		h.failures++
	} else {
		h.failures = 0
	}
	failures := h.failures
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("database unreachable",
			"dialect", h.dialect(),
			"consecutive_failures", failures,
			"error", err)
		return
	}
	if previous == 0 {
		return
	}

	h.logger.Info("database reachable again",
		"dialect", h.dialect(),
		"failed_pings", previous)
	if h.onRecover == nil {
		return
	}
	if err := h.onRecover(ctx); err != nil {
		h.logger.Warn("capability detection after recovery failed",
			"dialect", h.dialect(),
			"error", err)
		return
	}
	h.logger.Debug("capabilities re-detected", "dialect", h.dialect())
}

func (h *healthChecker) shutdown() {
	close(h.stop)
	h.wg.Wait()
}

// status returns the time and result of the most recent ping, and how many
// pings in a row have failed.
func (h *healthChecker) status() (time.Time, int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastPing, h.failures, h.lastErr
}
