package core

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/coregx/updatebulk/internal/logger"
)

func TestHealthChecker_Basic(t *testing.T) {
	db, err := Open("sqlite", ":memory:", WithHealthCheck(20*time.Millisecond))
	require.NoError(t, err)
	defer db.Close()

	require.Eventually(t, func() bool {
		return !db.LastHealthCheck().IsZero()
	}, time.Second, 10*time.Millisecond)
	assert.True(t, db.IsHealthy())
}

func TestHealthChecker_Disabled(t *testing.T) {
	db, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.IsHealthy())
	assert.True(t, db.LastHealthCheck().IsZero())
	assert.Zero(t, db.HealthFailures())
}

func TestHealthChecker_ClosedDatabase(t *testing.T) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	hc := newHealthChecker(sqlDB, &logger.NoopLogger{}, time.Hour, func() string { return "sqlite" }, nil)
	hc.ping()
	hc.ping()

	at, failures, err := hc.status()
	assert.Error(t, err)
	assert.False(t, at.IsZero())
	assert.Equal(t, 2, failures)
}

func newRecoveringChecker(t *testing.T, onRecover func(context.Context) error) (*healthChecker, *sql.DB, *bytes.Buffer) {
	t.Helper()
	closed, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, closed.Close())

	live, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = live.Close() })

	var buf bytes.Buffer
	log := logger.NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	hc := newHealthChecker(closed, log, time.Hour, func() string { return "mysql" }, onRecover)
	return hc, live, &buf
}

func TestHealthChecker_Recovery(t *testing.T) {
	recovered := 0
	hc, live, buf := newRecoveringChecker(t, func(ctx context.Context) error {
		recovered++
		return nil
	})

	hc.ping()
	hc.ping()
	assert.Contains(t, buf.String(), `"msg":"database unreachable"`)
	assert.Contains(t, buf.String(), `"dialect":"mysql"`)
	assert.Contains(t, buf.String(), `"consecutive_failures":2`)
	assert.Zero(t, recovered)

	hc.db = live
	hc.ping()
	_, failures, err := hc.status()
	require.NoError(t, err)
	assert.Zero(t, failures)
	assert.Equal(t, 1, recovered)
	assert.Contains(t, buf.String(), `"msg":"database reachable again"`)
	assert.Contains(t, buf.String(), `"failed_pings":2`)

	hc.ping()
	assert.Equal(t, 1, recovered, "healthy pings do not re-detect")
}

func TestHealthChecker_RecoveryDetectionFails(t *testing.T) {
	hc, live, buf := newRecoveringChecker(t, func(ctx context.Context) error {
		return errors.New("version query failed")
	})

	hc.ping()
	hc.db = live
	hc.ping()

	_, failures, err := hc.status()
	require.NoError(t, err)
	assert.Zero(t, failures)
	assert.Contains(t, buf.String(), `"msg":"capability detection after recovery failed"`)
	assert.Contains(t, buf.String(), "version query failed")
}

func TestHealthChecker_Shutdown(t *testing.T) {
	db, err := Open("sqlite", ":memory:", WithHealthCheck(10*time.Millisecond))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_ = db.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Close took too long")
	}
}
