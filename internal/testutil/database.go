// Package testutil provides shared helpers for package tests.
//
// [NewDatabase] opens an isolated in-memory sqlite database with the
// schema migrated, so repository, service and handler tests can run
// without an external server. Helpers fail the test on setup errors.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
	"github.com/Additional-Code/servicedesk/internal/database"
	"github.com/Additional-Code/servicedesk/internal/migration"
)

var dbCounter atomic.Int64

// Config returns a configuration pointing at a fresh in-memory sqlite database.
func Config(t testing.TB) config.Config {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))

	return config.Config{
		Database: config.Database{
			Driver:    "sqlite",
			WriterDSN: dsn,
			ReaderDSN: dsn,
		},
		Orders: config.Orders{
			NumberFloor:    config.DefaultNumberFloor,
			CreateAttempts: 3,
			CreateBackoff:  1,
		},
	}
}

// NewDatabase opens the database described by cfg and applies migrations.
// Connections are closed when the test finishes.
func NewDatabase(t testing.TB, cfg config.Config) *database.Connections {
	t.Helper()

	logger := zap.NewNop()
	lc := fxtest.NewLifecycle(t)

	conns, err := database.New(lc, cfg, logger)
	require.NoError(t, err)
	lc.RequireStart()
	t.Cleanup(func() { lc.RequireStop() })

	migrator, err := migration.New(cfg, conns, logger)
	require.NoError(t, err)
	require.NoError(t, migrator.Up(context.Background()))

	return conns
}
