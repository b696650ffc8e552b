package migration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/migration"
	"github.com/Additional-Code/servicedesk/internal/testutil"
)

func TestMigratorRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.Config(t)
	conns := testutil.NewDatabase(t, cfg)

	mig, err := migration.New(cfg, conns, zap.NewNop())
	require.NoError(t, err)

	steps, err := mig.Status(ctx)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	for _, s := range steps {
		assert.True(t, s.Applied, s.Script)
	}

	require.NoError(t, mig.Up(ctx))
	version, err := mig.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	require.NoError(t, mig.Down(ctx, 0, false))
	version, err = mig.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, mig.Down(ctx, 0, true))
	version, err = mig.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	require.NoError(t, mig.Down(ctx, 3, false))
	require.NoError(t, mig.Up(ctx))
	steps, err = mig.Status(ctx)
	require.NoError(t, err)
	assert.True(t, steps[1].Applied)
}

func TestUnknownDriver(t *testing.T) {
	cfg := testutil.Config(t)
	conns := testutil.NewDatabase(t, cfg)
	cfg.Database.Driver = "oracle"

	_, err := migration.New(cfg, conns, zap.NewNop())
	assert.ErrorContains(t, err, "oracle")
}
