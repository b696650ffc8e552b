package seeder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/cache"
	"github.com/Additional-Code/servicedesk/internal/entity"
	repo "github.com/Additional-Code/servicedesk/internal/repository/serviceorder"
	svc "github.com/Additional-Code/servicedesk/internal/service/serviceorder"
	"github.com/Additional-Code/servicedesk/internal/testutil"
)

func newSeeder(t *testing.T) *Seeder {
	t.Helper()
	cfg := testutil.Config(t)
	conns := testutil.NewDatabase(t, cfg)
	service, err := svc.NewService(svc.Params{
		Store:  repo.NewRepository(conns),
		Cache:  cache.NewMemoryStore(time.Minute),
		Config: cfg,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	s := New(service, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestSeedServiceOrders(t *testing.T) {
	s := newSeeder(t)
	ctx := context.Background()

	n, err := s.ServiceOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(samples), n)

	orders, err := s.orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, len(samples))

	byNumber := make(map[int64]entity.ServiceOrder, len(orders))
	for _, o := range orders {
		byNumber[o.Number] = o
	}
	first := byNumber[1027]
	assert.Equal(t, "Maria Souza", first.Requester)
	assert.Equal(t, entity.StatusClosed, first.Status)
	assert.NotNil(t, first.ClosedAt)
	require.NotNil(t, first.ServicePerformed)
	assert.Equal(t, time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC), first.OpenedAt.UTC())

	assert.Equal(t, entity.StatusInProgress, byNumber[1028].Status)
	assert.Nil(t, byNumber[1028].ClosedAt)
	assert.Equal(t, entity.StatusOpen, byNumber[1030].Status)
}

func TestSeedSkipsWhenOrdersExist(t *testing.T) {
	s := newSeeder(t)
	ctx := context.Background()

	_, err := s.ServiceOrders(ctx)
	require.NoError(t, err)

	n, err := s.ServiceOrders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	orders, err := s.orders.List(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, len(samples))
}
