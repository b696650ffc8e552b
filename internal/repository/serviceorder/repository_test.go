package serviceorder_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/servicedesk/internal/entity"
	"github.com/Additional-Code/servicedesk/internal/repository/serviceorder"
	"github.com/Additional-Code/servicedesk/internal/testutil"
)

func newRepository(t *testing.T) *serviceorder.Repository {
	t.Helper()
	conns := testutil.NewDatabase(t, testutil.Config(t))
	return serviceorder.NewRepository(conns)
}

func noon(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, repo *serviceorder.Repository, number int64, requester string, opened time.Time, status entity.Status) *entity.ServiceOrder {
	t.Helper()
	order := &entity.ServiceOrder{
		Number:             number,
		Requester:          requester,
		Unit:               "UBS Centro",
		Department:         "Recepção",
		ProblemDescription: "Impressora não liga",
		OpenedAt:           opened,
		Status:             status,
	}
	require.NoError(t, repo.Create(context.Background(), order))
	require.NotZero(t, order.ID)
	return order
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	created := seed(t, repo, 1027, "Maria", noon(2024, time.March, 5), entity.StatusOpen)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1027), byID.Number)
	assert.Equal(t, "Maria", byID.Requester)
	assert.True(t, byID.OpenedAt.Equal(noon(2024, time.March, 5)))
	assert.Nil(t, byID.ClosedAt)
	assert.Nil(t, byID.ServicePerformed)

	byNumber, err := repo.GetByNumber(ctx, 1027)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byNumber.ID)

	_, err = repo.GetByID(ctx, created.ID+100)
	assert.ErrorIs(t, err, serviceorder.ErrNotFound)

	_, err = repo.GetByNumber(ctx, 9999)
	assert.ErrorIs(t, err, serviceorder.ErrNotFound)
}

func TestRepositoryCreateDuplicateNumber(t *testing.T) {
	repo := newRepository(t)

	seed(t, repo, 1027, "Maria", noon(2024, time.March, 5), entity.StatusOpen)

	dup := &entity.ServiceOrder{
		Number:             1027,
		Requester:          "João",
		Unit:               "UBS Norte",
		Department:         "TI",
		ProblemDescription: "Sem rede",
		OpenedAt:           noon(2024, time.March, 6),
		Status:             entity.StatusOpen,
	}
	err := repo.Create(context.Background(), dup)
	assert.ErrorIs(t, err, serviceorder.ErrDuplicateNumber)
}

func TestRepositoryMaxNumber(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	_, found, err := repo.MaxNumber(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	seed(t, repo, 1027, "Maria", noon(2024, time.March, 5), entity.StatusOpen)
	seed(t, repo, 1040, "João", noon(2024, time.March, 6), entity.StatusOpen)
	seed(t, repo, 1030, "Ana", noon(2024, time.March, 7), entity.StatusOpen)

	highest, found, err := repo.MaxNumber(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1040), highest)
}

func TestRepositoryMaxNumberSurvivesDelete(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	seed(t, repo, 1027, "Maria", noon(2024, time.March, 5), entity.StatusOpen)
	newest := seed(t, repo, 1028, "João", noon(2024, time.March, 6), entity.StatusOpen)
	require.NoError(t, repo.Delete(ctx, newest.ID))

	highest, found, err := repo.MaxNumber(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1028), highest)
}

func TestRepositoryListFilters(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	seed(t, repo, 1029, "Carlos", noon(2024, time.January, 10), entity.StatusClosed)
	seed(t, repo, 1027, "Maria_100%", noon(2024, time.March, 5), entity.StatusOpen)
	seed(t, repo, 1028, "João", noon(2024, time.February, 1), entity.StatusInProgress)

	t.Run("ordered by number", func(t *testing.T) {
		orders, err := repo.List(ctx, serviceorder.Filter{}, serviceorder.ByNumber)
		require.NoError(t, err)
		require.Len(t, orders, 3)
		assert.Equal(t, []int64{1027, 1028, 1029}, numbers(orders))
	})

	t.Run("ordered by opening date", func(t *testing.T) {
		orders, err := repo.List(ctx, serviceorder.Filter{}, serviceorder.ByOpeningDate)
		require.NoError(t, err)
		assert.Equal(t, []int64{1029, 1028, 1027}, numbers(orders))
	})

	t.Run("status", func(t *testing.T) {
		status := entity.StatusInProgress
		orders, err := repo.List(ctx, serviceorder.Filter{Status: &status}, serviceorder.ByNumber)
		require.NoError(t, err)
		assert.Equal(t, []int64{1028}, numbers(orders))
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		orders, err := repo.List(ctx, serviceorder.Filter{Search: "CARLOS"}, serviceorder.ByNumber)
		require.NoError(t, err)
		assert.Equal(t, []int64{1029}, numbers(orders))
	})

	t.Run("search matches number", func(t *testing.T) {
		orders, err := repo.List(ctx, serviceorder.Filter{Search: "1028"}, serviceorder.ByNumber)
		require.NoError(t, err)
		assert.Equal(t, []int64{1028}, numbers(orders))
	})

	t.Run("search treats wildcards literally", func(t *testing.T) {
		orders, err := repo.List(ctx, serviceorder.Filter{Search: "_100%"}, serviceorder.ByNumber)
		require.NoError(t, err)
		assert.Equal(t, []int64{1027}, numbers(orders))

		orders, err = repo.List(ctx, serviceorder.Filter{Search: "%"}, serviceorder.ByNumber)
		require.NoError(t, err)
		assert.Equal(t, []int64{1027}, numbers(orders))
	})

	t.Run("opening date bounds are inclusive", func(t *testing.T) {
		from := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, time.March, 5, 23, 59, 59, 999_000_000, time.UTC)
		orders, err := repo.List(ctx, serviceorder.Filter{OpenedFrom: &from, OpenedTo: &to}, serviceorder.ByOpeningDate)
		require.NoError(t, err)
		assert.Equal(t, []int64{1028, 1027}, numbers(orders))
	})

	t.Run("no match", func(t *testing.T) {
		orders, err := repo.List(ctx, serviceorder.Filter{Search: "inexistente"}, serviceorder.ByNumber)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestRepositoryUpdate(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	order := seed(t, repo, 1027, "Maria", noon(2024, time.March, 5), entity.StatusOpen)

	performed := "Cabo substituído"
	closed := noon(2024, time.March, 8)
	order.Status = entity.StatusClosed
	order.ServicePerformed = &performed
	order.ClosedAt = &closed
	order.Requester = "ignored"
	order.UpdatedAt = time.Now().UTC()

	require.NoError(t, repo.Update(ctx, order, "status", "servico_realizado", "data_fechamento", "updated_at"))

	stored, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusClosed, stored.Status)
	require.NotNil(t, stored.ServicePerformed)
	assert.Equal(t, performed, *stored.ServicePerformed)
	require.NotNil(t, stored.ClosedAt)
	assert.True(t, stored.ClosedAt.Equal(closed))
	assert.Equal(t, "Maria", stored.Requester)

	missing := &entity.ServiceOrder{ID: order.ID + 50, Status: entity.StatusOpen}
	err = repo.Update(ctx, missing, "status")
	assert.ErrorIs(t, err, serviceorder.ErrNotFound)
}

func TestRepositoryDelete(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	order := seed(t, repo, 1027, "Maria", noon(2024, time.March, 5), entity.StatusOpen)

	require.NoError(t, repo.Delete(ctx, order.ID))

	_, err := repo.GetByID(ctx, order.ID)
	assert.ErrorIs(t, err, serviceorder.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, order.ID), serviceorder.ErrNotFound)
}

func numbers(orders []entity.ServiceOrder) []int64 {
	out := make([]int64, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Number)
	}
	return out
}
