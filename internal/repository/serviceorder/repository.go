package serviceorder

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/servicedesk/internal/database"
	"github.com/Additional-Code/servicedesk/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/servicedesk/repository/serviceorder")

var (
	// ErrNotFound is returned when a service order is missing.
	ErrNotFound = errors.New("service order not found")
	// ErrDuplicateNumber is returned when numero_os is already taken.
	ErrDuplicateNumber = errors.New("service order number already taken")
)

// SortOrder selects the ordering of List results.
type SortOrder int

const (
	// ByNumber orders by numero_os ascending.
	ByNumber SortOrder = iota
	// ByOpeningDate orders by data_abertura ascending, ties by numero_os.
	ByOpeningDate
)

// Filter narrows List results. Zero fields do not filter.
type Filter struct {
	Status     *entity.Status
	Search     string
	OpenedFrom *time.Time
	OpenedTo   *time.Time
}

// Repository encapsulates read/write access for service orders.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// List returns the orders matching filter in the requested order.
func (r *Repository) List(ctx context.Context, filter Filter, order SortOrder) ([]entity.ServiceOrder, error) {
	ctx, span := repoTracer.Start(ctx, "ServiceOrderRepository.List")
	defer span.End()

	orders := make([]entity.ServiceOrder, 0)
	q := r.reader.NewSelect().Model(&orders)

	if filter.Status != nil {
		q = q.Where("os.status = ?", *filter.Status)
		span.SetAttributes(attribute.String("service_order.status", string(*filter.Status)))
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		numberExpr := r.numberAsText()
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr(numberExpr+" LIKE ? ESCAPE '!'", pattern).
				WhereOr("LOWER(os.solicitante) LIKE ? ESCAPE '!'", pattern).
				WhereOr("LOWER(os.ubs) LIKE ? ESCAPE '!'", pattern).
				WhereOr("LOWER(os.setor) LIKE ? ESCAPE '!'", pattern).
				WhereOr("LOWER(os.descricao_problema) LIKE ? ESCAPE '!'", pattern)
		})
	}
	if filter.OpenedFrom != nil {
		q = q.Where("os.data_abertura >= ?", filter.OpenedFrom.UTC())
	}
	if filter.OpenedTo != nil {
		q = q.Where("os.data_abertura <= ?", filter.OpenedTo.UTC())
	}

	switch order {
	case ByOpeningDate:
		q = q.Order("os.data_abertura ASC", "os.numero_os ASC")
	default:
		q = q.Order("os.numero_os ASC")
	}

	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("service_order.count", len(orders)))
	return orders, nil
}

// GetByID fetches an order by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.ServiceOrder, error) {
	ctx, span := repoTracer.Start(ctx, "ServiceOrderRepository.GetByID", trace.WithAttributes(attribute.Int64("service_order.id", id)))
	defer span.End()

	return r.getOne(ctx, span, "os.id = ?", id)
}

// GetByNumber fetches an order by its business number.
func (r *Repository) GetByNumber(ctx context.Context, number int64) (*entity.ServiceOrder, error) {
	ctx, span := repoTracer.Start(ctx, "ServiceOrderRepository.GetByNumber", trace.WithAttributes(attribute.Int64("service_order.number", number)))
	defer span.End()

	return r.getOne(ctx, span, "os.numero_os = ?", number)
}

func (r *Repository) getOne(ctx context.Context, span trace.Span, where string, arg any) (*entity.ServiceOrder, error) {
	order := new(entity.ServiceOrder)
	err := r.reader.NewSelect().Model(order).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// MaxNumber returns the highest order number ever issued: the larger of the
// newest stored order and the issue high-water mark, which survives deletes.
// found is false when no number was ever issued. It reads from the writer to
// avoid replica lag.
func (r *Repository) MaxNumber(ctx context.Context) (number int64, found bool, err error) {
	ctx, span := repoTracer.Start(ctx, "ServiceOrderRepository.MaxNumber")
	defer span.End()

	latest := new(entity.ServiceOrder)
	err = r.writer.NewSelect().
		Model(latest).
		Column("numero_os").
		Order("os.numero_os DESC").
		Limit(1).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return 0, false, err
	default:
		number, found = latest.Number, true
	}

	seq := new(entity.NumberSequence)
	err = r.writer.NewSelect().
		Model(seq).
		Where("seq.id = ?", entity.NumberSequenceID).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "select sequence failed")
		return 0, false, err
	case seq.LastNumber > number:
		number, found = seq.LastNumber, true
	}

	return number, found, nil
}

// Create persists a new order and raises the issue high-water mark in the
// same transaction.
func (r *Repository) Create(ctx context.Context, order *entity.ServiceOrder) error {
	if order == nil {
		return errors.New("nil service order")
	}
	ctx, span := repoTracer.Start(ctx, "ServiceOrderRepository.Create", trace.WithAttributes(attribute.Int64("service_order.number", order.Number)))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*entity.NumberSequence)(nil)).
			Set("ultimo_numero = ?", order.Number).
			Where("id = ?", entity.NumberSequenceID).
			Where("ultimo_numero < ?", order.Number).
			Exec(ctx)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			span.SetStatus(codes.Error, "duplicate number")
			return ErrDuplicateNumber
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// Update writes the named columns of order, matched by primary key.
func (r *Repository) Update(ctx context.Context, order *entity.ServiceOrder, columns ...string) error {
	if order == nil {
		return errors.New("nil service order")
	}
	ctx, span := repoTracer.Start(ctx, "ServiceOrderRepository.Update", trace.WithAttributes(
		attribute.Int64("service_order.id", order.ID),
		attribute.StringSlice("service_order.columns", columns),
	))
	defer span.End()

	q := r.writer.NewUpdate().Model(order).WherePK()
	if len(columns) > 0 {
		q = q.Column(columns...)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}

// Delete removes an order permanently.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "ServiceOrderRepository.Delete", trace.WithAttributes(attribute.Int64("service_order.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().
		Model((*entity.ServiceOrder)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return err
	}
	if n == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}

func (r *Repository) numberAsText() string {
	if r.reader.Dialect().Name() == dialect.MySQL {
		return "CAST(os.numero_os AS CHAR)"
	}
	return "CAST(os.numero_os AS TEXT)"
}

// escapeLike escapes LIKE wildcards with '!', which needs no quoting in any
// supported dialect.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
