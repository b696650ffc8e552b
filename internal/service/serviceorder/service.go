package serviceorder

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/cache"
	"github.com/Additional-Code/servicedesk/internal/config"
	"github.com/Additional-Code/servicedesk/internal/dto"
	"github.com/Additional-Code/servicedesk/internal/entity"
	"github.com/Additional-Code/servicedesk/internal/messaging"
	"github.com/Additional-Code/servicedesk/internal/observability"
	"github.com/Additional-Code/servicedesk/internal/report"
	repo "github.com/Additional-Code/servicedesk/internal/repository/serviceorder"
	"github.com/Additional-Code/servicedesk/pkg/brdate"
	"github.com/Additional-Code/servicedesk/pkg/errorbank"
)

const instrumentationName = "github.com/Additional-Code/servicedesk/service/serviceorder"

var serviceTracer = otel.Tracer(instrumentationName)

// Messages returned to API clients.
const (
	MsgNotFound       = "Ordem de serviço não encontrada"
	MsgInvalidStatus  = "Status inválido"
	MsgNoFields       = "Nenhum campo para atualizar"
	MsgDeleted        = "Ordem de serviço deletada com sucesso"
	MsgReportEmpty    = "Nenhuma ordem de serviço encontrada para o relatório"
	MsgNumberConflict = "Não foi possível gerar o número da ordem de serviço"
)

// Store is the persistence contract the service depends on.
type Store interface {
	List(ctx context.Context, filter repo.Filter, order repo.SortOrder) ([]entity.ServiceOrder, error)
	GetByID(ctx context.Context, id int64) (*entity.ServiceOrder, error)
	GetByNumber(ctx context.Context, number int64) (*entity.ServiceOrder, error)
	MaxNumber(ctx context.Context) (int64, bool, error)
	Create(ctx context.Context, order *entity.ServiceOrder) error
	Update(ctx context.Context, order *entity.ServiceOrder, columns ...string) error
	Delete(ctx context.Context, id int64) error
}

// Document is a rendered PDF ready to be sent as an attachment.
type Document struct {
	Filename string
	Content  []byte
}

// Service implements the service order use cases.
type Service struct {
	store         Store
	cache         *cache.Orders
	logger        *zap.Logger
	publisher     messaging.Client
	eventsEnabled bool

	numberFloor    int64
	createAttempts int
	createBackoff  time.Duration

	metrics *observability.OrderMetrics

	now func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store     Store
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
	Metrics   *observability.Manager `optional:"true"`
}

// NewService wires a new Service instance.
func NewService(p Params) (*Service, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:          p.Store,
		cache:          cache.NewOrders(p.Cache, p.Config.Cache.DefaultTTL),
		logger:         logger,
		publisher:      p.Publisher,
		eventsEnabled:  p.Config.Messaging.Enabled,
		numberFloor:    p.Config.Orders.NumberFloor,
		createAttempts: p.Config.Orders.CreateAttempts,
		createBackoff:  p.Config.Orders.CreateBackoff,
		now:            time.Now,
	}
	if s.numberFloor <= 0 {
		s.numberFloor = config.DefaultNumberFloor
	}
	if s.createAttempts <= 0 {
		s.createAttempts = 1
	}
	if s.createBackoff <= 0 {
		s.createBackoff = 25 * time.Millisecond
	}

	metrics, err := p.Metrics.Orders()
	if err != nil {
		return nil, err
	}
	s.metrics = metrics

	return s, nil
}

// List returns every order ordered by number.
func (s *Service) List(ctx context.Context) ([]entity.ServiceOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "ServiceOrderService.List")
	defer span.End()

	orders, err := s.store.List(ctx, repo.Filter{}, repo.ByNumber)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("Erro ao buscar ordens de serviço", errorbank.WithCause(err))
	}
	return orders, nil
}

// ListByStatus returns the orders in status, ordered by number.
func (s *Service) ListByStatus(ctx context.Context, status string) ([]entity.ServiceOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "ServiceOrderService.ListByStatus", trace.WithAttributes(attribute.String("service_order.status", status)))
	defer span.End()

	st := entity.Status(status)
	if !st.Valid() {
		return nil, errorbank.BadRequest(MsgInvalidStatus)
	}

	orders, err := s.store.List(ctx, repo.Filter{Status: &st}, repo.ByNumber)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("Erro ao buscar ordens de serviço", errorbank.WithCause(err))
	}
	return orders, nil
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.ServiceOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "ServiceOrderService.Get", trace.WithAttributes(attribute.Int64("service_order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("service order cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(span, err)
	}

	s.storeInCache(ctx, order)
	return order, nil
}

// GetByNumber retrieves an order by its business number.
func (s *Service) GetByNumber(ctx context.Context, number int64) (*entity.ServiceOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "ServiceOrderService.GetByNumber", trace.WithAttributes(attribute.Int64("service_order.number", number)))
	defer span.End()

	order, err := s.store.GetByNumber(ctx, number)
	if err != nil {
		return nil, s.lookupError(span, err)
	}
	return order, nil
}

// Create validates dates, assigns the next order number and persists the
// order. Collisions on the number are retried with a fresh maximum.
func (s *Service) Create(ctx context.Context, req dto.CreateServiceOrderRequest) (*entity.ServiceOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "ServiceOrderService.Create")
	defer span.End()

	req.Normalize()

	var violations errorbank.Violations
	opened, err := brdate.Parse(req.OpenedAt)
	if err != nil {
		violations.Add("body.data_abertura", "Data de abertura inválida")
	}
	var closedAt *time.Time
	if req.ClosedAt != nil && *req.ClosedAt != "" {
		closed, err := brdate.Parse(*req.ClosedAt)
		if err != nil {
			violations.Add("body.data_fechamento", "Data de fechamento inválida")
		} else {
			closedAt = &closed
		}
	}
	status := entity.StatusOpen
	if req.Status != "" {
		status = entity.Status(req.Status)
		if !status.Valid() {
			violations.Add("body.status", MsgInvalidStatus)
		}
	}
	if err := violations.Err(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &entity.ServiceOrder{
		Requester:          req.Requester,
		Unit:               req.Unit,
		Department:         req.Department,
		ProblemDescription: req.ProblemDescription,
		OpenedAt:           opened,
		ServicePerformed:   nonBlank(req.ServicePerformed),
		Status:             status,
		ClosedAt:           closedAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	backoff := retry.WithMaxRetries(uint64(s.createAttempts-1), retry.NewConstant(s.createBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		highest, found, err := s.store.MaxNumber(ctx)
		if err != nil {
			return err
		}
		order.ID = 0
		order.Number = NextNumber(highest, found, s.numberFloor)

		err = s.store.Create(ctx, order)
		if errors.Is(err, repo.ErrDuplicateNumber) {
			s.metrics.NumberConflict(ctx)
			s.logger.Warn("service order number taken; retrying", zap.Int64("number", order.Number))
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		if errors.Is(err, repo.ErrDuplicateNumber) {
			return nil, errorbank.Conflict(MsgNumberConflict, errorbank.WithCause(err))
		}
		return nil, errorbank.Internal("Erro ao criar ordem de serviço", errorbank.WithCause(err))
	}

	span.SetAttributes(attribute.Int64("service_order.id", order.ID), attribute.Int64("service_order.number", order.Number))
	s.metrics.Created(ctx, string(order.Status))
	s.logger.Info("service order created", zap.Int64("id", order.ID), zap.Int64("number", order.Number))

	s.storeInCache(ctx, order)
	s.publish(ctx, EventCreated, order)
	return order, nil
}

// Update applies a partial update. Changing status without an explicit
// data_fechamento stamps the closing date when finishing and clears it
// otherwise.
func (s *Service) Update(ctx context.Context, id int64, req dto.UpdateServiceOrderRequest) (*entity.ServiceOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "ServiceOrderService.Update", trace.WithAttributes(attribute.Int64("service_order.id", id)))
	defer span.End()

	req.Normalize()
	if req.Empty() {
		return nil, errorbank.BadRequest(MsgNoFields)
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(span, err)
	}

	columns := make([]string, 0, 9)
	var violations errorbank.Violations

	setText := func(field dto.OptionalString, dst *string, column string) {
		if field.Set() && field.Value != "" {
			*dst = field.Value
			columns = append(columns, column)
		}
	}
	setText(req.Requester, &order.Requester, "solicitante")
	setText(req.Unit, &order.Unit, "ubs")
	setText(req.Department, &order.Department, "setor")
	setText(req.ProblemDescription, &order.ProblemDescription, "descricao_problema")

	if req.OpenedAt.Set() {
		opened, err := brdate.Parse(req.OpenedAt.Value)
		if err != nil {
			violations.Add("body.data_abertura", "Data de abertura inválida")
		} else {
			order.OpenedAt = opened
			columns = append(columns, "data_abertura")
		}
	}

	if req.ServicePerformed.Present {
		if req.ServicePerformed.Null {
			order.ServicePerformed = nil
		} else {
			order.ServicePerformed = nonBlank(&req.ServicePerformed.Value)
		}
		columns = append(columns, "servico_realizado")
	}

	if req.ClosedAt.Present {
		if req.ClosedAt.Blank() {
			order.ClosedAt = nil
		} else if closed, err := brdate.Parse(req.ClosedAt.Value); err != nil {
			violations.Add("body.data_fechamento", "Data de fechamento inválida")
		} else {
			order.ClosedAt = &closed
		}
		columns = append(columns, "data_fechamento")
	}

	if req.Status.Set() {
		status := entity.Status(req.Status.Value)
		if !status.Valid() {
			violations.Add("body.status", MsgInvalidStatus)
		} else {
			order.Status = status
			columns = append(columns, "status")
			if !req.ClosedAt.Present {
				if status == entity.StatusClosed {
					closed := s.now().UTC()
					order.ClosedAt = &closed
				} else {
					order.ClosedAt = nil
				}
				columns = append(columns, "data_fechamento")
			}
		}
	}

	if err := violations.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errorbank.BadRequest(MsgNoFields)
	}

	order.UpdatedAt = s.now().UTC()
	columns = append(columns, "updated_at")

	if err := s.store.Update(ctx, order, columns...); err != nil {
		return nil, s.lookupError(span, err)
	}

	s.evict(ctx, id)
	s.publish(ctx, EventUpdated, order)
	return order, nil
}

// Delete removes an order permanently.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "ServiceOrderService.Delete", trace.WithAttributes(attribute.Int64("service_order.id", id)))
	defer span.End()

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return s.lookupError(span, err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return s.lookupError(span, err)
	}

	s.evict(ctx, id)
	s.publish(ctx, EventDeleted, order)
	return nil
}

// OrderDocument renders the PDF for a single order.
func (s *Service) OrderDocument(ctx context.Context, id int64) (*Document, error) {
	ctx, span := serviceTracer.Start(ctx, "ServiceOrderService.OrderDocument", trace.WithAttributes(attribute.Int64("service_order.id", id)))
	defer span.End()

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(span, err)
	}

	var buf bytes.Buffer
	if err := report.RenderOrder(&buf, order, s.now()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, errorbank.Internal("Erro ao gerar PDF", errorbank.WithCause(err))
	}

	s.metrics.Document(ctx, "order")
	return &Document{Filename: report.OrderFilename(order.Number), Content: buf.Bytes()}, nil
}

// ReportDocument renders the filtered multi-order report.
func (s *Service) ReportDocument(ctx context.Context, q dto.ReportQuery) (*Document, error) {
	ctx, span := serviceTracer.Start(ctx, "ServiceOrderService.ReportDocument")
	defer span.End()

	criteria, filter, err := ReportCriteria(q)
	if err != nil {
		return nil, err
	}

	orders, err := s.store.List(ctx, filter, repo.ByOpeningDate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("Erro ao gerar relatório PDF", errorbank.WithCause(err))
	}
	if len(orders) == 0 {
		return nil, errorbank.NotFound(MsgReportEmpty)
	}
	span.SetAttributes(attribute.Int("service_order.count", len(orders)))

	now := s.now()
	var buf bytes.Buffer
	if err := report.RenderReport(&buf, orders, criteria, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, errorbank.Internal("Erro ao gerar relatório PDF", errorbank.WithCause(err))
	}

	s.metrics.Document(ctx, "report")
	return &Document{Filename: report.ReportFilename(now), Content: buf.Bytes()}, nil
}

// Evict drops the cached copy of an order.
func (s *Service) Evict(ctx context.Context, id int64) {
	s.evict(ctx, id)
}

func (s *Service) lookupError(span trace.Span, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		span.SetStatus(codes.Error, "not found")
		return errorbank.NotFound(MsgNotFound)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	return errorbank.Internal("Erro ao acessar ordem de serviço", errorbank.WithCause(err))
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.ServiceOrder, error) {
	return s.cache.Get(ctx, id)
}

func (s *Service) storeInCache(ctx context.Context, order *entity.ServiceOrder) {
	if err := s.cache.Put(ctx, order); err != nil {
		s.logger.Warn("service order cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}
}

func (s *Service) evict(ctx context.Context, id int64) {
	if err := s.cache.Evict(ctx, id); err != nil {
		s.logger.Warn("service order cache evict failed", zap.Int64("id", id), zap.Error(err))
	}
}

// nonBlank trims v and maps blank text to nil.
func nonBlank(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
