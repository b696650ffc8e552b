package seeder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/dto"
	"github.com/Additional-Code/servicedesk/internal/entity"
	svc "github.com/Additional-Code/servicedesk/internal/service/serviceorder"
)

// Orders is the subset of the service order use cases seeding needs.
type Orders interface {
	List(ctx context.Context) ([]entity.ServiceOrder, error)
	Create(ctx context.Context, req dto.CreateServiceOrderRequest) (*entity.ServiceOrder, error)
	Update(ctx context.Context, id int64, req dto.UpdateServiceOrderRequest) (*entity.ServiceOrder, error)
}

// Module provides the seeder on top of the service order service.
var Module = fx.Options(
	fx.Provide(func(s *svc.Service) Orders { return s }),
	fx.Provide(New),
)

// Seeder loads sample service orders for local/dev setups.
type Seeder struct {
	orders Orders
	logger *zap.Logger
	now    func() time.Time
}

// New constructs a Seeder.
func New(orders Orders, logger *zap.Logger) *Seeder {
	return &Seeder{orders: orders, logger: logger, now: time.Now}
}

type sample struct {
	requester, unit, department, problem string
	daysAgo                              int
	status                               entity.Status
	performed                            string
}

var samples = []sample{
	{"Maria Souza", "UBS Centro", "Recepção", "Impressora não imprime etiquetas", 9, entity.StatusClosed, "Troca do cabo USB e reinstalação do driver"},
	{"João Lima", "UBS Vila Nova", "Farmácia", "Computador reinicia sozinho", 6, entity.StatusInProgress, ""},
	{"Ana Pereira", "UBS Jardim", "Vacinação", "Sem acesso ao sistema de prontuário", 3, entity.StatusOpen, ""},
	{"Carlos Alves", "UBS Centro", "Administração", "Monitor sem imagem", 1, entity.StatusOpen, ""},
}

// ServiceOrders creates the sample orders through the regular create/update
// flow. Nothing is inserted when the table already has rows.
func (s *Seeder) ServiceOrders(ctx context.Context) (int, error) {
	existing, err := s.orders.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		s.logger.Info("service orders already present; skipping seed", zap.Int("count", len(existing)))
		return 0, nil
	}

	today := s.now().UTC()
	for _, smp := range samples {
		opened := today.AddDate(0, 0, -smp.daysAgo).Format("02/01/2006")
		order, err := s.orders.Create(ctx, dto.CreateServiceOrderRequest{
			Requester:          smp.requester,
			Unit:               smp.unit,
			Department:         smp.department,
			ProblemDescription: smp.problem,
			OpenedAt:           opened,
		})
		if err != nil {
			return 0, fmt.Errorf("seed %q: %w", smp.problem, err)
		}

		if smp.status == entity.StatusOpen {
			continue
		}
		update := dto.UpdateServiceOrderRequest{Status: dto.SomeString(string(smp.status))}
		if smp.performed != "" {
			update.ServicePerformed = dto.SomeString(smp.performed)
		}
		if _, err := s.orders.Update(ctx, order.ID, update); err != nil {
			return 0, fmt.Errorf("seed status for %d: %w", order.Number, err)
		}
	}

	s.logger.Info("seeded service orders", zap.Int("count", len(samples)))
	return len(samples), nil
}
