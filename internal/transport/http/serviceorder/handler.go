package serviceorder

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/dto"
	"github.com/Additional-Code/servicedesk/internal/presentation/http/response"
	service "github.com/Additional-Code/servicedesk/internal/service/serviceorder"
	"github.com/Additional-Code/servicedesk/pkg/errorbank"
)

// BasePath is the route prefix for service order endpoints.
const BasePath = "/api/ordens-servico"

const mimePDF = "application/pdf"

var httpTracer = otel.Tracer("github.com/Additional-Code/servicedesk/transport/http/serviceorder")

// Handler exposes service order endpoints over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewHandler constructs a service order Handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group(BasePath)
	g.GET("/pdf/relatorio/geral", h.report)
	g.GET("/pdf/:id", h.orderPDF)
	g.GET("", h.list)
	g.GET("/", h.list)
	g.GET("/status/:status", h.listByStatus)
	g.GET("/numero/:numero", h.getByNumber)
	g.GET("/:id", h.getByID)
	g.POST("", h.create)
	g.POST("/", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) respond(c echo.Context) *response.Builder {
	return response.New(c).WithLogger(h.logger)
}

func (h *Handler) list(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "ordens_servico.list")
	defer span.End()

	orders, err := h.svc.List(ctx)
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}
	return h.respond(c).WithData(dto.NewServiceOrderResponses(orders)).Build()
}

func (h *Handler) listByStatus(c echo.Context) error {
	status := c.Param("status")
	ctx, span := httpTracer.Start(c.Request().Context(), "ordens_servico.listByStatus", trace.WithAttributes(attribute.String("service_order.status", status)))
	defer span.End()

	orders, err := h.svc.ListByStatus(ctx, status)
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}
	return h.respond(c).WithData(dto.NewServiceOrderResponses(orders)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	id, err := pathID(c, "id", "ID inválido")
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "ordens_servico.getByID", trace.WithAttributes(attribute.Int64("service_order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}
	return h.respond(c).WithData(dto.NewServiceOrderResponse(order)).Build()
}

func (h *Handler) getByNumber(c echo.Context) error {
	number, err := pathID(c, "numero", "Número da OS inválido")
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "ordens_servico.getByNumber", trace.WithAttributes(attribute.Int64("service_order.number", number)))
	defer span.End()

	order, err := h.svc.GetByNumber(ctx, number)
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}
	return h.respond(c).WithData(dto.NewServiceOrderResponse(order)).Build()
}

func (h *Handler) create(c echo.Context) error {
	var req dto.CreateServiceOrderRequest
	if err := c.Bind(&req); err != nil {
		return h.respond(c).WithError(errorbank.BadRequest("Corpo da requisição inválido", errorbank.WithCause(err))).Build()
	}
	req.Normalize()
	if err := c.Validate(&req); err != nil {
		return h.respond(c).WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "ordens_servico.create")
	defer span.End()

	order, err := h.svc.Create(ctx, req)
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}
	span.SetAttributes(attribute.Int64("service_order.number", order.Number))

	return h.respond(c).WithStatus(http.StatusCreated).WithData(dto.NewServiceOrderResponse(order)).Build()
}

func (h *Handler) update(c echo.Context) error {
	id, err := pathID(c, "id", "ID inválido")
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}

	var req dto.UpdateServiceOrderRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return h.respond(c).WithError(errorbank.BadRequest("Corpo da requisição inválido", errorbank.WithCause(err))).Build()
	}
	req.Normalize()
	if err := c.Validate(&req); err != nil {
		return h.respond(c).WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "ordens_servico.update", trace.WithAttributes(attribute.Int64("service_order.id", id)))
	defer span.End()

	order, err := h.svc.Update(ctx, id, req)
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}
	return h.respond(c).WithData(dto.NewServiceOrderResponse(order)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	id, err := pathID(c, "id", "ID inválido")
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "ordens_servico.delete", trace.WithAttributes(attribute.Int64("service_order.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return h.respond(c).WithError(err).Build()
	}
	return h.respond(c).WithData(dto.MessageResponse{Message: service.MsgDeleted}).Build()
}

func (h *Handler) orderPDF(c echo.Context) error {
	id, err := pathID(c, "id", "ID inválido")
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "ordens_servico.pdf", trace.WithAttributes(attribute.Int64("service_order.id", id)))
	defer span.End()

	doc, err := h.svc.OrderDocument(ctx, id)
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}
	return h.respond(c).WithAttachment(mimePDF, doc.Filename, doc.Content).Build()
}

func (h *Handler) report(c echo.Context) error {
	var q dto.ReportQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return h.respond(c).WithError(errorbank.BadRequest("Parâmetros inválidos", errorbank.WithCause(err))).Build()
	}
	q.Normalize()
	if err := c.Validate(&q); err != nil {
		return h.respond(c).WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "ordens_servico.report")
	defer span.End()

	doc, err := h.svc.ReportDocument(ctx, q)
	if err != nil {
		return h.respond(c).WithError(err).Build()
	}
	return h.respond(c).WithAttachment(mimePDF, doc.Filename, doc.Content).Build()
}

func pathID(c echo.Context, name, message string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, errorbank.Invalid("params."+name, message)
	}
	return id, nil
}
