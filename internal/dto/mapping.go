package dto

import (
	"github.com/Additional-Code/servicedesk/internal/entity"
	"github.com/Additional-Code/servicedesk/pkg/brdate"
)

// NewServiceOrderResponse renders an order for the wire.
func NewServiceOrderResponse(order *entity.ServiceOrder) ServiceOrderResponse {
	return ServiceOrderResponse{
		ID:                 order.ID,
		Number:             order.Number,
		Requester:          order.Requester,
		Unit:               order.Unit,
		Department:         order.Department,
		ProblemDescription: order.ProblemDescription,
		OpenedAt:           brdate.FormatPtr(&order.OpenedAt),
		ServicePerformed:   order.ServicePerformed,
		Status:             string(order.Status),
		ClosedAt:           brdate.FormatPtr(order.ClosedAt),
	}
}

// NewServiceOrderResponses renders a list, never returning nil.
func NewServiceOrderResponses(orders []entity.ServiceOrder) []ServiceOrderResponse {
	out := make([]ServiceOrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewServiceOrderResponse(&orders[i]))
	}
	return out
}
