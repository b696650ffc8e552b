package serviceorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/entity"
)

// EventType names a service order lifecycle change.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is published on the message bus after every successful write.
type Event struct {
	Type   EventType     `json:"type"`
	ID     int64         `json:"id"`
	Number int64         `json:"numero_os"`
	Status entity.Status `json:"status"`
	At     time.Time     `json:"at"`
}

// EventKey is the partition key for events about order id.
func EventKey(id int64) []byte {
	return []byte(fmt.Sprintf("ordens-servico-%d", id))
}

func (s *Service) publish(ctx context.Context, kind EventType, order *entity.ServiceOrder) {
	if !s.eventsEnabled || s.publisher == nil || order == nil {
		return
	}
	event := Event{
		Type:   kind,
		ID:     order.ID,
		Number: order.Number,
		Status: order.Status,
		At:     s.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal service order event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, EventKey(order.ID), payload); err != nil {
		s.logger.Error("publish service order event",
			zap.String("type", string(kind)),
			zap.Int64("id", order.ID),
			zap.Error(err),
		)
	}
}
