package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/taufiqfebriant/wo-management/internal/wom/entity"
	"go.uber.org/zap"
)

// Event types published on the work order channel.
const (
	EventWorkOrderCreated = "work_order.created"
	EventStatusChanged    = "work_order.status_changed"
	EventProgressAdded    = "work_order.progress_added"
)

// WorkOrderEvent is the payload pushed to downstream consumers (UI push,
// integrations) whenever a work order changes.
type WorkOrderEvent struct {
	Type           string                  `json:"type"`
	WorkOrderID    string                  `json:"work_order_id"`
	Number         string                  `json:"number"`
	PreviousStatus *entity.WorkOrderStatus `json:"previous_status,omitempty"`
	NewStatus      *entity.WorkOrderStatus `json:"new_status,omitempty"`
	UserID         string                  `json:"user_id"`
	OccurredAt     time.Time               `json:"occurred_at"`
}

// EventPublisher publishes work order events to a Redis pub/sub channel.
// A nil publisher (or nil client) drops events, so the core never depends on
// Redis being up.
type EventPublisher struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

func NewEventPublisher(rdb *redis.Client, channel string, logger *zap.Logger) *EventPublisher {
	if channel == "" {
		channel = "wo-management:events"
	}
	return &EventPublisher{rdb: rdb, channel: channel, logger: logger}
}

// Publish sends the event, logging instead of failing the calling operation
// when the broker is unreachable. Events are advisory; the audit trail in
// work_order_updates is the source of truth.
func (p *EventPublisher) Publish(ctx context.Context, event WorkOrderEvent) {
	if p == nil || p.rdb == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil && p.logger != nil {
		p.logger.Warn("Failed to publish work order event",
			zap.String("type", event.Type),
			zap.String("work_order_id", event.WorkOrderID),
			zap.Error(err),
		)
	}
}
