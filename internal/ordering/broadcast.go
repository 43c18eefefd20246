package ordering

import (
	"context"
	"time"

	"tableorder-service/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventNewOrder    = "order:new"
	EventOrderStatus = "order:status"
	EventTableStatus = "table:status"
	EventKOTStatus   = "kot:status"
	EventBillRequest = "bill:request"
)

func RestaurantRoom(id uuid.UUID) string {
	return "restaurant:" + id.String()
}

func TableRoom(id uuid.UUID) string {
	return "table:" + id.String()
}

// Publisher delivers one event to every subscriber of a room.
type Publisher interface {
	Publish(ctx context.Context, room, event string, payload any) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

type OrderStatusPayload struct {
	OrderID       uuid.UUID     `json:"orderId"`
	OrderNumber   string        `json:"orderNumber"`
	TableID       uuid.UUID     `json:"tableId"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Total         float64       `json:"total"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type BillRequestPayload struct {
	TableID     uuid.UUID `json:"tableId"`
	OrderCount  int       `json:"orderCount"`
	ItemCount   int       `json:"itemCount"`
	Total       float64   `json:"total"`
	RequestedAt time.Time `json:"requestedAt"`
}

func orderStatusPayload(o Order) OrderStatusPayload {
	return OrderStatusPayload{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		TableID:       o.TableID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total,
		UpdatedAt:     o.UpdatedAt,
	}
}

// Broadcaster emits the domain events. Delivery is fire-and-forget: a
// transport failure is logged and never reaches the caller.
type Broadcaster struct {
	publisher Publisher
	logger    *zap.Logger
}

func NewBroadcaster(publisher Publisher, logger *zap.Logger) *Broadcaster {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{publisher: publisher, logger: logger}
}

func (b *Broadcaster) emit(ctx context.Context, room, event string, payload any) {
	metrics.BroadcastEvents.WithLabelValues(event).Inc()
	if err := b.publisher.Publish(ctx, room, event, payload); err != nil {
		metrics.BroadcastFailures.Inc()
		b.logger.Warn("broadcast failed", zap.String("room", room), zap.String("event", event), zap.Error(err))
	}
}

func (b *Broadcaster) EmitNewOrder(ctx context.Context, order Order) {
	b.emit(ctx, RestaurantRoom(order.RestaurantID), EventNewOrder, order)
}

func (b *Broadcaster) EmitOrderStatus(ctx context.Context, order Order) {
	b.emit(ctx, TableRoom(order.TableID), EventOrderStatus, orderStatusPayload(order))
}

func (b *Broadcaster) EmitTableStatus(ctx context.Context, table Table) {
	b.emit(ctx, RestaurantRoom(table.RestaurantID), EventTableStatus, table)
}

func (b *Broadcaster) EmitKOTStatus(ctx context.Context, restaurantID, tableID uuid.UUID, kot KOT) {
	b.emit(ctx, RestaurantRoom(restaurantID), EventKOTStatus, kot)
	b.emit(ctx, TableRoom(tableID), EventKOTStatus, kot)
}

func (b *Broadcaster) EmitBillRequest(ctx context.Context, restaurantID uuid.UUID, payload BillRequestPayload) {
	b.emit(ctx, RestaurantRoom(restaurantID), EventBillRequest, payload)
}
