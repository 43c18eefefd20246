package queue

import (
	"context"
	"fmt"
	"time"

	"tableorder-service/internal/ws"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RealtimeExchange fans realtime envelopes out to every service instance.
const RealtimeExchange = "tableorder.realtime"

type publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// Deliverer hands an encoded envelope to the websocket clients of one room.
type Deliverer interface {
	Deliver(room string, message []byte)
}

// Relay publishes realtime events through RabbitMQ so that clients connected
// to any instance receive them.
type Relay struct {
	client publisher
	local  Deliverer
	logger *zap.Logger
}

func NewRelay(client publisher, local Deliverer, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{client: client, local: local, logger: logger}
}

// Publish sends the event to the exchange. When the broker is unreachable the
// event is still delivered to this instance's clients.
func (r *Relay) Publish(ctx context.Context, room, event string, payload any) error {
	message, err := ws.Encode(room, event, payload, time.Now())
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, RealtimeExchange, room, message); err != nil {
		r.local.Deliver(room, message)
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}

// Run forwards deliveries to local clients until ctx is done or the channel closes.
func (r *Relay) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				r.logger.Warn("realtime relay consumer closed")
				return
			}
			r.handle(msg)
		}
	}
}

func (r *Relay) handle(msg amqp.Delivery) {
	env, err := ws.Decode(msg.Body)
	if err != nil || env.Room == "" {
		r.logger.Warn("dropping malformed realtime envelope", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	r.local.Deliver(env.Room, msg.Body)
	_ = msg.Ack(false)
}

// StartRelay declares the realtime topology on client and starts consuming
// into local.
func StartRelay(ctx context.Context, client *Client, local Deliverer, logger *zap.Logger) (*Relay, error) {
	if err := client.EnsureExchangeKind(RealtimeExchange, "fanout"); err != nil {
		return nil, err
	}
	q, err := client.DeclareInstanceQueue()
	if err != nil {
		return nil, err
	}
	if err := client.BindQueue(q.Name, RealtimeExchange, ""); err != nil {
		return nil, err
	}
	deliveries, err := client.Consume(q.Name)
	if err != nil {
		return nil, err
	}
	relay := NewRelay(client, local, logger)
	go relay.Run(ctx, deliveries)
	return relay, nil
}
