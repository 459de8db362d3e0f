// Package notify bridges order events to the external push gateway
// over Kafka. Delivery is best-effort by contract: the order mutation
// has already committed when an event reaches this package, so nothing
// here ever surfaces a failure to the service.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"

	"github.com/fornalha/pizzaria-orders/internal/orders"
)

const Topic = "pizzaria.order.events"

// Envelope is the wire shape the push gateway consumes.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OrderID    string          `json:"order_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type Gateway struct {
	w       *kafka.Writer
	breaker *gobreaker.CircuitBreaker[any]
	inbox   chan kafka.Message
	closed  chan struct{}
	service string
	log     *slog.Logger
}

func NewGateway(brokers []string, service string, buf int, log *slog.Logger) *Gateway {
	if buf <= 0 {
		buf = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		// A dead broker opens the breaker so queued events are shed
		// cheaply instead of each one waiting out a write timeout.
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:    "push-gateway",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
		inbox:   make(chan kafka.Message, buf),
		closed:  make(chan struct{}),
		service: service,
		log:     log,
	}
}

// Start runs the writer loop until ctx is canceled, then flushes
// whatever is still queued and closes the writer.
func (g *Gateway) Start(ctx context.Context) {
	go func() {
		defer close(g.closed)
		for {
			select {
			case <-ctx.Done():
				close(g.inbox)
				for m := range g.inbox {
					g.write(m)
				}
				_ = g.w.Close()
				return
			case m, ok := <-g.inbox:
				if !ok {
					_ = g.w.Close()
					return
				}
				g.write(m)
			}
		}
	}()
}

func (g *Gateway) write(m kafka.Message) {
	_, err := g.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return nil, g.w.WriteMessages(ctx, m)
	})
	if err != nil {
		g.log.Warn("push gateway delivery failed", "err", err)
	}
}

// Notify enqueues the event. When the inbox is full the event is
// dropped rather than back-pressuring the caller.
func (g *Gateway) Notify(ev orders.Event) {
	env := Envelope{
		EventID:    ev.ID,
		EventType:  ev.Type,
		OrderID:    ev.OrderID,
		OccurredAt: ev.OccurredAt,
		Producer:   g.service,
		Payload:    ev.Payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		g.log.Error("envelope marshal failed", "err", err)
		return
	}
	msg := kafka.Message{
		// Key = order id keeps one order's events in partition order.
		Key:   []byte(ev.OrderID),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(ev.Type)},
		},
	}
	select {
	case g.inbox <- msg:
	default:
		g.log.Warn("notification inbox full, event dropped", "order_id", ev.OrderID, "type", ev.Type)
	}
}

// WaitClosed blocks until the writer loop has drained and exited.
func (g *Gateway) WaitClosed() { <-g.closed }
