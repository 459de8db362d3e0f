package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	OrdersCreated   prometheus.Counter
	StatusChanges   prometheus.Counter
	EventsPublished *prometheus.CounterVec
	Subscribers     prometheus.Gauge
	SubscriberDrops prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OrdersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "pizzaria_orders_created_total",
			Help: "Orders accepted and persisted.",
		}),
		StatusChanges: f.NewCounter(prometheus.CounterOpts{
			Name: "pizzaria_order_status_changes_total",
			Help: "Accepted order status transitions.",
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pizzaria_events_published_total",
			Help: "Event frames delivered to live subscribers.",
		}, []string{"type"}),
		Subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "pizzaria_live_subscribers",
			Help: "Currently connected event stream subscribers.",
		}),
		SubscriberDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "pizzaria_subscriber_drops_total",
			Help: "Subscribers dropped for stalled or failed writes.",
		}),
	}
}
