package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "stable_arb_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry        *prometheus.Registry
	oppsFound       prometheus.Counter
	oppsRejected    prometheus.Counter
	ordersPlaced    prometheus.Counter
	ordersFailed    prometheus.Counter
	tradesCompleted prometheus.Counter
	tradesFailed    prometheus.Counter
	sinkErrors      prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	oppsFound := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "opportunities_found_total",
		Help:      "Total number of opportunities sent to risk validation.",
	})
	oppsRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "opportunities_rejected_total",
		Help:      "Total number of opportunities denied by risk controllers.",
	})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_placed_total",
		Help:      "Total number of orders placed.",
	})
	ordersFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_failed_total",
		Help:      "Total number of order placement failures.",
	})
	tradesCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "trades_completed_total",
		Help:      "Total number of completed two-leg trades.",
	})
	tradesFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "trades_failed_total",
		Help:      "Total number of two-leg trades that ended failed.",
	})
	sinkErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "sink_errors_total",
		Help:      "Total number of history sink write failures.",
	})

	registry.MustRegister(oppsFound, oppsRejected, ordersPlaced, ordersFailed, tradesCompleted, tradesFailed, sinkErrors)

	m := &Metrics{
		OpportunitiesFound:    promCounter{oppsFound},
		OpportunitiesRejected: promCounter{oppsRejected},
		OrdersPlaced:          promCounter{ordersPlaced},
		OrdersFailed:          promCounter{ordersFailed},
		TradesCompleted:       promCounter{tradesCompleted},
		TradesFailed:          promCounter{tradesFailed},
		SinkErrors:            promCounter{sinkErrors},
	}

	return &Prometheus{
		Metrics:         m,
		registry:        registry,
		oppsFound:       oppsFound,
		oppsRejected:    oppsRejected,
		ordersPlaced:    ordersPlaced,
		ordersFailed:    ordersFailed,
		tradesCompleted: tradesCompleted,
		tradesFailed:    tradesFailed,
		sinkErrors:      sinkErrors,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
