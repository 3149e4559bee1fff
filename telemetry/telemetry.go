package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the bridge.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks are
// executed inline with command completions.
type Collector interface {
	IncConnectionAttempt(outcome string)
	IncCompletion(outcome string)
	SetLiveClients(count int)
	IncLaneOverflow()
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncConnectionAttempt(string) {}
func (noopCollector) IncCompletion(string)        {}
func (noopCollector) SetLiveClients(int)          {}
func (noopCollector) IncLaneOverflow()            {}

// PrometheusCollector exposes telemetry counters via Prometheus.
type PrometheusCollector struct {
	connections  *prometheus.CounterVec
	completions  *prometheus.CounterVec
	liveClients  prometheus.Gauge
	laneOverflow prometheus.Counter
}

var (
	metricsLock         sync.Mutex
	connectionCounter   *prometheus.CounterVec
	completionCounter   *prometheus.CounterVec
	liveClientsGauge    prometheus.Gauge
	laneOverflowCounter prometheus.Counter
)

// register adds c to reg, returning the already registered collector of the
// same description when there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// NewPrometheusCollector registers the required metrics with the provided registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metricsLock.Lock()
	defer metricsLock.Unlock()

	if connectionCounter == nil {
		counter, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvbridge_connection_attempts_total",
			Help: "Number of create_client calls by outcome (ok or error kind).",
		}, []string{"outcome"}))
		if err != nil {
			return nil, err
		}
		connectionCounter = counter
	}

	if completionCounter == nil {
		counter, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvbridge_command_completions_total",
			Help: "Number of delivered command completions by outcome (ok or error kind).",
		}, []string{"outcome"}))
		if err != nil {
			return nil, err
		}
		completionCounter = counter
	}

	if liveClientsGauge == nil {
		gauge, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvbridge_live_clients",
			Help: "Number of client handles created and not yet closed.",
		}))
		if err != nil {
			return nil, err
		}
		liveClientsGauge = gauge
	}

	if laneOverflowCounter == nil {
		counter, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvbridge_dispatch_overflow_total",
			Help: "Number of completions run outside the worker pool because its queue was full.",
		}))
		if err != nil {
			return nil, err
		}
		laneOverflowCounter = counter
	}

	return &PrometheusCollector{
		connections:  connectionCounter,
		completions:  completionCounter,
		liveClients:  liveClientsGauge,
		laneOverflow: laneOverflowCounter,
	}, nil
}

// IncConnectionAttempt counts one connection attempt.
func (p *PrometheusCollector) IncConnectionAttempt(outcome string) {
	if p == nil || p.connections == nil {
		return
	}
	p.connections.WithLabelValues(outcome).Inc()
}

// IncCompletion counts one delivered completion.
func (p *PrometheusCollector) IncCompletion(outcome string) {
	if p == nil || p.completions == nil {
		return
	}
	p.completions.WithLabelValues(outcome).Inc()
}

// SetLiveClients updates the live client gauge.
func (p *PrometheusCollector) SetLiveClients(count int) {
	if p == nil || p.liveClients == nil {
		return
	}
	p.liveClients.Set(float64(count))
}

// IncLaneOverflow counts one completion that bypassed the pool queue.
func (p *PrometheusCollector) IncLaneOverflow() {
	if p == nil || p.laneOverflow == nil {
		return
	}
	p.laneOverflow.Inc()
}
