package disrnet

// metrics.go exports fabric counters through a prometheus registry.  A nil
// *Metrics is valid and records nothing.

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "disrnet"

// Metrics holds the collectors updated by routers and the simulator
type Metrics struct {
	PacketsForwarded *prometheus.CounterVec
	PacketsDropped   *prometheus.CounterVec
	Verdicts         *prometheus.CounterVec
	Violations       prometheus.Counter
	AssignedNodes    prometheus.Gauge
	Cycles           prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		PacketsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "router",
			Name:      "packets_forwarded_total",
			Help:      "Packets written to an output port, by packet kind.",
		}, []string{"kind"}),
		PacketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "router",
			Name:      "packets_dropped_total",
			Help:      "Packets lost, by packet kind and reason.",
		}, []string{"kind", "reason"}),
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "verdicts_total",
			Help:      "Decisions taken for head of queue packets, by verdict.",
		}, []string{"verdict"}),
		Violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "protocol_violations_total",
			Help:      "Packets that arrived in a state the protocol declares impossible.",
		}),
		AssignedNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "mesh",
			Name:      "assigned_nodes",
			Help:      "Nodes currently belonging to a confirmed segment.",
		}),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sim",
			Name:      "cycles_total",
			Help:      "Simulated clock cycles.",
		}),
	}
	for _, c := range []prometheus.Collector{m.PacketsForwarded, m.PacketsDropped, m.Verdicts,
		m.Violations, m.AssignedNodes, m.Cycles} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) forwarded(kind PacketKind) {
	if m == nil {
		return
	}
	m.PacketsForwarded.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) dropped(kind PacketKind, reason string) {
	if m == nil {
		return
	}
	m.PacketsDropped.WithLabelValues(kind.String(), reason).Inc()
}

func (m *Metrics) verdict(kind VerdictKind) {
	if m == nil {
		return
	}
	m.Verdicts.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) violation() {
	if m == nil {
		return
	}
	m.Violations.Inc()
}

func (m *Metrics) tick(assigned int) {
	if m == nil {
		return
	}
	m.Cycles.Inc()
	m.AssignedNodes.Set(float64(assigned))
}
