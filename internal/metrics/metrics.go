// Package metrics holds the daemon's prometheus registry. It counts
// commands, connections and bus traffic, and doubles as the element buffer
// statistics provider behind /stats.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gstd/pkg/core"
	"gstd/pkg/engine"
	"gstd/pkg/parser"
)

const namespace = "gstd"

// otherVerb labels commands the parser does not know
const otherVerb = "other"

// Metrics is the registry plus every collector the daemon updates
type Metrics struct {
	registry *prometheus.Registry
	verbs    map[string]struct{}

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	connections     *prometheus.GaugeVec
	busMessages     *prometheus.CounterVec
	elementBuffers  *prometheus.CounterVec
	elementBytes    *prometheus.CounterVec

	mu        sync.Mutex
	pipelines prometheus.Collector
}

// New creates a registry with the daemon metrics and the Go runtime
// collectors registered
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verbs:    make(map[string]struct{}),

		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "commands",
				Name:      "total",
				Help:      "Commands executed, by verb and result code",
			},
			[]string{"verb", "code"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "commands",
				Name:      "duration_seconds",
				Help:      "Command execution time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"verb"},
		),
		connections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ipc",
				Name:      "connections",
				Help:      "Open client connections, by protocol",
			},
			[]string{"protocol"},
		),
		busMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "messages_total",
				Help:      "Bus messages delivered to clients, by type",
			},
			[]string{"type"},
		),
		elementBuffers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "element",
				Name:      "buffers_total",
				Help:      "Buffers that reached an element",
			},
			[]string{"pipeline", "element"},
		),
		elementBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "element",
				Name:      "bytes_total",
				Help:      "Bytes that reached an element",
			},
			[]string{"pipeline", "element"},
		),
	}
	for _, verb := range parser.Commands() {
		m.verbs[verb] = struct{}{}
	}

	m.registry.MustRegister(
		m.commands,
		m.commandDuration,
		m.connections,
		m.busMessages,
		m.elementBuffers,
		m.elementBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying prometheus registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// TrackPipelines exports count as the number of live pipelines. Calling it
// again replaces the previous source.
func (m *Metrics) TrackPipelines(count func() int) error {
	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipelines",
			Help:      "Pipelines currently alive",
		},
		func() float64 { return float64(count()) },
	)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pipelines != nil {
		m.registry.Unregister(m.pipelines)
	}
	if err := m.registry.Register(gauge); err != nil {
		return fmt.Errorf("failed to register pipelines gauge: %w", err)
	}
	m.pipelines = gauge
	return nil
}

// ObserveCommand records one executed command. It matches parser.Observer.
func (m *Metrics) ObserveCommand(verb string, code core.Code, elapsed time.Duration) {
	if _, ok := m.verbs[verb]; !ok {
		verb = otherVerb
	}
	m.commands.WithLabelValues(verb, code.String()).Inc()
	m.commandDuration.WithLabelValues(verb).Observe(elapsed.Seconds())
}

// ConnectionOpened counts a new client of protocol
func (m *Metrics) ConnectionOpened(protocol string) {
	m.connections.WithLabelValues(protocol).Inc()
}

// ConnectionClosed releases a client of protocol
func (m *Metrics) ConnectionClosed(protocol string) {
	m.connections.WithLabelValues(protocol).Dec()
}

// ObserveMessage counts a bus message handed to a client
func (m *Metrics) ObserveMessage(pipeline string, msg *engine.Message) {
	if msg == nil {
		return
	}
	m.busMessages.WithLabelValues(msg.Type.String()).Inc()
}

// ForgetPipeline drops the element series of a deleted pipeline
func (m *Metrics) ForgetPipeline(name string) {
	m.elementBuffers.DeletePartialMatch(prometheus.Labels{"pipeline": name})
	m.elementBytes.DeletePartialMatch(prometheus.Labels{"pipeline": name})
}

// CountBuffer records a buffer of size bytes reaching element
func (m *Metrics) CountBuffer(pipeline, element string, size int) {
	m.elementBuffers.WithLabelValues(pipeline, element).Inc()
	m.elementBytes.WithLabelValues(pipeline, element).Add(float64(size))
}

// Reset clears the element counters
func (m *Metrics) Reset() {
	m.elementBuffers.Reset()
	m.elementBytes.Reset()
}

// ElementStats is the snapshot of one element's counters
type ElementStats struct {
	Buffers uint64 `json:"buffers"`
	Bytes   uint64 `json:"bytes"`
}

// Snapshot renders the element counters as
// {"pipelines": {"<pipeline>": {"<element>": {"buffers": n, "bytes": n}}}}
func (m *Metrics) Snapshot() (string, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("failed to gather metrics: %w", err)
	}

	buffers := prometheus.BuildFQName(namespace, "element", "buffers_total")
	bytes := prometheus.BuildFQName(namespace, "element", "bytes_total")
	pipelines := map[string]map[string]*ElementStats{}

	for _, family := range families {
		name := family.GetName()
		if name != buffers && name != bytes {
			continue
		}
		for _, metric := range family.GetMetric() {
			var pipeline, element string
			for _, label := range metric.GetLabel() {
				switch label.GetName() {
				case "pipeline":
					pipeline = label.GetValue()
				case "element":
					element = label.GetValue()
				}
			}
			elements, ok := pipelines[pipeline]
			if !ok {
				elements = map[string]*ElementStats{}
				pipelines[pipeline] = elements
			}
			stats, ok := elements[element]
			if !ok {
				stats = &ElementStats{}
				elements[element] = stats
			}
			value := uint64(metric.GetCounter().GetValue())
			if name == buffers {
				stats.Buffers = value
			} else {
				stats.Bytes = value
			}
		}
	}

	raw, err := json.Marshal(map[string]any{"pipelines": pipelines})
	if err != nil {
		return "", fmt.Errorf("failed to encode statistics: %w", err)
	}
	return string(raw), nil
}
