package metrics

import (
	"fmt"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	Counter MetricType = "counter"
	Gauge   MetricType = "gauge"
)

// Metric represents a single metric with its metadata
type Metric struct {
	Name        string            `json:"name"`
	Type        MetricType        `json:"type"`
	Value       float64           `json:"value"`
	Labels      map[string]string `json:"labels,omitempty"`
	Description string            `json:"description,omitempty"`
	LastUpdate  time.Time         `json:"last_update"`
}

// Registry manages all metrics in memory
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]*Metric
	gauges    map[string]*Metric
	startTime time.Time
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]*Metric),
		gauges:    make(map[string]*Metric),
		startTime: time.Now(),
	}
}

// metricKey builds a unique key from name and labels
func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	key := name
	for k, v := range labels {
		key += fmt.Sprintf("|%s=%s", k, v)
	}
	return key
}

// IncrementCounter increments a counter metric by 1
func (r *Registry) IncrementCounter(name string, labels map[string]string, description string) {
	r.AddToCounter(name, 1, labels, description)
}

// AddToCounter adds a value to a counter metric
func (r *Registry) AddToCounter(name string, value float64, labels map[string]string, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := metricKey(name, labels)
	metric, exists := r.counters[key]
	if !exists {
		metric = &Metric{
			Name:        name,
			Type:        Counter,
			Labels:      labels,
			Description: description,
		}
		r.counters[key] = metric
	}

	metric.Value += value
	metric.LastUpdate = time.Now()
}

// SetGauge sets a gauge metric to a value
func (r *Registry) SetGauge(name string, value float64, labels map[string]string, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := metricKey(name, labels)
	metric, exists := r.gauges[key]
	if !exists {
		metric = &Metric{
			Name:        name,
			Type:        Gauge,
			Labels:      labels,
			Description: description,
		}
		r.gauges[key] = metric
	}

	metric.Value = value
	metric.LastUpdate = time.Now()
}

// GetCounterValue returns the current value of a counter (0 if absent)
func (r *Registry) GetCounterValue(name string, labels map[string]string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if metric, ok := r.counters[metricKey(name, labels)]; ok {
		return metric.Value
	}
	return 0
}

// Snapshot holds every metric plus registry uptime
type Snapshot struct {
	UptimeSec float64            `json:"uptime_seconds"`
	Counters  map[string]*Metric `json:"counters"`
	Gauges    map[string]*Metric `json:"gauges"`
}

// GetAll returns a copy of every metric in the registry
func (r *Registry) GetAll() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters := make(map[string]*Metric, len(r.counters))
	for k, v := range r.counters {
		copied := *v
		counters[k] = &copied
	}
	gauges := make(map[string]*Metric, len(r.gauges))
	for k, v := range r.gauges {
		copied := *v
		gauges[k] = &copied
	}

	return Snapshot{
		UptimeSec: time.Since(r.startTime).Seconds(),
		Counters:  counters,
		Gauges:    gauges,
	}
}

// Global registry used by package-level helpers
var defaultRegistry = NewRegistry()

// IncrementCounter increments a counter on the default registry
func IncrementCounter(name string, labels map[string]string, description string) {
	defaultRegistry.IncrementCounter(name, labels, description)
}

// AddToCounter adds to a counter on the default registry
func AddToCounter(name string, value float64, labels map[string]string, description string) {
	defaultRegistry.AddToCounter(name, value, labels, description)
}

// SetGauge sets a gauge on the default registry
func SetGauge(name string, value float64, labels map[string]string, description string) {
	defaultRegistry.SetGauge(name, value, labels, description)
}

// GetAllMetrics returns a snapshot of the default registry
func GetAllMetrics() Snapshot {
	return defaultRegistry.GetAll()
}
