// Package metrics tracks pipeline throughput counters and time-series
// history for run summaries and dashboards.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
)

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	value int64
}

// NewCounter creates a new counter.
func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	atomic.AddInt64(&c.value, 1)
}

// Add adds delta to the counter. Negative deltas are ignored.
func (c *Counter) Add(delta int64) {
	if delta < 0 {
		return
	}
	atomic.AddInt64(&c.value, delta)
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

// Reset resets the counter to 0.
func (c *Counter) Reset() {
	atomic.StoreInt64(&c.value, 0)
}

// Name returns the metric name.
func (c *Counter) Name() string {
	return c.name
}

// Gauge is a value that can go up and down, stored as float64 bits.
type Gauge struct {
	name  string
	value uint64
}

// NewGauge creates a new gauge.
func NewGauge(name string) *Gauge {
	return &Gauge{name: name}
}

// Set sets the gauge to the given value.
func (g *Gauge) Set(value float64) {
	atomic.StoreUint64(&g.value, math.Float64bits(value))
}

// Value returns the current gauge value.
func (g *Gauge) Value() float64 {
	return math.Float64frombits(atomic.LoadUint64(&g.value))
}

// Name returns the metric name.
func (g *Gauge) Name() string {
	return g.name
}

// Pipeline holds the counters every run reports on.
type Pipeline struct {
	Queries      *Counter // autocomplete queries issued
	Skips        *Counter // queries skipped after fetch exhaustion
	Observations *Counter // keyword observations persisted
	NewKeywords  *Counter // first-ever sightings
	Scores       *Counter // composite scores computed
	Snapshots    *Counter // book captures taken
	AdsRows      *Counter // advertising rows imported

	mu      sync.RWMutex
	history map[string]*MetricHistory
}

// NewPipeline creates a pipeline metric set.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Queries:      NewCounter("queries_total"),
		Skips:        NewCounter("skips_total"),
		Observations: NewCounter("observations_total"),
		NewKeywords:  NewCounter("new_keywords_total"),
		Scores:       NewCounter("scores_total"),
		Snapshots:    NewCounter("snapshots_total"),
		AdsRows:      NewCounter("ads_rows_total"),
		history:      make(map[string]*MetricHistory),
	}
}

// NewPipelineWithRedis creates a pipeline metric set whose counters also
// feed Redis-persisted time series.
func NewPipelineWithRedis(storage *RedisStorage) *Pipeline {
	p := NewPipeline()
	for _, c := range p.counters() {
		p.history[c.Name()] = NewMetricHistoryWithRedis(defaultBucketSize, defaultMaxBuckets, storage, c.Name())
	}
	return p
}

func (p *Pipeline) counters() []*Counter {
	return []*Counter{
		p.Queries, p.Skips, p.Observations, p.NewKeywords,
		p.Scores, p.Snapshots, p.AdsRows,
	}
}

// Record increments a counter and its time series, when one is attached.
func (p *Pipeline) Record(c *Counter) {
	c.Inc()

	p.mu.RLock()
	h := p.history[c.Name()]
	p.mu.RUnlock()
	if h != nil {
		h.RecordSum(1)
	}
}

// History returns the time series for a counter name, or nil when history is
// not enabled.
func (p *Pipeline) History(name string) *MetricHistory {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.history[name]
}

// Summary returns a snapshot of all counters by name.
func (p *Pipeline) Summary() map[string]int64 {
	summary := make(map[string]int64)
	for _, c := range p.counters() {
		summary[c.Name()] = c.Value()
	}
	return summary
}
