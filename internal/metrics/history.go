package metrics

import (
	"context"
	"sync"
	"time"
)

// Default bucketing: 5-minute buckets, 12 buckets = 1 hour retention.
const (
	defaultBucketSize = 5 * time.Minute
	defaultMaxBuckets = 12
)

// DataPoint represents a single time-series data point.
type DataPoint struct {
	Timestamp time.Time
	Value     float64
}

// MetricHistory stores time-series data with automatic bucketing and
// retention, optionally persisted to Redis.
type MetricHistory struct {
	mu          sync.Mutex
	buckets     []DataPoint
	bucketSize  time.Duration
	maxBuckets  int
	accumulator float64
	lastBucket  time.Time
	storage     *RedisStorage
	metricName  string
}

// NewMetricHistory creates a new in-memory metric history.
func NewMetricHistory(bucketSize time.Duration, maxBuckets int) *MetricHistory {
	return &MetricHistory{
		buckets:    make([]DataPoint, 0, maxBuckets),
		bucketSize: bucketSize,
		maxBuckets: maxBuckets,
		lastBucket: time.Now().Truncate(bucketSize),
	}
}

// NewMetricHistoryWithRedis creates a metric history persisted to Redis.
// Existing data points within the retention window are loaded at startup.
func NewMetricHistoryWithRedis(bucketSize time.Duration, maxBuckets int, storage *RedisStorage, metricName string) *MetricHistory {
	h := NewMetricHistory(bucketSize, maxBuckets)
	h.storage = storage
	h.metricName = metricName

	if storage != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		since := time.Now().Add(-time.Duration(maxBuckets) * bucketSize)
		if dataPoints, err := storage.LoadHistory(ctx, metricName, since); err == nil && len(dataPoints) > 0 {
			h.buckets = dataPoints
		}
	}

	return h
}

// RecordSum adds value to the current bucket's running sum.
func (h *MetricHistory) RecordSum(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	currentBucket := time.Now().Truncate(h.bucketSize)
	if currentBucket.After(h.lastBucket) {
		h.finalizeBucket()
		h.lastBucket = currentBucket
	}

	h.accumulator += value
}

// finalizeBucket flushes the accumulator into the bucket list. Must be
// called with the lock held.
func (h *MetricHistory) finalizeBucket() {
	dp := DataPoint{Timestamp: h.lastBucket, Value: h.accumulator}
	h.buckets = append(h.buckets, dp)

	// Persist asynchronously so recording never blocks on Redis.
	if h.storage != nil && h.metricName != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = h.storage.SaveDataPoint(ctx, h.metricName, dp)
		}()
	}

	if len(h.buckets) > h.maxBuckets {
		h.buckets = h.buckets[len(h.buckets)-h.maxBuckets:]
	}

	h.accumulator = 0
}

// History returns the finalized buckets plus any unflushed current bucket.
func (h *MetricHistory) History() []DataPoint {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]DataPoint, len(h.buckets))
	copy(result, h.buckets)

	if h.accumulator != 0 {
		result = append(result, DataPoint{Timestamp: h.lastBucket, Value: h.accumulator})
	}
	return result
}

// HistorySince returns data points at or after the given time.
func (h *MetricHistory) HistorySince(since time.Time) []DataPoint {
	all := h.History()
	result := make([]DataPoint, 0, len(all))
	for _, dp := range all {
		if !dp.Timestamp.Before(since) {
			result = append(result, dp)
		}
	}
	return result
}
