package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestStorage(t *testing.T) *RedisStorage {
	t.Helper()

	mr := miniredis.RunT(t)
	rs, err := NewRedisStorage("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStorage: %v", err)
	}
	t.Cleanup(func() { rs.Close() })
	return rs
}

func TestRedisStorage_SaveAndLoad(t *testing.T) {
	rs := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	points := []DataPoint{
		{Timestamp: now.Add(-10 * time.Minute), Value: 27},
		{Timestamp: now.Add(-5 * time.Minute), Value: 54},
		{Timestamp: now, Value: 27},
	}
	for _, dp := range points {
		if err := rs.SaveDataPoint(ctx, "queries_total", dp); err != nil {
			t.Fatalf("SaveDataPoint: %v", err)
		}
	}

	loaded, err := rs.LoadHistory(ctx, "queries_total", now.Add(-7*time.Minute))
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded = %d points, want 2 within window", len(loaded))
	}
	if loaded[0].Value != 54 || loaded[1].Value != 27 {
		t.Errorf("loaded = %+v, want values in timestamp order", loaded)
	}
	// Equal values at different timestamps must both survive.
	if loaded[0].Timestamp.Equal(loaded[1].Timestamp) {
		t.Error("timestamps collapsed, want distinct members per capture time")
	}
}

func TestRedisStorage_SaveBatch(t *testing.T) {
	rs := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	batch := []DataPoint{
		{Timestamp: now.Add(-2 * time.Minute), Value: 1},
		{Timestamp: now.Add(-1 * time.Minute), Value: 2},
	}
	if err := rs.SaveBatch(ctx, "scores_total", batch); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	loaded, err := rs.LoadHistory(ctx, "scores_total", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("loaded = %d points, want 2", len(loaded))
	}
}

func TestRedisStorage_MetricNamesAndDelete(t *testing.T) {
	rs := newTestStorage(t)
	ctx := context.Background()

	for _, metric := range []string{"queries_total", "skips_total"} {
		if err := rs.SaveDataPoint(ctx, metric, DataPoint{Timestamp: time.Now(), Value: 1}); err != nil {
			t.Fatalf("SaveDataPoint %s: %v", metric, err)
		}
	}

	names, err := rs.MetricNames(ctx)
	if err != nil {
		t.Fatalf("MetricNames: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("names = %v, want 2 metrics", names)
	}

	if err := rs.DeleteMetric(ctx, "queries_total"); err != nil {
		t.Fatalf("DeleteMetric: %v", err)
	}
	names, err = rs.MetricNames(ctx)
	if err != nil {
		t.Fatalf("MetricNames after delete: %v", err)
	}
	if len(names) != 1 || names[0] != "skips_total" {
		t.Errorf("names = %v, want only skips_total", names)
	}
}
