package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kwscout/kw-scout/internal/pkg/errors"
)

// RedisStorage persists metric history in Redis sorted sets, keyed by
// metric name with the capture timestamp as score.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.ConfigError("parsing redis URL", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.ConfigError("connecting to redis", err)
	}

	return &RedisStorage{
		client: client,
		prefix: "kwscout:metrics:",
		ttl:    7 * 24 * time.Hour,
	}, nil
}

// SaveDataPoint saves one data point and prunes entries older than the TTL.
func (rs *RedisStorage) SaveDataPoint(ctx context.Context, metric string, dp DataPoint) error {
	key := rs.prefix + metric

	pipe := rs.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(dp.Timestamp.Unix()),
		Member: fmt.Sprintf("%d:%.2f", dp.Timestamp.Unix(), dp.Value),
	})
	minScore := time.Now().Add(-rs.ttl).Unix()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", minScore))

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.StorageError("saving metric data point", err)
	}
	return nil
}

// SaveBatch saves multiple data points in one round-trip.
func (rs *RedisStorage) SaveBatch(ctx context.Context, metric string, dataPoints []DataPoint) error {
	if len(dataPoints) == 0 {
		return nil
	}

	key := rs.prefix + metric
	members := make([]redis.Z, len(dataPoints))
	for i, dp := range dataPoints {
		members[i] = redis.Z{
			Score:  float64(dp.Timestamp.Unix()),
			Member: fmt.Sprintf("%d:%.2f", dp.Timestamp.Unix(), dp.Value),
		}
	}

	pipe := rs.client.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	minScore := time.Now().Add(-rs.ttl).Unix()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", minScore))

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.StorageError("saving metric batch", err)
	}
	return nil
}

// LoadHistory loads data points for a metric since the given time.
func (rs *RedisStorage) LoadHistory(ctx context.Context, metric string, since time.Time) ([]DataPoint, error) {
	key := rs.prefix + metric

	results, err := rs.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", since.Unix()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, errors.StorageError("loading metric history", err)
	}

	dataPoints := make([]DataPoint, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		// Member is "<unix>:<value>"; the timestamp prefix keeps equal
		// values at different times distinct within the sorted set.
		var unix int64
		var value float64
		if _, err := fmt.Sscanf(member, "%d:%f", &unix, &value); err != nil {
			// Legacy bare-value members.
			parsed, perr := strconv.ParseFloat(member, 64)
			if perr != nil {
				continue
			}
			unix, value = int64(z.Score), parsed
		}

		dataPoints = append(dataPoints, DataPoint{
			Timestamp: time.Unix(unix, 0),
			Value:     value,
		})
	}

	return dataPoints, nil
}

// MetricNames returns all metric names stored in Redis.
func (rs *RedisStorage) MetricNames(ctx context.Context) ([]string, error) {
	keys, err := rs.client.Keys(ctx, rs.prefix+"*").Result()
	if err != nil {
		return nil, errors.StorageError("listing metric names", err)
	}

	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = key[len(rs.prefix):]
	}
	return names, nil
}

// DeleteMetric deletes all data for a specific metric.
func (rs *RedisStorage) DeleteMetric(ctx context.Context, metric string) error {
	if err := rs.client.Del(ctx, rs.prefix+metric).Err(); err != nil {
		return errors.StorageError("deleting metric", err)
	}
	return nil
}

// SetTTL sets the retention window for stored data points.
func (rs *RedisStorage) SetTTL(ttl time.Duration) {
	rs.ttl = ttl
}

// Close closes the Redis connection.
func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}
