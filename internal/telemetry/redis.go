package telemetry

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyMetricPrefix   = "metrics:"
	keySamplesSuffix  = ":samples"
	defaultSampleKeep = 100
)

// RedisMetrics aggregates metrics in Redis: one hash per series holding
// count, sum and last value, plus a capped list of recent samples.
type RedisMetrics struct {
	rdb  *redis.Client
	keep int64
}

// NewRedisMetrics returns a sink keeping up to keep samples per series.
func NewRedisMetrics(rdb *redis.Client, keep int) *RedisMetrics {
	if keep <= 0 {
		keep = defaultSampleKeep
	}
	return &RedisMetrics{rdb: rdb, keep: int64(keep)}
}

type sample struct {
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
	At     int64             `json:"at"`
}

// WriteMetric updates the series aggregate and appends the sample.
func (r *RedisMetrics) WriteMetric(ctx context.Context, m dom.Metric) error {
	b, err := json.Marshal(sample{Value: m.Value, Labels: m.Labels, At: m.At.Unix()})
	if err != nil {
		return err
	}
	key := keyMetricPrefix + seriesName(m.Name, m.Labels)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HIncrBy(ctx, key, "count", 1)
		p.HIncrByFloat(ctx, key, "sum", m.Value)
		p.HSet(ctx, key, "last", m.Value)
		p.LPush(ctx, key+keySamplesSuffix, b)
		p.LTrim(ctx, key+keySamplesSuffix, 0, r.keep-1)
		return nil
	})
	return err
}

// Summary is the aggregate stored for one series.
type Summary struct {
	Count   int64
	Sum     float64
	Last    float64
	Samples int64
}

// Summary reads the aggregate for name and labels. A series never written
// returns the zero Summary.
func (r *RedisMetrics) Summary(ctx context.Context, name string, labels map[string]string) (Summary, error) {
	key := keyMetricPrefix + seriesName(name, labels)
	vals, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	if v, ok := vals["count"]; ok {
		s.Count, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := vals["sum"]; ok {
		s.Sum, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := vals["last"]; ok {
		s.Last, _ = strconv.ParseFloat(v, 64)
	}
	s.Samples, err = r.rdb.LLen(ctx, key+keySamplesSuffix).Result()
	if err != nil && err != redis.Nil {
		return Summary{}, err
	}
	return s, nil
}

// seriesName renders name{k=v,...} with labels in key order.
func seriesName(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range slices.Sorted(maps.Keys(labels)) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}
