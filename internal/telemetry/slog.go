package telemetry

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"
)

// SlogEvents writes security events as structured log records.
type SlogEvents struct {
	log *slog.Logger
}

func NewSlogEvents(log *slog.Logger) *SlogEvents {
	return &SlogEvents{log: log}
}

func (s *SlogEvents) WriteEvent(ctx context.Context, e dom.SecurityEvent) error {
	s.log.LogAttrs(ctx, slog.LevelInfo, "SECURITY_EVENT: "+e.Type,
		slog.Group("request",
			slog.String("method", e.Request.Method),
			slog.String("url", e.Request.URL),
			slog.String("user_agent", e.Request.UserAgent),
			slog.String("remote_ip", e.Request.RemoteIP),
			slog.String("request_id", e.Request.RequestID),
		),
		slog.Any("payload", e.Fields),
		slog.Time("at", e.At),
	)
	return nil
}

// SlogMetrics logs metric samples at debug level. Used when no metric
// backend is configured.
type SlogMetrics struct {
	log *slog.Logger
}

func NewSlogMetrics(log *slog.Logger) *SlogMetrics {
	return &SlogMetrics{log: log}
}

func (s *SlogMetrics) WriteMetric(ctx context.Context, m dom.Metric) error {
	attrs := []slog.Attr{
		slog.String("metric", m.Name),
		slog.Float64("value", m.Value),
	}
	for _, k := range slices.Sorted(maps.Keys(m.Labels)) {
		attrs = append(attrs, slog.String("label."+k, m.Labels[k]))
	}
	s.log.LogAttrs(ctx, slog.LevelDebug, "metric", attrs...)
	return nil
}
