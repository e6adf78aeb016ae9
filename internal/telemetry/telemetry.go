// Package telemetry carries best-effort security events and metrics out of
// the request path. Nothing here may fail or slow down a request: calls
// enqueue and return, delivery happens on a background goroutine with a
// per-sink timeout, and sink errors are only logged.
package telemetry

import (
	"context"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"
)

// Event types raised by the service and middleware.
const (
	EventSuspiciousInput     = "SUSPICIOUS_INPUT_DETECTED"
	EventSuspiciousUserAgent = "SUSPICIOUS_USER_AGENT"
	EventStatusCheck         = "STATUS_CHECK"
	EventGetTodos            = "GET_TODOS"
	EventGetTodosError       = "GET_TODOS_ERROR"
	EventCreateTodo          = "CREATE_TODO"
	EventCreateTodoError     = "CREATE_TODO_ERROR"
)

// Metric names.
const (
	MetricIncomingRequests       = "incoming_requests"
	MetricGetTodosResponseTime   = "get_todos_response_time"
	MetricCreateTodoResponseTime = "create_todo_response_time"
	MetricTodosCreated           = "todos_created"
)

// Telemetry is the capability handed to the service and middleware.
type Telemetry interface {
	SecurityEvent(ctx context.Context, eventType string, fields map[string]any)
	RecordMetric(ctx context.Context, name string, value float64, labels map[string]string)
	EventsEnabled() bool
	MetricsEnabled() bool
	Close(ctx context.Context) error
}

// EventSink receives security events.
type EventSink interface {
	WriteEvent(ctx context.Context, e dom.SecurityEvent) error
}

// MetricSink receives metric samples.
type MetricSink interface {
	WriteMetric(ctx context.Context, m dom.Metric) error
}

// Noop discards everything.
type Noop struct{}

func (Noop) SecurityEvent(context.Context, string, map[string]any) {}
func (Noop) RecordMetric(context.Context, string, float64, map[string]string) {}
func (Noop) EventsEnabled() bool { return false }
func (Noop) MetricsEnabled() bool { return false }
func (Noop) Close(context.Context) error { return nil }

type requestInfoKey struct{}

// WithRequestInfo attaches request details that events raised under ctx
// will carry.
func WithRequestInfo(ctx context.Context, info dom.RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns the request details attached to ctx, if any.
func RequestInfoFrom(ctx context.Context) dom.RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(dom.RequestInfo)
	return info
}
