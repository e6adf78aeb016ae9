package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"
)

const (
	defaultTimeout   = 2 * time.Second
	defaultQueueSize = 256
)

// Options configures Hooks.
type Options struct {
	Events    []EventSink
	Metrics   []MetricSink
	Timeout   time.Duration
	QueueSize int
	Logger    *slog.Logger
	Now       func() time.Time
}

type item struct {
	ctx    context.Context
	event  *dom.SecurityEvent
	metric *dom.Metric
}

// Hooks fans events and metrics out to sinks from a single background
// goroutine. When the queue is full new items are dropped.
type Hooks struct {
	events  []EventSink
	metrics []MetricSink
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	closed  bool
	queue   chan item
	done    chan struct{}
	dropped atomic.Int64
}

// NewHooks starts the dispatcher. Call Close to stop it.
func NewHooks(opts Options) *Hooks {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &Hooks{
		events:  opts.Events,
		metrics: opts.Metrics,
		timeout: opts.Timeout,
		log:     opts.Logger.With("component", "telemetry"),
		now:     opts.Now,
		queue:   make(chan item, opts.QueueSize),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hooks) EventsEnabled() bool  { return len(h.events) > 0 }
func (h *Hooks) MetricsEnabled() bool { return len(h.metrics) > 0 }

// Dropped reports how many items were discarded because the queue was full
// or the dispatcher was closed.
func (h *Hooks) Dropped() int64 { return h.dropped.Load() }

// SecurityEvent enqueues an event stamped with the request details in ctx.
func (h *Hooks) SecurityEvent(ctx context.Context, eventType string, fields map[string]any) {
	if len(h.events) == 0 {
		return
	}
	e := dom.SecurityEvent{
		Type:    eventType,
		Fields:  fields,
		Request: RequestInfoFrom(ctx),
		At:      h.now().UTC(),
	}
	h.enqueue(item{ctx: context.WithoutCancel(ctx), event: &e})
}

// RecordMetric enqueues a metric sample.
func (h *Hooks) RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	if len(h.metrics) == 0 {
		return
	}
	m := dom.Metric{Name: name, Value: value, Labels: labels, At: h.now().UTC()}
	h.enqueue(item{ctx: context.WithoutCancel(ctx), metric: &m})
}

func (h *Hooks) enqueue(it item) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.queue <- it:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) run() {
	defer close(h.done)
	for it := range h.queue {
		h.deliver(it)
	}
}

func (h *Hooks) deliver(it item) {
	if it.event != nil {
		for _, s := range h.events {
			ctx, cancel := context.WithTimeout(it.ctx, h.timeout)
			if err := s.WriteEvent(ctx, *it.event); err != nil {
				h.log.Warn("failed to write security event", "event", it.event.Type, "error", err)
			}
			cancel()
		}
	}
	if it.metric != nil {
		for _, s := range h.metrics {
			ctx, cancel := context.WithTimeout(it.ctx, h.timeout)
			if err := s.WriteMetric(ctx, *it.metric); err != nil {
				h.log.Warn("failed to record metric", "metric", it.metric.Name, "error", err)
			}
			cancel()
		}
	}
}

// Close stops accepting items and waits for queued ones to be delivered
// until ctx expires.
func (h *Hooks) Close(ctx context.Context) error {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.queue)
	}
	h.mu.Unlock()

	select {
	case <-h.done:
	case <-ctx.Done():
		return errors.Join(errors.New("telemetry: queue not drained"), ctx.Err())
	}
	if n := h.dropped.Load(); n > 0 {
		h.log.Info("telemetry items dropped", "count", n)
	}
	return nil
}
