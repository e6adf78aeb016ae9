package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/encryption"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/repo"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/telemetry"

	"golang.org/x/sync/singleflight"
)

// Options tunes TodoService.
type Options struct {
	// DenyList enables rejection of script/injection markers.
	DenyList bool
	Logger   *slog.Logger
	Now      func() time.Time
}

// Features reports which optional capabilities are active.
type Features struct {
	Encryption      bool
	SecurityLogging bool
	Monitoring      bool
	DenyList        bool
}

// CreateResult is what a successful Create hands back to the handler.
type CreateResult struct {
	Todo      dom.Todo
	Count     int
	Encrypted bool
}

type TodoService struct {
	repo     repo.TodoRepo
	crypto   encryption.Gateway
	tel      telemetry.Telemetry
	denyList bool
	log      *slog.Logger
	now      func() time.Time
	sf       singleflight.Group
}

// NewTodoService creates a TodoService. Nil gateway or telemetry disable
// those capabilities.
func NewTodoService(r repo.TodoRepo, gw encryption.Gateway, tel telemetry.Telemetry, opts Options) *TodoService {
	if gw == nil {
		gw = encryption.Noop{}
	}
	if tel == nil {
		tel = telemetry.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TodoService{
		repo:     r,
		crypto:   gw,
		tel:      tel,
		denyList: opts.DenyList,
		log:      opts.Logger,
		now:      opts.Now,
	}
}

func (s *TodoService) Features() Features {
	return Features{
		Encryption:      s.crypto.Enabled(),
		SecurityLogging: s.tel.EventsEnabled(),
		Monitoring:      s.tel.MetricsEnabled(),
		DenyList:        s.denyList,
	}
}

// List returns the todos for clientID with text decrypted. Every call reads
// the store itself, so a todo whose Create returned is always visible.
func (s *TodoService) List(ctx context.Context, clientID string) ([]dom.Todo, error) {
	start := s.now()
	list, err := s.repo.List(ctx, clientID)
	if err != nil {
		s.log.ErrorContext(ctx, "list todos failed", "client_id", clientID, "error", err)
		s.tel.SecurityEvent(ctx, telemetry.EventGetTodosError, map[string]any{
			"error":     err.Error(),
			"client_id": clientIDField(clientID),
		})
		return nil, fmt.Errorf("list todos: %w", err)
	}
	for i := range list {
		list[i].Text = s.decrypt(ctx, list[i].Text)
	}

	elapsed := millisSince(s.now(), start)
	s.tel.RecordMetric(ctx, telemetry.MetricGetTodosResponseTime, elapsed, nil)
	s.tel.SecurityEvent(ctx, telemetry.EventGetTodos, map[string]any{
		"client_id":        clientIDField(clientID),
		"response_time_ms": elapsed,
	})
	return list, nil
}

// Create validates raw, encrypts it when enabled and appends it to the
// client's collection. A nil raw means the text field was absent.
func (s *TodoService) Create(ctx context.Context, clientID string, raw *string) (CreateResult, error) {
	start := s.now()

	text, err := ValidateText(raw, s.denyList)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) && ve.Pattern != "" {
			s.tel.SecurityEvent(ctx, telemetry.EventSuspiciousInput, map[string]any{
				"input_text":         truncateRunes(trimText(*raw), 100),
				"suspicious_pattern": ve.Pattern,
			})
		}
		return CreateResult{}, err
	}

	value, encrypted := s.crypto.Encrypt(ctx, text)
	t, count, err := s.repo.Create(ctx, clientID, dom.Todo{Text: value, Encrypted: encrypted})
	if err != nil {
		s.log.ErrorContext(ctx, "create todo failed", "client_id", clientID, "error", err)
		s.tel.SecurityEvent(ctx, telemetry.EventCreateTodoError, map[string]any{
			"error":     err.Error(),
			"client_id": clientIDField(clientID),
		})
		return CreateResult{}, fmt.Errorf("create todo: %w", err)
	}

	elapsed := millisSince(s.now(), start)
	s.tel.RecordMetric(ctx, telemetry.MetricCreateTodoResponseTime, elapsed, nil)
	s.tel.RecordMetric(ctx, telemetry.MetricTodosCreated, 1, map[string]string{
		"client_specific": strconv.FormatBool(clientID != ""),
	})
	s.tel.SecurityEvent(ctx, telemetry.EventCreateTodo, map[string]any{
		"client_id":        clientIDField(clientID),
		"text_length":      utf8.RuneCountInString(text),
		"encrypted":        encrypted,
		"response_time_ms": elapsed,
	})
	return CreateResult{Todo: t, Count: count, Encrypted: encrypted}, nil
}

// Status returns the store counters.
func (s *TodoService) Status(ctx context.Context) (dom.StoreStats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return dom.StoreStats{}, fmt.Errorf("store stats: %w", err)
	}
	return st, nil
}

// AuditStatus records that the status endpoint was read.
func (s *TodoService) AuditStatus(ctx context.Context, payload map[string]any) {
	s.tel.SecurityEvent(ctx, telemetry.EventStatusCheck, payload)
}

// decrypt shares the work for one stored value between concurrent readers.
// The key is the stored value itself, so a result is never reused for a
// different todo.
func (s *TodoService) decrypt(ctx context.Context, value string) string {
	if !s.crypto.Enabled() {
		return value
	}
	v, _, _ := s.sf.Do(value, func() (interface{}, error) {
		return s.crypto.Decrypt(context.WithoutCancel(ctx), value), nil
	})
	return v.(string)
}

// clientIDField renders an absent client as JSON null in event payloads.
func clientIDField(clientID string) any {
	if clientID == "" {
		return nil
	}
	return clientID
}

func millisSince(now, start time.Time) float64 {
	return float64(now.Sub(start).Microseconds()) / 1000
}
