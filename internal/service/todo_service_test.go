package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/encryption"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/repo"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/telemetry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// reverseGateway "encrypts" by prefixing and reversing; values without the
// prefix decrypt to themselves.
type reverseGateway struct{}

func (reverseGateway) Encrypt(_ context.Context, text string) (string, bool) {
	return "enc:" + reverse(text), true
}

func (reverseGateway) Decrypt(_ context.Context, v string) string {
	if !strings.HasPrefix(v, "enc:") {
		return v
	}
	return reverse(strings.TrimPrefix(v, "enc:"))
}

func (reverseGateway) Enabled() bool { return true }

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

type recordingTelemetry struct {
	mu      sync.Mutex
	events  []string
	fields  []map[string]any
	metrics []string
}

func (r *recordingTelemetry) SecurityEvent(_ context.Context, eventType string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	r.fields = append(r.fields, fields)
}

func (r *recordingTelemetry) RecordMetric(_ context.Context, name string, _ float64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, name)
}

func (r *recordingTelemetry) EventsEnabled() bool { return true }
func (r *recordingTelemetry) MetricsEnabled() bool { return true }
func (r *recordingTelemetry) Close(context.Context) error { return nil }

func (r *recordingTelemetry) last(eventType string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i] == eventType {
			return r.fields[i]
		}
	}
	return nil
}

type failingRepo struct{}

func (failingRepo) List(context.Context, string) ([]dom.Todo, error) {
	return nil, errors.New("boom")
}

func (failingRepo) Create(context.Context, string, dom.Todo) (dom.Todo, int, error) {
	return dom.Todo{}, 0, errors.New("boom")
}

func (failingRepo) Stats(context.Context) (dom.StoreStats, error) {
	return dom.StoreStats{}, errors.New("boom")
}

func newService(gw encryption.Gateway, tel telemetry.Telemetry, denyList bool) (*TodoService, *repo.MemTodoRepo) {
	store := repo.NewMemTodoRepo(nil)
	return NewTodoService(store, gw, tel, Options{DenyList: denyList, Logger: quietLogger()}), store
}

func TestCreateThenListPlain(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(nil, nil, false)

	res, err := svc.Create(ctx, "", ptr("  Buy milk "))
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 || res.Todo.ID != 1 || res.Encrypted {
		t.Errorf("result = %+v", res)
	}

	list, err := svc.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Text != "Buy milk" {
		t.Errorf("list = %+v", list)
	}
}

func TestCreateEncryptsAtRestAndListDecrypts(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(reverseGateway{}, nil, false)

	res, err := svc.Create(ctx, "alice", ptr("Buy milk"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Encrypted {
		t.Error("result not marked encrypted")
	}

	raw, _ := store.List(ctx, "alice")
	if raw[0].Text != "enc:klim yuB" || !raw[0].Encrypted {
		t.Errorf("stored = %+v, want ciphertext", raw[0])
	}

	list, _ := svc.List(ctx, "alice")
	if list[0].Text != "Buy milk" {
		t.Errorf("listed text = %q", list[0].Text)
	}
}

func TestListPassesThroughUnencryptedValues(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(reverseGateway{}, nil, false)

	// Written before encryption was switched on.
	_, _, _ = store.Create(ctx, "", dom.Todo{Text: "legacy plaintext"})
	_, _ = svc.Create(ctx, "", ptr("new"))

	list, err := svc.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if list[0].Text != "legacy plaintext" || list[1].Text != "new" {
		t.Errorf("list = %+v", list)
	}
}

func TestListReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(nil, nil, false)
	_, _ = svc.Create(ctx, "", ptr("a"))

	first, _ := svc.List(ctx, "")
	first[0].Text = "changed"
	second, _ := svc.List(ctx, "")
	if second[0].Text != "a" {
		t.Errorf("second list saw mutation: %+v", second)
	}
}

func TestCreateValidationErrors(t *testing.T) {
	ctx := context.Background()
	tel := &recordingTelemetry{}
	svc, store := newService(nil, tel, true)

	for _, raw := range []*string{nil, ptr("   "), ptr(strings.Repeat("x", 256)), ptr("<script>alert(1)</script>")} {
		if _, err := svc.Create(ctx, "", raw); err == nil {
			t.Errorf("Create(%v) succeeded", raw)
		}
	}
	list, _ := store.List(ctx, "")
	if len(list) != 0 {
		t.Errorf("invalid todos stored: %+v", list)
	}

	f := tel.last(telemetry.EventSuspiciousInput)
	if f == nil {
		t.Fatal("no suspicious input event")
	}
	if f["suspicious_pattern"] != "<script" {
		t.Errorf("pattern = %v", f["suspicious_pattern"])
	}
}

func TestSuspiciousInputTruncated(t *testing.T) {
	tel := &recordingTelemetry{}
	svc, _ := newService(nil, tel, true)

	_, _ = svc.Create(context.Background(), "", ptr("eval("+strings.Repeat("y", 200)))
	f := tel.last(telemetry.EventSuspiciousInput)
	if got := f["input_text"].(string); len([]rune(got)) != 100 {
		t.Errorf("input_text has %d runes, want 100", len([]rune(got)))
	}
}

func TestCreateEmitsTelemetry(t *testing.T) {
	ctx := context.Background()
	tel := &recordingTelemetry{}
	svc, _ := newService(nil, tel, false)

	_, _ = svc.Create(ctx, "alice", ptr("héllo"))
	_, _ = svc.List(ctx, "")

	f := tel.last(telemetry.EventCreateTodo)
	if f == nil {
		t.Fatal("no CREATE_TODO event")
	}
	if f["client_id"] != "alice" || f["text_length"] != 5 || f["encrypted"] != false {
		t.Errorf("CREATE_TODO fields = %v", f)
	}
	g := tel.last(telemetry.EventGetTodos)
	if g == nil || g["client_id"] != nil {
		t.Errorf("GET_TODOS fields = %v, want null client_id", g)
	}

	want := []string{
		telemetry.MetricCreateTodoResponseTime,
		telemetry.MetricTodosCreated,
		telemetry.MetricGetTodosResponseTime,
	}
	if strings.Join(tel.metrics, ",") != strings.Join(want, ",") {
		t.Errorf("metrics = %v, want %v", tel.metrics, want)
	}
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	tel := &recordingTelemetry{}
	svc := NewTodoService(failingRepo{}, nil, tel, Options{Logger: quietLogger()})

	if _, err := svc.List(ctx, "bob"); err == nil {
		t.Error("List: expected error")
	}
	if _, err := svc.Create(ctx, "bob", ptr("x")); err == nil {
		t.Error("Create: expected error")
	} else {
		var ve *ValidationError
		if errors.As(err, &ve) {
			t.Error("store failure reported as validation error")
		}
	}
	if _, err := svc.Status(ctx); err == nil {
		t.Error("Status: expected error")
	}
	if tel.last(telemetry.EventGetTodosError)["client_id"] != "bob" {
		t.Error("missing GET_TODOS_ERROR event")
	}
	if tel.last(telemetry.EventCreateTodoError) == nil {
		t.Error("missing CREATE_TODO_ERROR event")
	}
}

func TestFeatures(t *testing.T) {
	svc, _ := newService(reverseGateway{}, &recordingTelemetry{}, true)
	f := svc.Features()
	if !f.Encryption || !f.SecurityLogging || !f.Monitoring || !f.DenyList {
		t.Errorf("features = %+v", f)
	}

	svc, _ = newService(nil, nil, false)
	if f := svc.Features(); f != (Features{}) {
		t.Errorf("features = %+v, want none", f)
	}
}

func TestConcurrentCreateAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(reverseGateway{}, nil, false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := svc.Create(ctx, "shared", ptr("task")); err != nil {
					t.Error(err)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := svc.List(ctx, "shared"); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()

	list, _ := svc.List(ctx, "shared")
	if len(list) != 200 {
		t.Fatalf("got %d todos, want 200", len(list))
	}
	for i, todo := range list {
		if todo.ID != int64(i+1) || todo.Text != "task" {
			t.Fatalf("todo[%d] = %+v", i, todo)
		}
	}
}

// stallingRepo takes its snapshot and then waits for release on the first
// List call only.
type stallingRepo struct {
	*repo.MemTodoRepo
	once    sync.Once
	stalled chan struct{}
	release chan struct{}
}

func (r *stallingRepo) List(ctx context.Context, clientID string) ([]dom.Todo, error) {
	list, err := r.MemTodoRepo.List(ctx, clientID)
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.stalled)
		<-r.release
	}
	return list, err
}

func TestListSeesCreateWhileEarlierListInFlight(t *testing.T) {
	ctx := context.Background()
	store := &stallingRepo{
		MemTodoRepo: repo.NewMemTodoRepo(nil),
		stalled:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	svc := NewTodoService(store, reverseGateway{}, nil, Options{Logger: quietLogger()})

	slow := make(chan []dom.Todo, 1)
	go func() {
		list, _ := svc.List(ctx, "alice")
		slow <- list
	}()
	select {
	case <-store.stalled:
	case <-time.After(5 * time.Second):
		t.Fatal("first list never reached the store")
	}

	if _, err := svc.Create(ctx, "alice", ptr("Buy milk")); err != nil {
		t.Fatal(err)
	}

	fresh := make(chan []dom.Todo, 1)
	go func() {
		list, _ := svc.List(ctx, "alice")
		fresh <- list
	}()
	select {
	case list := <-fresh:
		if len(list) != 1 || list[0].Text != "Buy milk" {
			t.Errorf("list after create = %+v", list)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("list after create waited on the earlier list")
	}

	close(store.release)
	select {
	case list := <-slow:
		if len(list) != 0 {
			t.Errorf("earlier list = %+v, want its own snapshot", list)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("earlier list never returned")
	}
}

func TestListDecryptsEqualValues(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(reverseGateway{}, nil, false)
	for _, text := range []string{"same", "same", "other"} {
		if _, err := svc.Create(ctx, "bob", ptr(text)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := svc.List(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	got := []string{list[0].Text, list[1].Text, list[2].Text}
	if got[0] != "same" || got[1] != "same" || got[2] != "other" {
		t.Errorf("texts = %v", got)
	}
}
