package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/scope"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/service"

	"github.com/gin-gonic/gin"
)

const storeFailure = "connection reset by peer"

type brokenStore struct{}

func (brokenStore) List(context.Context, string) ([]dom.Todo, error) {
	return nil, errors.New(storeFailure)
}

func (brokenStore) Create(context.Context, string, dom.Todo) (dom.Todo, int, error) {
	return dom.Todo{}, 0, errors.New(storeFailure)
}

func (brokenStore) Stats(context.Context) (dom.StoreStats, error) {
	return dom.StoreStats{}, errors.New(storeFailure)
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newBrokenRouter(secure bool) *gin.Engine {
	svc := service.NewTodoService(brokenStore{}, nil, nil, service.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	todos := NewTodoHandler(svc, secure)
	status := NewStatusHandler(svc, secure)

	r := gin.New()
	api := r.Group("/api")
	api.GET("/status", status.Status)
	g := api.Group("", scope.ClientScope())
	g.GET("/todos", todos.List)
	g.POST("/todos", todos.Create)
	return r
}

func TestStoreFailuresReturnFixedMessages(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   string
	}{
		{"list global", http.MethodGet, "/api/todos", "", `{"error":"Failed to retrieve todos"}`},
		{"list client", http.MethodGet, "/api/todos?client_id=alice", "", `{"error":"Failed to retrieve todos"}`},
		{"create global", http.MethodPost, "/api/todos", `{"text":"Buy milk"}`, `{"error":"Failed to create todo"}`},
		{"create client", http.MethodPost, "/api/todos?client_id=alice", `{"text":"Buy milk"}`, `{"error":"Failed to create todo"}`},
		{"status", http.MethodGet, "/api/status", "", `{"error":"status unavailable"}`},
	}
	for _, secure := range []bool{false, true} {
		r := newBrokenRouter(secure)
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var body io.Reader
				if tt.body != "" {
					body = strings.NewReader(tt.body)
				}
				req := httptest.NewRequest(tt.method, tt.target, body)
				req.Header.Set("Content-Type", "application/json")
				w := httptest.NewRecorder()
				r.ServeHTTP(w, req)

				if w.Code != http.StatusInternalServerError {
					t.Fatalf("secure=%v: status = %d, want 500", secure, w.Code)
				}
				if got := w.Body.String(); got != tt.want {
					t.Errorf("secure=%v: body = %s, want %s", secure, got, tt.want)
				}
				if strings.Contains(w.Body.String(), storeFailure) {
					t.Errorf("secure=%v: body leaks store error: %s", secure, w.Body.String())
				}
			})
		}
	}
}

func TestValidationErrorIsNotAServerError(t *testing.T) {
	r := newBrokenRouter(false)
	req := httptest.NewRequest(http.MethodPost, "/api/todos", strings.NewReader(`{"text":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := w.Body.String(); got != `{"error":"text cannot be empty"}` {
		t.Errorf("body = %s", got)
	}
}
