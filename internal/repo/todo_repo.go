package repo

import (
	"context"
	"sync"
	"time"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"
)

// TodoRepo stores todos partitioned by client identifier. The empty
// identifier selects the global collection.
type TodoRepo interface {
	List(ctx context.Context, clientID string) ([]dom.Todo, error)
	Create(ctx context.Context, clientID string, t dom.Todo) (dom.Todo, int, error)
	Stats(ctx context.Context) (dom.StoreStats, error)
}

// collection owns one client's todos and its id counter.
type collection struct {
	mu     sync.Mutex
	todos  []dom.Todo
	nextID int64
}

func newCollection() *collection {
	return &collection{nextID: 1}
}

// MemTodoRepo implements TodoRepo in process memory. Nothing survives a
// restart.
type MemTodoRepo struct {
	mu      sync.RWMutex
	clients map[string]*collection
	global  *collection
	now     func() time.Time
}

// NewMemTodoRepo returns an empty store. If now is nil, time.Now is used.
func NewMemTodoRepo(now func() time.Time) *MemTodoRepo {
	if now == nil {
		now = time.Now
	}
	return &MemTodoRepo{
		clients: make(map[string]*collection),
		global:  newCollection(),
		now:     now,
	}
}

// collectionFor resolves the collection for clientID, creating it on first use.
func (r *MemTodoRepo) collectionFor(clientID string) *collection {
	if clientID == "" {
		return r.global
	}

	r.mu.RLock()
	c, ok := r.clients[clientID]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[clientID]; ok {
		return c
	}
	c = newCollection()
	r.clients[clientID] = c
	return c
}

// List returns a snapshot of the collection in insertion order.
func (r *MemTodoRepo) List(ctx context.Context, clientID string) ([]dom.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := r.collectionFor(clientID)
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]dom.Todo, len(c.todos))
	copy(out, c.todos)
	return out, nil
}

// Create assigns the next id and creation time to t, appends it and returns
// the stored todo together with the collection size after the insert.
func (r *MemTodoRepo) Create(ctx context.Context, clientID string, t dom.Todo) (dom.Todo, int, error) {
	if err := ctx.Err(); err != nil {
		return dom.Todo{}, 0, err
	}
	c := r.collectionFor(clientID)
	c.mu.Lock()
	defer c.mu.Unlock()

	t.ID = c.nextID
	t.CreatedAt = r.now().UTC()
	c.nextID++
	c.todos = append(c.todos, t)
	return t, len(c.todos), nil
}

// Stats counts client collections and global todos.
func (r *MemTodoRepo) Stats(ctx context.Context) (dom.StoreStats, error) {
	if err := ctx.Err(); err != nil {
		return dom.StoreStats{}, err
	}
	r.mu.RLock()
	clients := len(r.clients)
	r.mu.RUnlock()

	r.global.mu.Lock()
	global := len(r.global.todos)
	r.global.mu.Unlock()

	return dom.StoreStats{Clients: clients, GlobalTodos: global}, nil
}
