package domain

import "time"

// Todo is the stored entity. Text holds ciphertext when Encrypted is set.
// Не зависит от Gin, Redis, Postgres.
type Todo struct {
	ID        int64
	Text      string
	CreatedAt time.Time
	Encrypted bool
}

// StoreStats summarises the in-memory store for the status endpoint.
type StoreStats struct {
	Clients     int
	GlobalTodos int
}
