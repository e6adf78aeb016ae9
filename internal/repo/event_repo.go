package repo

import (
	"context"
	"encoding/json"
	"fmt"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepo persists security events.
type EventRepo interface {
	Insert(ctx context.Context, e dom.SecurityEvent) error
}

// PGEventRepo implements EventRepo with Postgres.
type PGEventRepo struct {
	db *pgxpool.Pool
}

// NewPGEventRepo returns a new PGEventRepo.
func NewPGEventRepo(db *pgxpool.Pool) *PGEventRepo {
	return &PGEventRepo{db: db}
}

// Insert writes one row into security_events.
func (r *PGEventRepo) Insert(ctx context.Context, e dom.SecurityEvent) error {
	payload, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("marshal event fields: %w", err)
	}
	query := `
		INSERT INTO security_events (event_type, payload, method, url, user_agent, remote_ip, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.db.Exec(ctx, query,
		e.Type, payload,
		e.Request.Method, e.Request.URL, e.Request.UserAgent, e.Request.RemoteIP, e.Request.RequestID,
		e.At,
	)
	return err
}
