package telemetry

import (
	"context"

	dom "github.com/w0nsdoof/CloudDevelopment-midterm/internal/domain"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/repo"
)

// RepoEvents persists security events through an EventRepo.
type RepoEvents struct {
	repo repo.EventRepo
}

func NewRepoEvents(r repo.EventRepo) *RepoEvents {
	return &RepoEvents{repo: r}
}

func (s *RepoEvents) WriteEvent(ctx context.Context, e dom.SecurityEvent) error {
	return s.repo.Insert(ctx, e)
}
