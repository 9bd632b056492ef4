package repository

import (
	"context"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
)

// ProjectRepository defines the interface for project store operations.
type ProjectRepository interface {
	Create(ctx context.Context, p *entity.Project) error
	GetByID(ctx context.Context, id string) (*entity.Project, error)
	GetByName(ctx context.Context, name string) (*entity.Project, error)
	List(ctx context.Context) ([]*entity.Project, error)
	// ListForUser returns projects created by userID or listing it as member.
	ListForUser(ctx context.Context, userID string) ([]*entity.Project, error)
	// SearchByName is a case-insensitive substring match.
	SearchByName(ctx context.Context, q string) ([]*entity.Project, error)
	Update(ctx context.Context, p *entity.Project) error
	Delete(ctx context.Context, id string) error
}
