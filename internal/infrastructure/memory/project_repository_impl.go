package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	"github.com/oksasatya/go-project-tracker/internal/domain/repository"
)

type ProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]*entity.Project
	now      func() time.Time
}

func NewProjectRepository() *ProjectRepository {
	return &ProjectRepository{projects: map[string]*entity.Project{}, now: time.Now}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneProject(p *entity.Project) *entity.Project {
	c := *p
	c.Members = append([]entity.Member(nil), p.Members...)
	c.Tags = append([]string(nil), p.Tags...)
	c.StartDate = cloneTime(p.StartDate)
	c.EndDate = cloneTime(p.EndDate)
	return &c
}

func (r *ProjectRepository) nameTaken(p *entity.Project) bool {
	for id, other := range r.projects {
		if id != p.ID && other.Name == p.Name {
			return true
		}
	}
	return false
}

func (r *ProjectRepository) Create(_ context.Context, p *entity.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTaken(p) {
		return repository.ErrDuplicate
	}
	p.ID = uuid.NewString()
	now := r.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.projects[p.ID] = cloneProject(p)
	return nil
}

func (r *ProjectRepository) GetByID(_ context.Context, id string) (*entity.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneProject(p), nil
}

func (r *ProjectRepository) GetByName(_ context.Context, name string) (*entity.Project, error) {
	ps := r.filter(func(p *entity.Project) bool { return p.Name == name })
	if len(ps) == 0 {
		return nil, repository.ErrNotFound
	}
	return ps[0], nil
}

// filter returns clones of matching projects, newest first.
func (r *ProjectRepository) filter(match func(*entity.Project) bool) []*entity.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Project, 0)
	for _, p := range r.projects {
		if match(p) {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *ProjectRepository) List(_ context.Context) ([]*entity.Project, error) {
	return r.filter(func(*entity.Project) bool { return true }), nil
}

func (r *ProjectRepository) ListForUser(_ context.Context, userID string) ([]*entity.Project, error) {
	return r.filter(func(p *entity.Project) bool { return p.CreatedBy == userID || p.HasMember(userID) }), nil
}

func (r *ProjectRepository) SearchByName(_ context.Context, q string) ([]*entity.Project, error) {
	q = strings.ToLower(q)
	return r.filter(func(p *entity.Project) bool { return strings.Contains(strings.ToLower(p.Name), q) }), nil
}

func (r *ProjectRepository) Update(_ context.Context, p *entity.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.nameTaken(p) {
		return repository.ErrDuplicate
	}
	p.UpdatedAt = r.now().UTC()
	r.projects[p.ID] = cloneProject(p)
	return nil
}

func (r *ProjectRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.projects, id)
	return nil
}

var _ repository.ProjectRepository = (*ProjectRepository)(nil)
