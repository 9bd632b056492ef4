package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	repo "github.com/oksasatya/go-project-tracker/internal/domain/repository"
)

const (
	ProjectNameMin        = 3
	ProjectNameMax        = 100
	ProjectDescriptionMax = 500
	ProjectTagMax         = 30
)

// ProjectIndex is a secondary full-text index over project names.
type ProjectIndex interface {
	Index(ctx context.Context, p *entity.Project) error
	Delete(ctx context.Context, id string) error
	// IndexAll backfills many projects at once.
	IndexAll(ctx context.Context, ps []*entity.Project) error
	// Search returns matching project ids.
	Search(ctx context.Context, q string) ([]string, error)
}

// UserSummary is the expanded form of a user reference.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type MemberView struct {
	User *UserSummary      `json:"user"`
	Role entity.MemberRole `json:"role"`
}

type StatsView struct {
	TotalBugs    int `json:"totalBugs"`
	OpenBugs     int `json:"openBugs"`
	ResolvedBugs int `json:"resolvedBugs"`
}

// ProjectView is a project with member and creator references expanded.
type ProjectView struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Members     []MemberView         `json:"members"`
	CreatedBy   *UserSummary         `json:"createdBy"`
	StartDate   *time.Time           `json:"startDate,omitempty"`
	EndDate     *time.Time           `json:"endDate,omitempty"`
	Status      entity.ProjectStatus `json:"status"`
	Archived    bool                 `json:"archived"`
	Tags        []string             `json:"tags"`
	Stats       StatsView            `json:"stats"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

type MemberInput struct {
	UserID string
	Role   entity.MemberRole
}

type CreateProjectInput struct {
	Name        string
	Description string
	Members     []MemberInput
	StartDate   *time.Time
	EndDate     *time.Time
	Tags        []string
}

// UpdateProjectInput carries optional fields; nil leaves the field untouched.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Members     []MemberInput
	Tags        []string
}

type ProjectService struct {
	Projects repo.ProjectRepository
	Users    repo.UserRepository
	Index    ProjectIndex
	Logger   *logrus.Logger
}

func NewProjectService(projects repo.ProjectRepository, users repo.UserRepository, index ProjectIndex, logger *logrus.Logger) *ProjectService {
	return &ProjectService{Projects: projects, Users: users, Index: index, Logger: logger}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := len([]rune(name))
	if n < ProjectNameMin {
		return "", ErrProjectNameTooShort
	}
	if n > ProjectNameMax {
		return "", ErrProjectNameTooLong
	}
	return name, nil
}

func validateDescription(d string) (string, error) {
	d = strings.TrimSpace(d)
	if len([]rune(d)) > ProjectDescriptionMax {
		return "", fmt.Errorf("%w: description must be at most %d characters", ErrBadRequest, ProjectDescriptionMax)
	}
	return d, nil
}

func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if len([]rune(t)) > ProjectTagMax {
			return nil, fmt.Errorf("%w: tag %q exceeds %d characters", ErrBadRequest, t, ProjectTagMax)
		}
		out = append(out, t)
	}
	return out, nil
}

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return ErrInvalidDates
	}
	return nil
}

// ensureNameFree fails when another project (not selfID) already uses name.
func (s *ProjectService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.Projects.GetByName(ctx, name)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return ErrProjectNameTaken
	}
	return nil
}

// resolveMembers checks every referenced user exists and drops duplicates.
func (s *ProjectService) resolveMembers(ctx context.Context, in []MemberInput) ([]entity.Member, error) {
	if len(in) == 0 {
		return []entity.Member{}, nil
	}
	p := &entity.Project{}
	for _, m := range in {
		id := strings.TrimSpace(m.UserID)
		if id == "" {
			return nil, ErrInvalidMembers
		}
		if m.Role != "" && !m.Role.Valid() {
			return nil, fmt.Errorf("%w: invalid member role %q", ErrBadRequest, m.Role)
		}
		p.AddMember(id, m.Role)
	}
	found, err := s.Users.GetByIDs(ctx, p.MemberIDs())
	if err != nil {
		return nil, err
	}
	if len(found) != len(p.Members) {
		return nil, ErrInvalidMembers
	}
	return p.Members, nil
}

func (s *ProjectService) load(ctx context.Context, id string) (*entity.Project, error) {
	p, err := s.Projects.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	return p, err
}

func (s *ProjectService) save(ctx context.Context, p *entity.Project) error {
	if err := s.Projects.Update(ctx, p); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return ErrProjectNameTaken
		}
		if errors.Is(err, repo.ErrNotFound) {
			return ErrProjectNotFound
		}
		return err
	}
	s.reindex(ctx, p)
	return nil
}

// reindex keeps the search index in step; failures only degrade search.
func (s *ProjectService) reindex(ctx context.Context, p *entity.Project) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, p); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("project_id", p.ID).Warn("project index failed")
	}
}

func (s *ProjectService) Create(ctx context.Context, actor *entity.User, in CreateProjectInput) (*ProjectView, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	desc, err := validateDescription(in.Description)
	if err != nil {
		return nil, err
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	if err := checkDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}
	members, err := s.resolveMembers(ctx, in.Members)
	if err != nil {
		return nil, err
	}

	p := &entity.Project{
		Name:        name,
		Description: desc,
		Members:     members,
		CreatedBy:   actor.ID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      entity.StatusActive,
		Tags:        tags,
	}
	if err := s.Projects.Create(ctx, p); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrProjectNameTaken
		}
		return nil, err
	}
	s.reindex(ctx, p)
	return s.view(ctx, p)
}

func (s *ProjectService) List(ctx context.Context) ([]*ProjectView, error) {
	ps, err := s.Projects.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, ps)
}

// ListMine returns projects the actor created or is a member of.
func (s *ProjectService) ListMine(ctx context.Context, actor *entity.User) ([]*ProjectView, error) {
	ps, err := s.Projects.ListForUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, ps)
}

// Search matches names case-insensitively. The index is preferred; the store
// regex answers when no index is configured, the index fails, or it has no
// hits (it may lag behind the store).
func (s *ProjectService) Search(ctx context.Context, q string) ([]*ProjectView, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrBadRequest)
	}
	if s.Index != nil {
		ids, err := s.Index.Search(ctx, q)
		if err == nil && len(ids) > 0 {
			ps := make([]*entity.Project, 0, len(ids))
			for _, id := range ids {
				p, gerr := s.Projects.GetByID(ctx, id)
				if errors.Is(gerr, repo.ErrNotFound) {
					continue
				}
				if gerr != nil {
					return nil, gerr
				}
				ps = append(ps, p)
			}
			return s.views(ctx, ps)
		}
		if err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("project index search failed, falling back to store")
		}
	}
	ps, err := s.Projects.SearchByName(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, ps)
}

// Reindex writes every stored project to the index and returns how many.
func (s *ProjectService) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}
	ps, err := s.Projects.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.Index.IndexAll(ctx, ps); err != nil {
		return 0, err
	}
	return len(ps), nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*ProjectView, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

func (s *ProjectService) Update(ctx context.Context, id string, in UpdateProjectInput) (*ProjectView, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name, err := validateName(*in.Name)
		if err != nil {
			return nil, err
		}
		if err := s.ensureNameFree(ctx, name, p.ID); err != nil {
			return nil, err
		}
		p.Name = name
	}
	if in.Description != nil {
		desc, err := validateDescription(*in.Description)
		if err != nil {
			return nil, err
		}
		p.Description = desc
	}
	if in.Members != nil {
		members, err := s.resolveMembers(ctx, in.Members)
		if err != nil {
			return nil, err
		}
		p.Members = members
	}
	if in.Tags != nil {
		tags, err := normalizeTags(in.Tags)
		if err != nil {
			return nil, err
		}
		p.Tags = tags
	}
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

// Delete removes a project. Only admins and the creator may do so.
func (s *ProjectService) Delete(ctx context.Context, actor *entity.User, id string) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role != entity.RoleAdmin && p.CreatedBy != actor.ID {
		return ErrNotProjectOwner
	}
	if err := s.Projects.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrProjectNotFound
		}
		return err
	}
	if s.Index != nil {
		if err := s.Index.Delete(ctx, p.ID); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("project_id", p.ID).Warn("project unindex failed")
		}
	}
	return nil
}

// AddMember is idempotent: adding an existing member is a no-op.
func (s *ProjectService) AddMember(ctx context.Context, id, userID string, role entity.MemberRole) (*ProjectView, error) {
	if role != "" && !role.Valid() {
		return nil, fmt.Errorf("%w: invalid member role %q", ErrBadRequest, role)
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if p.AddMember(userID, role) {
		if err := s.save(ctx, p); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, p)
}

func (s *ProjectService) RemoveMember(ctx context.Context, id, userID string) (*ProjectView, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.HasMember(userID) {
		p.RemoveMember(userID)
		if err := s.save(ctx, p); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, p)
}

// ToggleArchive flips the archived flag; status is left as is.
func (s *ProjectService) ToggleArchive(ctx context.Context, id string) (*ProjectView, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Archived = !p.Archived
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

func (s *ProjectService) SetStatus(ctx context.Context, id string, status entity.ProjectStatus) (*ProjectView, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = status
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

// SetDates updates whichever of start/end is given, then checks the resulting range.
func (s *ProjectService) SetDates(ctx context.Context, id string, start, end *time.Time) (*ProjectView, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if start != nil {
		p.StartDate = start
	}
	if end != nil {
		p.EndDate = end
	}
	if err := checkDates(p.StartDate, p.EndDate); err != nil {
		return nil, err
	}
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

func (s *ProjectService) TransferOwnership(ctx context.Context, id, newOwnerID string) (*ProjectView, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.Users.GetByID(ctx, newOwnerID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNewOwnerNotFound
		}
		return nil, err
	}
	p.CreatedBy = newOwnerID
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

func (s *ProjectService) view(ctx context.Context, p *entity.Project) (*ProjectView, error) {
	vs, err := s.views(ctx, []*entity.Project{p})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

// views expands user references with one batched lookup. Dangling
// references expand to nil.
func (s *ProjectService) views(ctx context.Context, ps []*entity.Project) ([]*ProjectView, error) {
	seen := map[string]struct{}{}
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, p := range ps {
		add(p.CreatedBy)
		for _, m := range p.Members {
			add(m.UserID)
		}
	}
	summaries := map[string]*UserSummary{}
	if len(ids) > 0 {
		users, err := s.Users.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			summaries[u.ID] = &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}

	out := make([]*ProjectView, 0, len(ps))
	for _, p := range ps {
		v := &ProjectView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Members:     make([]MemberView, 0, len(p.Members)),
			CreatedBy:   summaries[p.CreatedBy],
			StartDate:   p.StartDate,
			EndDate:     p.EndDate,
			Status:      p.Status,
			Archived:    p.Archived,
			Tags:        p.Tags,
			Stats:       StatsView(p.Stats),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
		if v.Tags == nil {
			v.Tags = []string{}
		}
		for _, m := range p.Members {
			v.Members = append(v.Members, MemberView{User: summaries[m.UserID], Role: m.Role})
		}
		out = append(out, v)
	}
	return out, nil
}
