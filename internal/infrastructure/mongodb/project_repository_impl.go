package mongodb

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	"github.com/oksasatya/go-project-tracker/internal/domain/repository"
)

type memberDoc struct {
	User primitive.ObjectID `bson:"user"`
	Role string             `bson:"role"`
}

type statsDoc struct {
	TotalBugs    int `bson:"total_bugs"`
	OpenBugs     int `bson:"open_bugs"`
	ResolvedBugs int `bson:"resolved_bugs"`
}

type projectDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	Members     []memberDoc        `bson:"members"`
	CreatedBy   primitive.ObjectID `bson:"created_by"`
	StartDate   *time.Time         `bson:"start_date,omitempty"`
	EndDate     *time.Time         `bson:"end_date,omitempty"`
	Status      string             `bson:"status"`
	Archived    bool               `bson:"archived"`
	Tags        []string           `bson:"tags"`
	Stats       statsDoc           `bson:"stats"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func toProjectDoc(p *entity.Project) (*projectDoc, error) {
	d := &projectDoc{
		Name:        p.Name,
		Description: p.Description,
		Members:     make([]memberDoc, 0, len(p.Members)),
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Status:      string(p.Status),
		Archived:    p.Archived,
		Tags:        p.Tags,
		Stats:       statsDoc(p.Stats),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if p.ID != "" {
		oid, err := primitive.ObjectIDFromHex(p.ID)
		if err != nil {
			return nil, repository.ErrNotFound
		}
		d.ID = oid
	}
	creator, err := primitive.ObjectIDFromHex(p.CreatedBy)
	if err != nil {
		return nil, err
	}
	d.CreatedBy = creator
	for _, m := range p.Members {
		oid, err := primitive.ObjectIDFromHex(m.UserID)
		if err != nil {
			return nil, err
		}
		d.Members = append(d.Members, memberDoc{User: oid, Role: string(m.Role)})
	}
	return d, nil
}

func (d *projectDoc) toEntity() *entity.Project {
	p := &entity.Project{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Members:     make([]entity.Member, 0, len(d.Members)),
		CreatedBy:   d.CreatedBy.Hex(),
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
		Status:      entity.ProjectStatus(d.Status),
		Archived:    d.Archived,
		Tags:        d.Tags,
		Stats:       entity.ProjectStats(d.Stats),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, m := range d.Members {
		p.Members = append(p.Members, entity.Member{UserID: m.User.Hex(), Role: entity.MemberRole(m.Role)})
	}
	return p
}

type ProjectRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{coll: db.Collection(projectsCollection), now: time.Now}
}

func (r *ProjectRepository) Create(ctx context.Context, p *entity.Project) error {
	now := r.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	d, err := toProjectDoc(p)
	if err != nil {
		return err
	}
	d.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return mapErr(err)
	}
	p.ID = d.ID.Hex()
	return nil
}

func (r *ProjectRepository) findOne(ctx context.Context, filter bson.M) (*entity.Project, error) {
	var d projectDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	return d.toEntity(), nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *ProjectRepository) GetByName(ctx context.Context, name string) (*entity.Project, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *ProjectRepository) find(ctx context.Context, filter bson.M) ([]*entity.Project, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []projectDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*entity.Project, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toEntity())
	}
	return out, nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]*entity.Project, error) {
	return r.find(ctx, bson.M{})
}

func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]*entity.Project, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return []*entity.Project{}, nil
	}
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"created_by": oid},
		bson.M{"members.user": oid},
	}})
}

func (r *ProjectRepository) SearchByName(ctx context.Context, q string) ([]*entity.Project, error) {
	return r.find(ctx, bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}})
}

func (r *ProjectRepository) Update(ctx context.Context, p *entity.Project) error {
	p.UpdatedAt = r.now().UTC()
	d, err := toProjectDoc(p)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": d.ID}, d)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.ProjectRepository = (*ProjectRepository)(nil)
