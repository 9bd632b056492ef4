package mongodb

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	"github.com/oksasatya/go-project-tracker/internal/domain/repository"
)

type userDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Name             string             `bson:"name"`
	Username         string             `bson:"username"`
	Email            string             `bson:"email"`
	Password         string             `bson:"password,omitempty"`
	Role             string             `bson:"role"`
	Avatar           string             `bson:"avatar,omitempty"`
	TwoFactorEnabled bool               `bson:"two_factor_enabled"`
	OTPHash          string             `bson:"otp,omitempty"`
	OTPExpires       *time.Time         `bson:"otp_expires,omitempty"`
	OTPPurpose       string             `bson:"otp_purpose,omitempty"`
	SocialIDs        map[string]string  `bson:"social_ids,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

func toUserDoc(u *entity.User) (*userDoc, error) {
	d := &userDoc{
		Name:             u.Name,
		Username:         u.Username,
		Email:            u.Email,
		Password:         u.Password,
		Role:             string(u.Role),
		Avatar:           u.Avatar,
		TwoFactorEnabled: u.TwoFactorEnabled,
		OTPHash:          u.OTPHash,
		OTPPurpose:       string(u.OTPPurpose),
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
	if u.ID != "" {
		oid, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			return nil, repository.ErrNotFound
		}
		d.ID = oid
	}
	if !u.OTPExpires.IsZero() {
		exp := u.OTPExpires.UTC()
		d.OTPExpires = &exp
	}
	if len(u.SocialIDs) > 0 {
		d.SocialIDs = make(map[string]string, len(u.SocialIDs))
		for p, id := range u.SocialIDs {
			d.SocialIDs[string(p)] = id
		}
	}
	return d, nil
}

func (d *userDoc) toEntity() *entity.User {
	u := &entity.User{
		ID:               d.ID.Hex(),
		Name:             d.Name,
		Username:         d.Username,
		Email:            d.Email,
		Password:         d.Password,
		Role:             entity.Role(d.Role),
		Avatar:           d.Avatar,
		TwoFactorEnabled: d.TwoFactorEnabled,
		OTPHash:          d.OTPHash,
		OTPPurpose:       entity.OTPPurpose(d.OTPPurpose),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	if d.OTPExpires != nil {
		u.OTPExpires = *d.OTPExpires
	}
	for p, id := range d.SocialIDs {
		u.SetSocialID(entity.Provider(p), id)
	}
	return u
}

type UserRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection), now: time.Now}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	d, err := toUserDoc(u)
	if err != nil {
		return err
	}
	d.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return mapErr(err)
	}
	u.ID = d.ID.Hex()
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var d userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	return d.toEntity(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByLogin matches username exactly; emails are stored lowercase.
func (r *UserRepository) GetByLogin(ctx context.Context, loginID string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": loginID},
		bson.M{"email": strings.ToLower(loginID)},
	}})
}

// GetByIDs silently skips ids that are not valid object ids.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.User, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []*entity.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (r *UserRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*entity.User, error) {
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*entity.User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toEntity())
	}
	return out, nil
}

// Update replaces the stored document; CreatedAt is preserved from the entity.
func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = r.now().UTC()
	d, err := toUserDoc(u)
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

var _ repository.UserRepository = (*UserRepository)(nil)
