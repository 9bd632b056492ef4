package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/oksasatya/go-project-tracker/internal/domain/repository"
)

const (
	usersCollection    = "users"
	projectsCollection = "projects"
)

// Connect dials uri and pings the primary within timeout.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the unique indexes uniqueness rules rely on.
// Sparse indexes on social ids let password accounts omit them.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	users := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
		{Keys: bson.D{{Key: "social_ids.google", Value: 1}}, Options: options.Index().SetSparse(true).SetName("social_google")},
		{Keys: bson.D{{Key: "social_ids.facebook", Value: 1}}, Options: options.Index().SetSparse(true).SetName("social_facebook")},
		{Keys: bson.D{{Key: "social_ids.github", Value: 1}}, Options: options.Index().SetSparse(true).SetName("social_github")},
	}
	if _, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, users); err != nil {
		return err
	}
	projects := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_name")},
		{Keys: bson.D{{Key: "created_by", Value: 1}}, Options: options.Index().SetName("created_by")},
		{Keys: bson.D{{Key: "members.user", Value: 1}}, Options: options.Index().SetName("members_user")},
	}
	_, err := db.Collection(projectsCollection).Indexes().CreateMany(ctx, projects)
	return err
}

// mapErr translates driver errors into repository sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Join(repository.ErrDuplicate, err)
	default:
		return err
	}
}
