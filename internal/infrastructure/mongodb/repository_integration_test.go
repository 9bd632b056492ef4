//go:build integration

package mongodb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	"github.com/oksasatya/go-project-tracker/internal/domain/repository"
	"github.com/oksasatya/go-project-tracker/internal/infrastructure/mongodb"
)

func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	client, err := mongodb.Connect(ctx, uri, 30*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("project_tracker_test")
	require.NoError(t, mongodb.EnsureIndexes(ctx, db))
	return db
}

func TestMongoRepositories(t *testing.T) {
	ctx := context.Background()
	db := setupMongo(t)
	users := mongodb.NewUserRepository(db)
	projects := mongodb.NewProjectRepository(db)

	exp := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Millisecond)
	u := &entity.User{Name: "Ada", Username: "ada1234", Email: "ada@example.com", Password: "hash", Role: entity.RoleAdmin}
	u.SetOTP("otp-hash", exp, entity.OTPLogin)
	u.SetSocialID(entity.ProviderGoogle, "g-1")
	require.NoError(t, users.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	t.Run("user round trip", func(t *testing.T) {
		got, err := users.GetByLogin(ctx, "ada1234")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, entity.RoleAdmin, got.Role)
		assert.Equal(t, "g-1", got.SocialID(entity.ProviderGoogle))
		assert.Equal(t, entity.OTPLogin, got.OTPPurpose)
		assert.True(t, exp.Equal(got.OTPExpires))

		got.ClearOTP()
		require.NoError(t, users.Update(ctx, got))
		again, err := users.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.False(t, again.HasOTP())
	})

	t.Run("user uniqueness", func(t *testing.T) {
		dup := &entity.User{Username: "other", Email: "ada@example.com", Role: entity.RoleDeveloper}
		assert.ErrorIs(t, users.Create(ctx, dup), repository.ErrDuplicate)
		dup = &entity.User{Username: "ada1234", Email: "other@example.com", Role: entity.RoleDeveloper}
		assert.ErrorIs(t, users.Create(ctx, dup), repository.ErrDuplicate)

		taken, err := users.UsernameExists(ctx, "ada1234")
		require.NoError(t, err)
		assert.True(t, taken)

		_, err = users.GetByID(ctx, "not-an-object-id")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	dev := &entity.User{Name: "Dev", Username: "dev0001", Email: "dev@example.com", Role: entity.RoleDeveloper}
	require.NoError(t, users.Create(ctx, dev))

	t.Run("projects", func(t *testing.T) {
		p := &entity.Project{Name: "Website Revamp", CreatedBy: u.ID, Status: entity.StatusActive, Tags: []string{"web"}}
		p.AddMember(dev.ID, entity.MemberTester)
		require.NoError(t, projects.Create(ctx, p))

		assert.ErrorIs(t, projects.Create(ctx, &entity.Project{Name: "Website Revamp", CreatedBy: u.ID}), repository.ErrDuplicate)

		found, err := projects.SearchByName(ctx, "site rev")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, []entity.Member{{UserID: dev.ID, Role: entity.MemberTester}}, found[0].Members)

		found, err = projects.SearchByName(ctx, "(.*)")
		require.NoError(t, err)
		assert.Empty(t, found, "query is matched literally")

		mine, err := projects.ListForUser(ctx, dev.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 1)

		p.Archived = true
		p.Status = entity.StatusOnHold
		require.NoError(t, projects.Update(ctx, p))
		got, err := projects.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.Archived)
		assert.Equal(t, entity.StatusOnHold, got.Status)

		members, err := users.GetByIDs(ctx, []string{dev.ID, u.ID, "junk"})
		require.NoError(t, err)
		assert.Len(t, members, 2)

		require.NoError(t, projects.Delete(ctx, p.ID))
		assert.ErrorIs(t, projects.Delete(ctx, p.ID), repository.ErrNotFound)
	})
}
