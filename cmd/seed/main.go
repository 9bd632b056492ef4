package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-project-tracker/config"
	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	"github.com/oksasatya/go-project-tracker/internal/domain/repository"
	"github.com/oksasatya/go-project-tracker/internal/infrastructure/mongodb"
	"github.com/oksasatya/go-project-tracker/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	client, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoTimeout)
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.MongoDatabase)
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("failed to ensure indexes: %v", err)
	}
	users := mongodb.NewUserRepository(db)

	email := "admin@example.com"
	username := "admin"
	password := "password123"
	hash, err := helpers.NewHasher(cfg.BcryptCost).Hash(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		u = &entity.User{Name: "Admin", Username: username, Email: email, Password: hash, Role: entity.RoleAdmin}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}
	case err != nil:
		log.Fatalf("failed to look up admin: %v", err)
	default:
		u.Password = hash
		u.Role = entity.RoleAdmin
		if err := users.Update(ctx, u); err != nil {
			log.Fatalf("failed to update admin: %v", err)
		}
	}
	fmt.Printf("seeded admin: id=%s email=%s username=%s password=%s\n", u.ID, u.Email, u.Username, password)
}
