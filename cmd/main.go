package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oksasatya/go-project-tracker/config"
	"github.com/oksasatya/go-project-tracker/internal/application"
	"github.com/oksasatya/go-project-tracker/internal/container"
	"github.com/oksasatya/go-project-tracker/internal/infrastructure/memory"
	"github.com/oksasatya/go-project-tracker/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/go-project-tracker/internal/infrastructure/postgres"
	"github.com/oksasatya/go-project-tracker/internal/infrastructure/search"
	"github.com/oksasatya/go-project-tracker/internal/infrastructure/storage"
	"github.com/oksasatya/go-project-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-project-tracker/internal/router"
	"github.com/oksasatya/go-project-tracker/pkg/helpers"
	"github.com/oksasatya/go-project-tracker/pkg/mailer"
	"github.com/oksasatya/go-project-tracker/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	c := &container.Container{
		Config: cfg,
		Logger: logger,
		JWT:    helpers.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		Hasher: helpers.NewHasher(cfg.BcryptCost),
	}

	// Document store
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		c.Users = memory.NewUserRepository()
		c.Projects = memory.NewProjectRepository()
	default:
		client, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoTimeout)
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		db := client.Database(cfg.MongoDatabase)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			log.Fatalf("failed to ensure mongo indexes: %v", err)
		}
		c.Users = mongodb.NewUserRepository(db)
		c.Projects = mongodb.NewProjectRepository(db)
	}

	// Postgres audit trail
	if cfg.AuditEnabled {
		pool, err := pginfra.NewPool(ctx, pginfra.PoolConfigFrom(cfg))
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		c.Audit = pginfra.NewAuditRepository(pool)
	}

	// Redis (rate limiting); limiter fails open if redis goes away later
	if cfg.RateLimitEnabled {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			logger.WithError(err).Warn("redis unreachable; rate limiting will fail open")
		}
		c.Redis = rdb
	}

	// Mail transport
	var rabbitPub *helpers.RabbitPublisher
	switch {
	case !cfg.MailSendEnabled:
		c.Mailer = &mailer.LogDispatcher{Logger: logger}
	case cfg.MailTransport == "direct":
		mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender, cfg.AppName)
		if !mg.Configured() {
			log.Fatal("MAIL_TRANSPORT=direct requires MAILGUN_DOMAIN, MAILGUN_API_KEY and MAILGUN_SENDER")
		}
		c.Mailer = mailer.NewDirectDispatcher(mg, cfg)
	default:
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		rabbitPub = pub
		c.Mailer = mailer.NewQueueDispatcher(pub, cfg)
	}
	defer rabbitPub.Close()

	// Elasticsearch project index (optional)
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch disabled")
		} else if err := helpers.PingES(ctx, es); err != nil {
			logger.WithError(err).Warn("elasticsearch unreachable; search uses the store")
		} else {
			idx := search.NewProjectIndex(es, cfg.ESProjectsIndex)
			if err := idx.EnsureIndex(ctx); err != nil {
				logger.WithError(err).Warn("project index unusable; search uses the store")
			} else {
				c.Index = idx
				n, err := application.NewProjectService(c.Projects, c.Users, idx, logger).Reindex(ctx)
				if err != nil {
					logger.WithError(err).Warn("project index backfill failed")
				} else {
					logger.WithField("projects", n).Info("project index backfilled")
				}
			}
		}
	}

	// GCS avatars (optional)
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("failed to init GCS client: %v", err)
		}
		defer func() { _ = gcsClient.Close() }()
		c.Avatars = storage.NewGCSAvatarStore(gcsClient, cfg.GCSBucket)
	}

	// Prometheus
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = reg
	httpMetrics := middleware.NewHTTPMetrics(reg, cfg.AppName)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	r.Use(httpMetrics.Middleware())
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	// Bearer tokens travel in a header, so credentials are not needed and "*" is allowed.
	if origins := cfg.CORSOrigins(); len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	r.Use(cors.New(corsCfg))
	if cfg.Env == "development" || cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	registry := router.NewRegistry(r)
	router.InitModules(registry, c)
	registry.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s (store=%s)", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
		return
	}
	logger.Info("server exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
