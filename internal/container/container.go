package container

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-project-tracker/config"
	"github.com/oksasatya/go-project-tracker/internal/application"
	repo "github.com/oksasatya/go-project-tracker/internal/domain/repository"
	"github.com/oksasatya/go-project-tracker/pkg/helpers"
	"github.com/oksasatya/go-project-tracker/pkg/mailer"
)

// Container carries the constructed infrastructure from main to the router.
// Optional collaborators (Redis, Audit, Index, Avatars, Metrics) may be nil;
// the features using them are then disabled.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Users    repo.UserRepository
	Projects repo.ProjectRepository
	Audit    repo.AuditRepository

	JWT    *helpers.JWTManager
	Hasher *helpers.Hasher
	Mailer mailer.Dispatcher

	Redis   *redis.Client
	Index   application.ProjectIndex
	Avatars application.AvatarStore

	Metrics *prometheus.Registry
}

// Services are the application services built from a Container.
type Services struct {
	OTP      *application.OTPService
	Auth     *application.AuthService
	Projects *application.ProjectService
	Audit    *application.AuditTrail
}

func (c *Container) Services() Services {
	otp := application.NewOTPService(c.Users, c.Hasher, c.Mailer, c.Config.OTPTTL, c.Logger)
	return Services{
		OTP:      otp,
		Auth:     application.NewAuthService(c.Users, c.JWT, c.Hasher, otp, c.Avatars, c.Logger),
		Projects: application.NewProjectService(c.Projects, c.Users, c.Index, c.Logger),
		Audit:    application.NewAuditTrail(c.Audit, c.Logger),
	}
}
