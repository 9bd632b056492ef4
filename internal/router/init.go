package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-project-tracker/internal/container"
	handlers "github.com/oksasatya/go-project-tracker/internal/interface/http"
	"github.com/oksasatya/go-project-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-project-tracker/internal/router/modules"
	"github.com/oksasatya/go-project-tracker/pkg/response"
)

// InitModules builds services and handlers from c and adds every feature module to r.
func InitModules(r *Registry, c *container.Container) {
	svc := c.Services()

	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Audit, c.Logger)
	projectHandler := handlers.NewProjectHandler(svc.Projects, c.Logger)

	allow := rateLimitBypass(c)
	r.Add(modules.NewAuthModule(authHandler, svc.Auth, c.Redis, allow))
	r.Add(modules.NewProjectModule(projectHandler, svc.Auth, c.Redis, allow))
	r.Add(ModuleFunc(func(api *gin.RouterGroup) {
		api.GET("/health", func(ctx *gin.Context) {
			response.Success(ctx, http.StatusOK, gin.H{"store": c.Config.StoreDriver, "rateLimit": c.Redis != nil}, "ok", nil)
		})
	}))
	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.Redis, c.Metrics, allow))
	}
}

func rateLimitBypass(c *container.Container) middleware.AllowFunc {
	var private middleware.AllowFunc
	if c.Config.RateLimitBypassPrivate {
		private = middleware.AllowPrivateIP()
	}
	return middleware.AnyAllow(private, middleware.AllowCIDRs(c.Config.RateLimitAllowed()))
}
