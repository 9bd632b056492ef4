package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	handlers "github.com/oksasatya/go-project-tracker/internal/interface/http"
	"github.com/oksasatya/go-project-tracker/internal/interface/middleware"
)

// ProjectModule wires /api/projects. Every route requires a Bearer token.
type ProjectModule struct {
	Handler *handlers.ProjectHandler
	Auth    middleware.Authenticator
	RDB     *redis.Client
	Allow   middleware.AllowFunc
}

func NewProjectModule(h *handlers.ProjectHandler, auth middleware.Authenticator, rdb *redis.Client, allow middleware.AllowFunc) *ProjectModule {
	return &ProjectModule{Handler: h, Auth: auth, RDB: rdb, Allow: allow}
}

func (m *ProjectModule) Register(rg *gin.RouterGroup) {
	adminOnly := middleware.AuthorisedRoles(entity.RoleAdmin)
	managers := middleware.AuthorisedRoles(entity.RoleAdmin, entity.RoleProjectManager)

	p := rg.Group("/projects")
	p.Use(
		middleware.Protect(m.Auth),
		middleware.RateLimit(m.RDB, 300, time.Minute, middleware.KeyByUserID(), m.Allow),
	)
	{
		p.POST("/create", adminOnly, m.Handler.Create)
		p.GET("/", m.Handler.List)
		p.GET("/my-projects", m.Handler.Mine)
		p.GET("/search", m.Handler.Search)
		p.GET("/:id", m.Handler.Get)
		p.PUT("/:id", managers, m.Handler.Update)
		p.DELETE("/:id", adminOnly, m.Handler.Delete)
		p.PATCH("/:id/add-member", managers, m.Handler.AddMember)
		p.PATCH("/:id/remove-member", managers, m.Handler.RemoveMember)
		p.PATCH("/:id/archive", managers, m.Handler.ToggleArchive)
		p.PATCH("/:id/status", managers, m.Handler.SetStatus)
		p.PATCH("/:id/dates", managers, m.Handler.SetDates)
		p.PATCH("/:id/transfer", managers, m.Handler.Transfer)
	}
}
