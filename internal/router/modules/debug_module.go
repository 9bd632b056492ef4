package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-project-tracker/internal/interface/middleware"
)

type DebugModule struct {
	RDB     *redis.Client
	Metrics *prometheus.Registry
	Allow   middleware.AllowFunc
}

func NewDebugModule(rdb *redis.Client, metrics *prometheus.Registry, allow middleware.AllowFunc) *DebugModule {
	return &DebugModule{RDB: rdb, Metrics: metrics, Allow: allow}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// Public metrics endpoints, rate-limited per IP
	rl := middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByIP(), m.Allow)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
	if m.Metrics != nil {
		rg.GET("/debug/metrics", rl, gin.WrapH(promhttp.HandlerFor(m.Metrics, promhttp.HandlerOpts{})))
	}
}
