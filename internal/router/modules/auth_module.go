package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-project-tracker/internal/interface/http"
	"github.com/oksasatya/go-project-tracker/internal/interface/middleware"
)

// AuthModule wires /api/auth.
// Public: register, login, users, login/otp, login/otp/verify, social-login,
// change-password, forgot-password, reset-password.
// Protected: me, avatar.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Auth    middleware.Authenticator
	RDB     *redis.Client
	Allow   middleware.AllowFunc
}

func NewAuthModule(h *handlers.AuthHandler, auth middleware.Authenticator, rdb *redis.Client, allow middleware.AllowFunc) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth, RDB: rdb, Allow: allow}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	registerLimiter := middleware.RateLimit(m.RDB, 20, time.Minute, middleware.KeyByIP(), m.Allow)
	loginLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIP(), m.Allow)
	otpSendLimiter := middleware.RateLimit(m.RDB, 5, time.Minute, middleware.KeyByIPAndPath(), m.Allow)
	otpVerifyLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), m.Allow)
	forgotLimiter := middleware.RateLimit(m.RDB, 5, time.Minute, middleware.KeyByIPAndPath(), m.Allow)
	resetLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), m.Allow)

	auth := rg.Group("/auth")
	auth.POST("/register", registerLimiter, m.Handler.Register)
	auth.POST("/login", loginLimiter, m.Handler.Login)
	auth.GET("/users", m.Handler.Users)
	auth.POST("/login/otp", otpSendLimiter, m.Handler.LoginOTP)
	auth.POST("/login/otp/verify", otpVerifyLimiter, m.Handler.VerifyOTP)
	auth.POST("/social-login", loginLimiter, m.Handler.SocialLogin)
	auth.POST("/change-password", loginLimiter, m.Handler.ChangePassword)
	auth.POST("/forgot-password", forgotLimiter, m.Handler.ForgotPassword)
	auth.POST("/reset-password", resetLimiter, m.Handler.ResetPassword)

	protected := auth.Group("/")
	protected.Use(
		middleware.Protect(m.Auth),
		middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), m.Allow),
	)
	{
		protected.GET("/me", m.Handler.Me)
		protected.POST("/avatar", m.Handler.UploadAvatar)
	}
}
