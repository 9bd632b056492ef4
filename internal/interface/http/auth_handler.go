package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-project-tracker/internal/application"
	repo "github.com/oksasatya/go-project-tracker/internal/domain/repository"
	"github.com/oksasatya/go-project-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-project-tracker/pkg/response"
)

const maxAvatarBytes = 5 << 20

type AuthHandler struct {
	Svc    *application.AuthService
	Audit  *application.AuditTrail
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.AuthService, audit *application.AuditTrail, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Audit: audit, Logger: logger}
}

func (h *AuthHandler) audit(c *gin.Context, userID, email, action string, metadata map[string]any) {
	h.Audit.Record(c.Request.Context(), repo.AuditEntry{
		UserID:    userID,
		Email:     email,
		Action:    action,
		IP:        middleware.ClientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Metadata:  metadata,
	})
}

type registerRequest struct {
	Name     string `json:"name" binding:"omitempty,max=100"`
	Username string `json:"username" binding:"omitempty,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Role     string `json:"role" binding:"omitempty,role"`
	Avatar   string `json:"avatar" binding:"omitempty,url"`
}

type loginRequest struct {
	LoginID  string `json:"loginId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,otp"`
}

// socialLoginRequest has no required tags; missing fields are reported
// as "Missing social login data" by the service.
type socialLoginRequest struct {
	Email      string `json:"email" binding:"omitempty,email"`
	Name       string `json:"name" binding:"omitempty,max=100"`
	Avatar     string `json:"avatar" binding:"omitempty,url"`
	ProviderID string `json:"providerId"`
	Provider   string `json:"provider"`
}

type changePasswordRequest struct {
	UserID      string `json:"userId" binding:"required"`
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,pwd"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required,otp"`
	NewPassword string `json:"newPassword" binding:"required,pwd"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Avatar:   req.Avatar,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.audit(c, res.User.ID, res.User.Email, application.AuditRegister, nil)
	response.Authenticated(c, http.StatusCreated, application.NewUserView(res.User), res.Token, "User registered successfully")
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.LoginID, req.Password)
	if err != nil {
		h.audit(c, "", req.LoginID, application.AuditLoginFailed, map[string]any{"reason": application.Message(err)})
		writeError(c, h.Logger, err, http.StatusBadRequest)
		return
	}
	h.audit(c, res.User.ID, res.User.Email, application.AuditLogin, map[string]any{"method": "password"})
	response.Authenticated(c, http.StatusOK, application.NewUserView(res.User), res.Token, "Login successful")
}

// Users GET /api/auth/users
func (h *AuthHandler) Users(c *gin.Context) {
	users, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.List(c, application.NewUserViews(users), "Users fetched successfully")
}

// LoginOTP POST /api/auth/login/otp
func (h *AuthHandler) LoginOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.Svc.LoginWithOTP(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.Logger, err, http.StatusBadRequest)
		return
	}
	h.audit(c, u.ID, u.Email, application.AuditOTPIssued, map[string]any{"purpose": "login"})
	response.Success[any](c, http.StatusOK, nil, "OTP sent to your email", nil)
}

// VerifyOTP POST /api/auth/login/otp/verify
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Svc.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(c, h.Logger, err, http.StatusBadRequest)
		return
	}
	h.audit(c, res.User.ID, res.User.Email, application.AuditOTPVerified, nil)
	response.Authenticated(c, http.StatusOK, application.NewUserView(res.User), res.Token, "Login successful")
}

// SocialLogin POST /api/auth/social-login
func (h *AuthHandler) SocialLogin(c *gin.Context) {
	var req socialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Svc.SocialLogin(c.Request.Context(), application.SocialLoginInput{
		Email:      req.Email,
		Name:       req.Name,
		Avatar:     req.Avatar,
		ProviderID: req.ProviderID,
		Provider:   req.Provider,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.audit(c, res.User.ID, res.User.Email, application.AuditSocialLogin, map[string]any{"provider": strings.ToLower(req.Provider)})
	response.Authenticated(c, http.StatusOK, application.NewUserView(res.User), res.Token, "Login successful")
}

// ChangePassword POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), req.UserID, req.OldPassword, req.NewPassword); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.audit(c, req.UserID, "", application.AuditPasswordChanged, nil)
	response.Success[any](c, http.StatusOK, nil, "Password changed successfully", nil)
}

// ForgotPassword POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.Svc.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.audit(c, u.ID, u.Email, application.AuditResetRequested, nil)
	response.Success[any](c, http.StatusOK, nil, "OTP sent to your email", nil)
}

// ResetPassword POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.Svc.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.audit(c, u.ID, u.Email, application.AuditResetConfirmed, nil)
	response.Success[any](c, http.StatusOK, nil, "Password reset successfully", nil)
}

// Me GET /api/auth/me (protected)
func (h *AuthHandler) Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "Not authorized, user missing", nil)
		return
	}
	response.Success(c, http.StatusOK, application.NewUserView(u), "Profile", nil)
}

// UploadAvatar POST /api/auth/avatar (protected, multipart field "avatar")
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "Not authorized, user missing", nil)
		return
	}
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "Avatar file is required", nil)
		return
	}
	if fh.Size > maxAvatarBytes {
		response.Error[any](c, http.StatusBadRequest, "Avatar must be at most 5MB", nil)
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error[any](c, http.StatusBadRequest, "Avatar must be an image", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	defer func() { _ = f.Close() }()

	updated, err := h.Svc.UploadAvatar(c.Request.Context(), u.ID, f, fh.Filename, contentType)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.audit(c, updated.ID, updated.Email, application.AuditAvatarUpdated, map[string]any{"avatar": updated.Avatar})
	response.Success(c, http.StatusOK, application.NewUserView(updated), "Avatar updated", nil)
}
