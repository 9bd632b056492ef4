package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	repo "github.com/oksasatya/go-project-tracker/internal/domain/repository"
)

// Audit actions recorded for auth events.
const (
	AuditRegister        = "register"
	AuditLogin           = "login"
	AuditLoginFailed     = "login_failed"
	AuditOTPIssued       = "otp_issued"
	AuditOTPVerified     = "otp_verified"
	AuditSocialLogin     = "social_login"
	AuditPasswordChanged = "password_changed"
	AuditResetRequested  = "reset_requested"
	AuditResetConfirmed  = "reset_confirmed"
	AuditAvatarUpdated   = "avatar_updated"
)

// AuditTrail records auth events. A nil Repo only logs.
type AuditTrail struct {
	Repo   repo.AuditRepository
	Logger *logrus.Logger
}

func NewAuditTrail(r repo.AuditRepository, logger *logrus.Logger) *AuditTrail {
	return &AuditTrail{Repo: r, Logger: logger}
}

// Record never fails the request; store errors are logged.
func (a *AuditTrail) Record(ctx context.Context, e repo.AuditEntry) {
	if a == nil {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if a.Logger != nil {
		a.Logger.WithFields(logrus.Fields{
			"action":  e.Action,
			"user_id": e.UserID,
			"email":   e.Email,
			"ip":      e.IP,
		}).Info("auth event")
	}
	if a.Repo == nil {
		return
	}
	if err := a.Repo.Insert(ctx, e); err != nil && a.Logger != nil {
		a.Logger.WithError(err).WithField("action", e.Action).Warn("audit insert failed")
	}
}
