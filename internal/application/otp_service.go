package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	repo "github.com/oksasatya/go-project-tracker/internal/domain/repository"
	"github.com/oksasatya/go-project-tracker/pkg/helpers"
	"github.com/oksasatya/go-project-tracker/pkg/mailer"
	tpl "github.com/oksasatya/go-project-tracker/pkg/mailer/templates"
)

// DefaultOTPTTL is how long an issued code stays valid.
const DefaultOTPTTL = 10 * time.Minute

// OTPService issues, stores (hashed) and redeems one-time codes.
type OTPService struct {
	Users  repo.UserRepository
	Hasher *helpers.Hasher
	Mailer mailer.Dispatcher
	TTL    time.Duration
	Logger *logrus.Logger

	now func() time.Time
}

func NewOTPService(users repo.UserRepository, hasher *helpers.Hasher, m mailer.Dispatcher, ttl time.Duration, logger *logrus.Logger) *OTPService {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &OTPService{Users: users, Hasher: hasher, Mailer: m, TTL: ttl, Logger: logger, now: time.Now}
}

func (s *OTPService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// Generate returns a 6-digit code in [100000, 999999].
func (s *OTPService) Generate() (string, error) {
	return helpers.GenOTPCode()
}

func templateFor(purpose entity.OTPPurpose) string {
	if purpose == entity.OTPReset {
		return tpl.ForgotPassword
	}
	return tpl.LoginOTP
}

// Issue looks the user up by email and sends them a fresh code.
func (s *OTPService) Issue(ctx context.Context, email string, purpose entity.OTPPurpose) (*entity.User, error) {
	u, err := lookupByEmail(ctx, s.Users, email)
	if err != nil {
		return nil, err
	}
	return u, s.IssueFor(ctx, u, purpose)
}

// IssueFor replaces any outstanding code of u, persists its hash and dispatches it.
// When dispatch fails the stored code is cleared again.
func (s *OTPService) IssueFor(ctx context.Context, u *entity.User, purpose entity.OTPPurpose) error {
	code, err := s.Generate()
	if err != nil {
		return err
	}
	hash, err := s.Hasher.Hash(code)
	if err != nil {
		return err
	}
	exp := s.clock().Add(s.TTL)
	u.SetOTP(hash, exp, purpose)
	if err := s.Users.Update(ctx, u); err != nil {
		return err
	}

	msg := mailer.OTPMessage{To: u.Email, Name: u.Name, Code: code, Template: templateFor(purpose), ExpiresAt: exp}
	if err := s.Mailer.Dispatch(ctx, msg); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("otp dispatch failed")
		}
		u.ClearOTP()
		if uerr := s.Users.Update(ctx, u); uerr != nil && s.Logger != nil {
			s.Logger.WithError(uerr).WithField("user_id", u.ID).Warn("failed to clear undelivered otp")
		}
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// Check validates code against the outstanding OTP of u without consuming it.
func (s *OTPService) Check(u *entity.User, code string, purpose entity.OTPPurpose) error {
	if !u.HasOTP() || u.OTPPurpose != purpose {
		return ErrInvalidOrExpired
	}
	if s.clock().After(u.OTPExpires) {
		return ErrInvalidOrExpired
	}
	if !s.Hasher.Compare(u.OTPHash, strings.TrimSpace(code)) {
		return ErrInvalidOrExpired
	}
	return nil
}

// Verify redeems a code: on success the OTP fields are cleared so it can not be reused.
func (s *OTPService) Verify(ctx context.Context, email, code string, purpose entity.OTPPurpose) (*entity.User, error) {
	u, err := lookupByEmail(ctx, s.Users, email)
	if err != nil {
		return nil, err
	}
	if err := s.Check(u, code, purpose); err != nil {
		return nil, err
	}
	u.ClearOTP()
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func lookupByEmail(ctx context.Context, users repo.UserRepository, email string) (*entity.User, error) {
	u, err := users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
