package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	repo "github.com/oksasatya/go-project-tracker/internal/domain/repository"
	"github.com/oksasatya/go-project-tracker/pkg/helpers"
)

const usernameAttempts = 5

// AvatarStore persists uploaded avatar images and returns their public URL.
type AvatarStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type AuthService struct {
	Users   repo.UserRepository
	Tokens  *helpers.JWTManager
	Hasher  *helpers.Hasher
	OTP     *OTPService
	Avatars AvatarStore
	Logger  *logrus.Logger
}

func NewAuthService(users repo.UserRepository, tokens *helpers.JWTManager, hasher *helpers.Hasher, otp *OTPService, avatars AvatarStore, logger *logrus.Logger) *AuthService {
	return &AuthService{Users: users, Tokens: tokens, Hasher: hasher, OTP: otp, Avatars: avatars, Logger: logger}
}

// AuthResult is a user plus a freshly issued session token.
type AuthResult struct {
	User      *entity.User
	Token     string
	ExpiresAt time.Time
}

type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
	Role     string
	Avatar   string
}

type SocialLoginInput struct {
	Email      string
	Name       string
	Avatar     string
	ProviderID string
	Provider   string
}

func (s *AuthService) issue(u *entity.User) (*AuthResult, error) {
	tok, exp, err := s.Tokens.Issue(u.ID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("issue token failed")
		}
		return nil, err
	}
	return &AuthResult{User: u, Token: tok, ExpiresAt: exp}, nil
}

// deriveUsername builds <email local part><4 digits>, retrying on collisions.
func (s *AuthService) deriveUsername(ctx context.Context, email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	for i := 0; i < usernameAttempts; i++ {
		suffix, err := helpers.GenUsernameSuffix()
		if err != nil {
			return "", err
		}
		candidate := local + suffix
		taken, err := s.Users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: could not derive a free username", ErrConflict)
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrBadRequest)
	}
	role := entity.RoleDeveloper
	if in.Role != "" {
		role = entity.Role(in.Role)
		if !role.Valid() {
			return nil, ErrInvalidRole
		}
	}

	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		derived, err := s.deriveUsername(ctx, email)
		if err != nil {
			return nil, err
		}
		username = derived
	} else {
		taken, err := s.Users.UsernameExists(ctx, username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = username
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Name:     name,
		Username: username,
		Email:    email,
		Password: hash,
		Role:     role,
		Avatar:   strings.TrimSpace(in.Avatar),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return s.issue(u)
}

// hashPassword rejects secrets past bcrypt's 72 byte input limit as bad input.
func (s *AuthService) hashPassword(plain string) (string, error) {
	hash, err := s.Hasher.Hash(plain)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	return hash, err
}

// Login resolves loginID against username or email.
func (s *AuthService) Login(ctx context.Context, loginID, password string) (*AuthResult, error) {
	u, err := s.Users.GetByLogin(ctx, strings.TrimSpace(loginID))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() || !s.Hasher.Compare(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

// LoginWithOTP sends a login code to the account registered under email.
func (s *AuthService) LoginWithOTP(ctx context.Context, email string) (*entity.User, error) {
	return s.OTP.Issue(ctx, email, entity.OTPLogin)
}

func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	u, err := s.OTP.Verify(ctx, email, code, entity.OTPLogin)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

// SocialLogin signs in (or registers) an account identified by a provider id.
// Accounts created here have no password.
func (s *AuthService) SocialLogin(ctx context.Context, in SocialLoginInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	providerID := strings.TrimSpace(in.ProviderID)
	if email == "" || providerID == "" || strings.TrimSpace(in.Provider) == "" {
		return nil, ErrMissingSocialData
	}
	provider := entity.Provider(strings.ToLower(strings.TrimSpace(in.Provider)))
	if !provider.Valid() {
		return nil, ErrUnknownProvider
	}

	u, err := s.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		username, derr := s.deriveUsername(ctx, email)
		if derr != nil {
			return nil, derr
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = username
		}
		u = &entity.User{
			Name:     name,
			Username: username,
			Email:    email,
			Role:     entity.RoleDeveloper,
			Avatar:   strings.TrimSpace(in.Avatar),
		}
		u.SetSocialID(provider, providerID)
		if err := s.Users.Create(ctx, u); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return nil, ErrUserExists
			}
			return nil, err
		}
	case err != nil:
		return nil, err
	case u.SocialID(provider) == "":
		u.SetSocialID(provider, providerID)
		if err := s.Users.Update(ctx, u); err != nil {
			return nil, err
		}
	}
	return s.issue(u)
}

func (s *AuthService) getByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.getByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.HasPassword() {
		return ErrNoPassword
	}
	if !s.Hasher.Compare(u.Password, oldPassword) {
		return ErrInvalidCredentials
	}
	if s.Hasher.Compare(u.Password, newPassword) {
		return ErrSamePassword
	}
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.Password = hash
	return s.Users.Update(ctx, u)
}

// ForgotPassword sends a reset code. Social-only accounts are refused.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*entity.User, error) {
	u, err := lookupByEmail(ctx, s.Users, email)
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() {
		return nil, ErrNoPassword
	}
	return u, s.OTP.IssueFor(ctx, u, entity.OTPReset)
}

// ResetPassword redeems a reset code and stores the new password in one write.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) (*entity.User, error) {
	u, err := lookupByEmail(ctx, s.Users, email)
	if err != nil {
		return nil, err
	}
	if err := s.OTP.Check(u, code, entity.OTPReset); err != nil {
		return nil, err
	}
	if s.Hasher.Compare(u.Password, newPassword) {
		return nil, ErrSamePassword
	}
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	u.Password = hash
	u.ClearOTP()
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*entity.User, error) {
	return s.Users.List(ctx)
}

// Authenticate resolves a session token to its (still existing) user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	uid, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	u, err := s.Users.GetByID(ctx, uid)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTokenUserGone
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UploadAvatar stores the image under avatars/<user>/<uuid><ext> and updates the profile.
func (s *AuthService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (*entity.User, error) {
	if s.Avatars == nil {
		return nil, errors.New("avatar storage not configured")
	}
	u, err := s.getByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, uuid.NewString()+ext))
	url, err := s.Avatars.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}
	u.Avatar = url
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
