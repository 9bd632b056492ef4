package application

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	"github.com/oksasatya/go-project-tracker/internal/infrastructure/memory"
	"github.com/oksasatya/go-project-tracker/pkg/helpers"
	"github.com/oksasatya/go-project-tracker/pkg/mailer"
)

// captureMailer records dispatched codes instead of sending them.
type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.OTPMessage
	err  error
}

func (m *captureMailer) Dispatch(_ context.Context, msg mailer.OTPMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last(t *testing.T) mailer.OTPMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no otp dispatched")
	return m.sent[len(m.sent)-1]
}

type fakeAvatars struct {
	path, contentType string
}

func (f *fakeAvatars) Upload(_ context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.path, f.contentType = objectPath, contentType
	return "https://cdn.test/" + objectPath, nil
}

type fixture struct {
	users    *memory.UserRepository
	projects *memory.ProjectRepository
	mail     *captureMailer
	avatars  *fakeAvatars
	clock    *time.Time
	otp      *OTPService
	auth     *AuthService
	proj     *ProjectService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memory.NewUserRepository()
	projects := memory.NewProjectRepository()
	hasher := helpers.NewHasher(bcrypt.MinCost)
	mail := &captureMailer{}
	avatars := &fakeAvatars{}
	logger := helpers.NewNopLogger()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	otp := NewOTPService(users, hasher, mail, DefaultOTPTTL, logger)
	otp.now = func() time.Time { return now }

	return &fixture{
		users:    users,
		projects: projects,
		mail:     mail,
		avatars:  avatars,
		clock:    &now,
		otp:      otp,
		auth:     NewAuthService(users, helpers.NewJWTManager("test-secret", 72*time.Hour), hasher, otp, avatars, logger),
		proj:     NewProjectService(projects, users, nil, logger),
	}
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func (f *fixture) register(t *testing.T, email, password string, role entity.Role) *entity.User {
	t.Helper()
	res, err := f.auth.Register(context.Background(), RegisterInput{Email: email, Password: password, Role: string(role)})
	require.NoError(t, err)
	return res.User
}
