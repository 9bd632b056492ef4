package application

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	"github.com/oksasatya/go-project-tracker/pkg/helpers"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.auth.Register(ctx, RegisterInput{Email: "A@B.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^a\d{4}$`), res.User.Username)
	assert.Equal(t, res.User.Username, res.User.Name)
	assert.Equal(t, "a@b.com", res.User.Email)
	assert.Equal(t, entity.RoleDeveloper, res.User.Role)
	assert.NotEqual(t, "secret123", res.User.Password)

	uid, err := f.auth.Tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, uid)

	_, err = f.auth.Register(ctx, RegisterInput{Email: "a@b.com", Password: "other123"})
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, "User already exists", Message(err))
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.auth.Register(ctx, RegisterInput{Email: "x@y.com", Password: "secret123", Role: "Project Manager"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = f.auth.Register(ctx, RegisterInput{Email: "x@y.com", Password: "secret123", Username: "taken"})
	require.NoError(t, err)
	_, err = f.auth.Register(ctx, RegisterInput{Email: "z@y.com", Password: "secret123", Username: "taken"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = f.auth.Register(ctx, RegisterInput{Email: " ", Password: "secret123"})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "dev@example.com", "secret123", entity.RoleDeveloper)

	for _, id := range []string{u.Username, u.Email} {
		res, err := f.auth.Login(ctx, id, "secret123")
		require.NoError(t, err, id)
		assert.Equal(t, u.ID, res.User.ID)
	}

	_, err := f.auth.Login(ctx, u.Email, "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLoginEmailIgnoresCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "Mixed@Example.com", "secret123", entity.RoleDeveloper)
	require.Equal(t, "mixed@example.com", u.Email)

	for _, id := range []string{"Mixed@Example.com", " MIXED@EXAMPLE.COM ", "mixed@example.com"} {
		res, err := f.auth.Login(ctx, id, "secret123")
		require.NoError(t, err, id)
		assert.Equal(t, u.ID, res.User.ID)
	}

	_, err := f.auth.Login(ctx, strings.ToUpper(u.Username), "secret123")
	assert.ErrorIs(t, err, ErrUserNotFound, "usernames match exactly")
}

func TestPasswordByteLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	long := strings.Repeat("é", 40) // 40 characters, 80 bytes

	_, err := f.auth.Register(ctx, RegisterInput{Email: "long@example.com", Password: long})
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Equal(t, "Password must be at most 72 bytes long", Message(err))

	u := f.register(t, "short@example.com", "secret123", entity.RoleDeveloper)
	assert.ErrorIs(t, f.auth.ChangePassword(ctx, u.ID, "secret123", long), ErrPasswordTooLong)

	_, err = f.auth.ForgotPassword(ctx, u.Email)
	require.NoError(t, err)
	code := f.mail.last(t).Code
	_, err = f.auth.ResetPassword(ctx, u.Email, code, long)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = f.auth.ResetPassword(ctx, u.Email, code, strings.Repeat("é", 36))
	assert.NoError(t, err, "72 bytes fits and the code was not spent")
}

func TestOTPDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "undelivered@example.com", "secret123", entity.RoleDeveloper)
	f.mail.err = errors.New("mailgun down")

	_, err := f.auth.LoginWithOTP(ctx, u.Email)
	assert.ErrorIs(t, err, ErrDelivery)

	_, err = f.auth.ForgotPassword(ctx, u.Email)
	assert.ErrorIs(t, err, ErrDelivery)

	stored, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasOTP(), "undelivered codes are cleared")
	assert.Empty(t, stored.OTPHash)
}

func TestOTPLoginRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "otp@example.com", "secret123", entity.RoleDeveloper)

	_, err := f.auth.LoginWithOTP(ctx, "OTP@example.com")
	require.NoError(t, err)
	code := f.mail.last(t).Code

	_, err = f.auth.VerifyOTP(ctx, u.Email, wrongCode(code))
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	res, err := f.auth.VerifyOTP(ctx, u.Email, code)
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)

	_, err = f.auth.VerifyOTP(ctx, u.Email, code)
	assert.ErrorIs(t, err, ErrInvalidOrExpired, "code is single use")
}

func TestOTPLoginExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "late@example.com", "secret123", entity.RoleDeveloper)

	_, err := f.auth.LoginWithOTP(ctx, u.Email)
	require.NoError(t, err)
	code := f.mail.last(t).Code

	f.advance(10*time.Minute + time.Second)
	_, err = f.auth.VerifyOTP(ctx, u.Email, code)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestOTPLoginUnknownEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.LoginWithOTP(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSocialLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.auth.SocialLogin(ctx, SocialLoginInput{Email: "s@example.com", Provider: "google"})
	assert.ErrorIs(t, err, ErrMissingSocialData)
	_, err = f.auth.SocialLogin(ctx, SocialLoginInput{Email: "s@example.com", ProviderID: "1", Provider: "myspace"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	res, err := f.auth.SocialLogin(ctx, SocialLoginInput{Email: "s@example.com", ProviderID: "g-1", Provider: "Google", Name: "Sam"})
	require.NoError(t, err)
	assert.Equal(t, "Sam", res.User.Name)
	assert.Equal(t, "g-1", res.User.SocialID(entity.ProviderGoogle))
	assert.False(t, res.User.HasPassword())
	assert.True(t, strings.HasPrefix(res.User.Username, "s"))

	again, err := f.auth.SocialLogin(ctx, SocialLoginInput{Email: "s@example.com", ProviderID: "gh-9", Provider: "github"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)

	stored, err := f.users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "g-1", stored.SocialID(entity.ProviderGoogle))
	assert.Equal(t, "gh-9", stored.SocialID(entity.ProviderGithub))

	// social-only accounts have no password to change or reset
	err = f.auth.ChangePassword(ctx, stored.ID, "", "newsecret")
	assert.ErrorIs(t, err, ErrNoPassword)
	_, err = f.auth.ForgotPassword(ctx, stored.Email)
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "cp@example.com", "secret123", entity.RoleDeveloper)

	assert.ErrorIs(t, f.auth.ChangePassword(ctx, "missing", "secret123", "x123456"), ErrUserNotFound)
	assert.ErrorIs(t, f.auth.ChangePassword(ctx, u.ID, "nope123", "x123456"), ErrInvalidCredentials)
	assert.ErrorIs(t, f.auth.ChangePassword(ctx, u.ID, "secret123", "secret123"), ErrSamePassword)

	require.NoError(t, f.auth.ChangePassword(ctx, u.ID, "secret123", "brandnew1"))
	_, err := f.auth.Login(ctx, u.Email, "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, u.Email, "brandnew1")
	assert.NoError(t, err)
}

func TestForgotResetRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "fr@example.com", "secret123", entity.RoleDeveloper)

	_, err := f.auth.ForgotPassword(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.auth.ForgotPassword(ctx, u.Email)
	require.NoError(t, err)
	msg := f.mail.last(t)
	assert.Equal(t, "forgot_password", msg.Template)

	stored, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, msg.Code, stored.OTPHash, "otp stored hashed")

	_, err = f.auth.ResetPassword(ctx, u.Email, msg.Code, "secret123")
	assert.ErrorIs(t, err, ErrSamePassword)

	_, err = f.auth.ResetPassword(ctx, u.Email, wrongCode(msg.Code), "brandnew1")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	_, err = f.auth.ResetPassword(ctx, u.Email, msg.Code, "brandnew1")
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, u.Email, "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, u.Email, "brandnew1")
	assert.NoError(t, err)

	_, err = f.auth.ResetPassword(ctx, u.Email, msg.Code, "another12")
	assert.ErrorIs(t, err, ErrInvalidOrExpired, "reset code is single use")
}

func TestOTPPurposesDoNotMix(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "mix@example.com", "secret123", entity.RoleDeveloper)

	_, err := f.auth.LoginWithOTP(ctx, u.Email)
	require.NoError(t, err)
	loginCode := f.mail.last(t).Code
	_, err = f.auth.ResetPassword(ctx, u.Email, loginCode, "brandnew1")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	_, err = f.auth.ForgotPassword(ctx, u.Email)
	require.NoError(t, err)
	resetCode := f.mail.last(t).Code
	_, err = f.auth.VerifyOTP(ctx, u.Email, resetCode)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "tok@example.com", "secret123", entity.RoleDeveloper)
	tok, _, err := f.auth.Tokens.Issue(u.ID)
	require.NoError(t, err)

	got, err := f.auth.Authenticate(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.auth.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	ghost, _, err := f.auth.Tokens.Issue("ghost-id")
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, ErrTokenUserGone)

	expired := helpers.NewJWTManager("test-secret", -time.Minute)
	old, _, err := expired.Issue(u.ID)
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, old)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUploadAvatar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "pic@example.com", "secret123", entity.RoleDeveloper)

	updated, err := f.auth.UploadAvatar(ctx, u.ID, strings.NewReader("png-bytes"), "Me.PNG", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(f.avatars.path, "avatars/"+u.ID+"/"))
	assert.True(t, strings.HasSuffix(f.avatars.path, ".png"))
	assert.Equal(t, "https://cdn.test/"+f.avatars.path, updated.Avatar)

	stored, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Avatar, stored.Avatar)
}

func TestUserViewHidesSecrets(t *testing.T) {
	u := &entity.User{ID: "1", Email: "a@b.com", Password: "hash", OTPHash: "otp"}
	b, err := json.Marshal(NewUserView(u))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"email":"a@b.com"`)
	assert.NotContains(t, string(b), "hash")
	assert.NotContains(t, string(b), "otp")
	assert.Nil(t, NewUserView(nil))
}

// wrongCode returns a different valid-looking 6-digit code.
func wrongCode(code string) string {
	if code == "100000" {
		return "100001"
	}
	return "100000"
}
