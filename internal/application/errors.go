package application

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Handlers map these to HTTP statuses with errors.Is.
var (
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOrExpired   = errors.New("invalid or expired OTP")
	ErrDelivery           = errors.New("failed to send OTP email")
)

var (
	ErrUserNotFound        = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrUserExists          = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrUsernameTaken       = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrPasswordTooLong     = fmt.Errorf("%w: password must be at most 72 bytes long", ErrBadRequest)
	ErrSamePassword        = fmt.Errorf("%w: new password must be different from the old one", ErrConflict)
	ErrNoPassword          = fmt.Errorf("%w: account uses social login and has no password", ErrForbidden)
	ErrMissingSocialData   = fmt.Errorf("%w: missing social login data", ErrBadRequest)
	ErrUnknownProvider     = fmt.Errorf("%w: unsupported social provider", ErrBadRequest)
	ErrInvalidRole         = fmt.Errorf("%w: invalid role", ErrBadRequest)
	ErrProjectNotFound     = fmt.Errorf("%w: project not found", ErrNotFound)
	ErrProjectNameTaken    = fmt.Errorf("%w: project with this name already exists", ErrConflict)
	ErrProjectNameTooShort = fmt.Errorf("%w: project name must be at least %d characters", ErrBadRequest, ProjectNameMin)
	ErrProjectNameTooLong  = fmt.Errorf("%w: project name must be at most %d characters", ErrBadRequest, ProjectNameMax)
	ErrInvalidStatus       = fmt.Errorf("%w: invalid project status", ErrBadRequest)
	ErrInvalidMembers      = fmt.Errorf("%w: one or more members do not exist", ErrBadRequest)
	ErrInvalidDates        = fmt.Errorf("%w: end date must not be before start date", ErrBadRequest)
	ErrNewOwnerNotFound    = fmt.Errorf("%w: new owner not found", ErrNotFound)
	ErrNotProjectOwner     = fmt.Errorf("%w: not allowed to modify this project", ErrForbidden)
	ErrTokenUserGone       = fmt.Errorf("%w: user not found, invalid token", ErrUnauthorized)
)

// Message returns the human-readable part of a wrapped kind error,
// e.g. "User already exists" for ErrUserExists.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, kind := range []error{ErrBadRequest, ErrConflict, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrInvalidCredentials, ErrInvalidOrExpired, ErrDelivery} {
		if rest, ok := strings.CutPrefix(msg, kind.Error()+": "); ok {
			msg = rest
			break
		}
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
