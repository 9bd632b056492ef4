package entity

import (
	"time"
)

// OTPPurpose tells which flow an outstanding one-time code belongs to.
type OTPPurpose string

const (
	OTPLogin OTPPurpose = "login"
	OTPReset OTPPurpose = "reset"
)

// User is the aggregate root for the account domain.
// Password and OTPHash hold bcrypt hashes. Password is empty for
// accounts created through social login only.
type User struct {
	ID               string
	Name             string
	Username         string
	Email            string
	Password         string
	Role             Role
	Avatar           string
	TwoFactorEnabled bool

	// OTP fields are either all zero or all set.
	OTPHash    string
	OTPExpires time.Time
	OTPPurpose OTPPurpose

	SocialIDs map[Provider]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool { return u.Password != "" }

// HasOTP reports whether a one-time code is outstanding.
func (u *User) HasOTP() bool { return u.OTPHash != "" && !u.OTPExpires.IsZero() }

// SetOTP records a hashed code that expires at exp.
func (u *User) SetOTP(hash string, exp time.Time, purpose OTPPurpose) {
	u.OTPHash = hash
	u.OTPExpires = exp
	u.OTPPurpose = purpose
}

// ClearOTP unsets every OTP field.
func (u *User) ClearOTP() {
	u.OTPHash = ""
	u.OTPExpires = time.Time{}
	u.OTPPurpose = ""
}

// SocialID returns the external id recorded for provider p.
func (u *User) SocialID(p Provider) string {
	if u.SocialIDs == nil {
		return ""
	}
	return u.SocialIDs[p]
}

func (u *User) SetSocialID(p Provider, id string) {
	if u.SocialIDs == nil {
		u.SocialIDs = map[Provider]string{}
	}
	u.SocialIDs[p] = id
}
