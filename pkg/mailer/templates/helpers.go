package templates

import (
	"time"

	"github.com/oksasatya/go-project-tracker/config"
)

const (
	sentLayout   = "02 January 2006, 15:04"
	expiryLayout = "02 January 2006, 15:04 MST"
)

// NewOTPData builds the EmailJob.Data map for an OTP email. Keys match the
// template fields and survive the JSON trip through the queue.
func NewOTPData(cfg *config.Config, purpose, name, email, code string, sentAt, expiresAt time.Time) map[string]any {
	d := map[string]any{
		"Type":          purpose,
		"Name":          name,
		"Email":         email,
		"Code":          code,
		"Time":          sentAt.UTC().Format(sentLayout),
		"ExpiresAtText": expiresAt.UTC().Format(expiryLayout),
		"ExpiresInMin":  minutesBetween(sentAt, expiresAt),
		"AppName":       "",
		"CompanyName":   "",
		"SupportURL":    "",
	}
	if cfg != nil {
		d["AppName"] = cfg.AppName
		d["CompanyName"] = cfg.CompanyName
		d["SupportURL"] = cfg.SupportURL
	}
	return d
}

// minutesBetween rounds to whole minutes; zero when already expired.
func minutesBetween(from, to time.Time) int {
	m := int(to.Sub(from).Round(time.Minute).Minutes())
	if m < 0 {
		return 0
	}
	return m
}
