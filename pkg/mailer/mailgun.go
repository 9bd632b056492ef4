package mailer

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const mailgunTimeout = 10 * time.Second

// Mailgun sends transactional mail through one Mailgun domain.
type Mailgun struct {
	Domain string
	Sender string
	// Tags are attached to every message for Mailgun analytics.
	Tags []string

	client mg.Mailgun
}

func NewMailgun(domain, apiKey, sender string, tags ...string) *Mailgun {
	m := &Mailgun{Domain: domain, Sender: sender, Tags: tags}
	if domain != "" && apiKey != "" {
		m.client = mg.NewMailgun(domain, apiKey)
	}
	return m
}

// Configured reports whether the client and sender are set.
func (m *Mailgun) Configured() bool {
	return m != nil && m.client != nil && m.Sender != ""
}

// Send delivers one message; html is optional and text may be empty when html is set.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	if !m.Configured() {
		return fmt.Errorf("mailgun not configured")
	}
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	for _, t := range m.Tags {
		if err := msg.AddTag(t); err != nil {
			return fmt.Errorf("mailgun tag %q: %w", t, err)
		}
	}
	c, cancel := context.WithTimeout(ctx, mailgunTimeout)
	defer cancel()
	if _, _, err := m.client.Send(c, msg); err != nil {
		return fmt.Errorf("mailgun send to %s: %w", to, err)
	}
	return nil
}
