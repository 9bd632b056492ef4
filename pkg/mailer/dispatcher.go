package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-project-tracker/config"
	tpl "github.com/oksasatya/go-project-tracker/pkg/mailer/templates"
)

// OTPMessage describes one code to deliver.
type OTPMessage struct {
	To        string
	Name      string
	Code      string
	Template  string // tpl.LoginOTP or tpl.ForgotPassword
	ExpiresAt time.Time
}

// Dispatcher delivers OTP codes to users.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg OTPMessage) error
}

// JSONPublisher is satisfied by helpers.RabbitPublisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Sender is satisfied by *Mailgun.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

func otpData(cfg *config.Config, msg OTPMessage) map[string]any {
	return tpl.NewOTPData(cfg, msg.Template, msg.Name, msg.To, msg.Code, time.Now(), msg.ExpiresAt)
}

// QueueDispatcher enqueues an EmailJob for cmd/email_worker.
type QueueDispatcher struct {
	Pub JSONPublisher
	Cfg *config.Config
}

func NewQueueDispatcher(pub JSONPublisher, cfg *config.Config) *QueueDispatcher {
	return &QueueDispatcher{Pub: pub, Cfg: cfg}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg OTPMessage) error {
	if d.Pub == nil {
		return errors.New("email queue not configured")
	}
	job := EmailJob{To: msg.To, Template: msg.Template, Data: otpData(d.Cfg, msg)}
	if err := d.Pub.PublishJSON(ctx, job); err != nil {
		return fmt.Errorf("enqueue %s email: %w", msg.Template, err)
	}
	return nil
}

// DirectDispatcher renders the template in-process and sends it right away.
type DirectDispatcher struct {
	Sender Sender
	Cfg    *config.Config
}

func NewDirectDispatcher(s Sender, cfg *config.Config) *DirectDispatcher {
	return &DirectDispatcher{Sender: s, Cfg: cfg}
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, msg OTPMessage) error {
	subject, text, html, err := tpl.Render(msg.Template, otpData(d.Cfg, msg))
	if err != nil {
		return err
	}
	if err := d.Sender.Send(ctx, msg.To, subject, text, html); err != nil {
		return fmt.Errorf("send %s email: %w", msg.Template, err)
	}
	return nil
}

// LogDispatcher only logs; used when MAIL_SEND_ENABLED=false.
// The code itself is never written to the log.
type LogDispatcher struct {
	Logger *logrus.Logger
}

func (d *LogDispatcher) Dispatch(_ context.Context, msg OTPMessage) error {
	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{
			"to":         msg.To,
			"template":   msg.Template,
			"expires_at": msg.ExpiresAt,
		}).Debug("mail sending disabled; otp not delivered")
	}
	return nil
}
