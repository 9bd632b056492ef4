package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-project-tracker/pkg/mailer"
	mailtpl "github.com/oksasatya/go-project-tracker/pkg/mailer/templates"
)

type fakeSender struct {
	to, subject, text, html string
	err                     error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	f.to, f.subject, f.text, f.html = to, subject, text, html
	return f.err
}

func jobBody(t *testing.T, job mailer.EmailJob) []byte {
	t.Helper()
	b, err := json.Marshal(job)
	require.NoError(t, err)
	return b
}

func TestProcessRendersTemplate(t *testing.T) {
	s := &fakeSender{}
	body := jobBody(t, mailer.EmailJob{
		To:       "ada@example.com",
		Template: "LOGIN_OTP",
		Data:     map[string]any{"Name": "Ada", "Code": "123456"},
	})

	require.NoError(t, process(context.Background(), s, body))
	assert.Equal(t, "ada@example.com", s.to)
	assert.NotEmpty(t, s.subject)
	assert.Contains(t, s.text, "123456")
	assert.Contains(t, s.html, "123456")
}

func TestProcessRawMessage(t *testing.T) {
	s := &fakeSender{}
	body := jobBody(t, mailer.EmailJob{To: "ada@example.com", Subject: "Hi", Text: "hello"})

	require.NoError(t, process(context.Background(), s, body))
	assert.Equal(t, "Hi", s.subject)
	assert.Equal(t, "hello", s.text)
}

func TestProcessPermanentFailures(t *testing.T) {
	s := &fakeSender{}
	cases := map[string][]byte{
		"bad json":         []byte("{"),
		"no recipient":     jobBody(t, mailer.EmailJob{Subject: "x", Text: "y"}),
		"unknown template": jobBody(t, mailer.EmailJob{To: "a@b.com", Template: "nope"}),
		"empty":            jobBody(t, mailer.EmailJob{To: "a@b.com"}),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			err := process(context.Background(), s, body)
			assert.ErrorIs(t, err, errPermanent)
		})
	}
}

func TestProcessSendFailureIsRetryable(t *testing.T) {
	s := &fakeSender{err: errors.New("mailgun down")}
	body := jobBody(t, mailer.EmailJob{To: "a@b.com", Template: mailtpl.ForgotPassword, Data: map[string]any{"Code": "654321"}})

	err := process(context.Background(), s, body)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errPermanent)
}
