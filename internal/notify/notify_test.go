package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"wenshu-pipeline/internal/config"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

type sent struct {
	mail *email.Email
	addr string
	auth smtp.Auth
}

func testConfig() config.NotifyConfig {
	return config.NotifyConfig{
		SmtpServer:   "smtp.example.com",
		SmtpPort:     587,
		EmailAddress: "bot@example.com",
		Password:     "secret",
		To:           []string{"ops@example.com"},
	}
}

func TestSend(t *testing.T) {
	var calls []sent
	n := NewNotifier(testConfig()).WithSend(func(mail *email.Email, addr string, auth smtp.Auth) error {
		calls = append(calls, sent{mail, addr, auth})
		return nil
	})

	err := n.Send(context.Background(), "wenshu: download-parse", "complete: 3")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.Equal(t, "smtp.example.com:587", calls[0].addr)
	require.NotNil(t, calls[0].auth)
	require.Equal(t, []string{"ops@example.com"}, calls[0].mail.To)
	require.Equal(t, "Wenshu Pipeline <bot@example.com>", calls[0].mail.From)
	require.Equal(t, "complete: 3", string(calls[0].mail.Text))
}

func TestSendWithoutAuth(t *testing.T) {
	var calls []sent
	n := NewNotifier(testConfig()).WithSend(func(mail *email.Email, addr string, auth smtp.Auth) error {
		calls = append(calls, sent{mail, addr, auth})
		if auth != nil {
			return errors.New("smtp: server doesn't support AUTH")
		}
		return nil
	})

	require.NoError(t, n.Send(context.Background(), "subject", "body"))
	require.Len(t, calls, 2)
	require.Nil(t, calls[1].auth)
}

func TestSendFailure(t *testing.T) {
	n := NewNotifier(testConfig()).WithSend(func(*email.Email, string, smtp.Auth) error {
		return errors.New("connection refused")
	})
	err := n.Send(context.Background(), "subject", "body")
	require.ErrorContains(t, err, "connection refused")
}

func TestDisabled(t *testing.T) {
	called := false
	n := NewNotifier(config.NotifyConfig{SmtpPort: 587}).WithSend(func(*email.Email, string, smtp.Auth) error {
		called = true
		return nil
	})
	require.False(t, n.Enabled())
	require.NoError(t, n.Send(context.Background(), "subject", "body"))
	require.False(t, called)
}
