// Package notify mails the summary of a finished run.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"wenshu-pipeline/internal/components/telemetry"
	"wenshu-pipeline/internal/config"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("wenshu/notify")

// SendFunc delivers a message to `addr` (host:port), auth may be nil.
type SendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

func send(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

type Notifier struct {
	config config.NotifyConfig
	send   SendFunc
}

func NewNotifier(cfg config.NotifyConfig) Notifier {
	return Notifier{config: cfg, send: send}
}

// WithSend replaces the smtp delivery.
func (n Notifier) WithSend(fn SendFunc) Notifier {
	n.send = fn
	return n
}

func (n Notifier) Enabled() bool {
	return n.config.Enabled()
}

// Send mails `body` to every configured recipient, it does nothing when
// notifications are not configured.
func (n Notifier) Send(ctx context.Context, subject, body string) error {
	if !n.Enabled() {
		return nil
	}

	_, span := tracer.Start(ctx, "Send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Wenshu Pipeline <%s>", n.config.EmailAddress)
	mail.To = n.config.To
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", n.config.SmtpServer, n.config.SmtpPort)
	err := n.send(mail, addr, smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.SmtpServer))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = n.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
