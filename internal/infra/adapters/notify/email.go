package notify

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"ai-image-studio/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*EmailNotifier)(nil)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends plain text mail over SMTP.
type EmailNotifier struct {
	from   string
	sender mailSender
}

func NewEmailNotifier(host string, port int, username, password, from string) (*EmailNotifier, error) {
	if host == "" || from == "" {
		return nil, errors.New("email: host and from are required")
	}
	return &EmailNotifier{from: from, sender: gomail.NewDialer(host, port, username, password)}, nil
}

func (e *EmailNotifier) Notify(ctx context.Context, to string, n adapter.Notification) error {
	if to == "" {
		return errors.New("email: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", n.Body)
	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}
