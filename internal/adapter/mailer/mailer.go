// Package mailer sends operator notifications over SMTP.
package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// Email is one outgoing message.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email and returns the Message-ID it was sent with.
type Mailer interface {
	Send(ctx context.Context, email Email) (string, error)
}

// Config configures SMTP submission.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTP implements Mailer with STARTTLS submission and PLAIN auth.
type SMTP struct {
	cfg Config
}

// NewSMTP creates an SMTP mailer. From defaults to the username.
func NewSMTP(cfg Config) *SMTP {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTP{cfg: cfg}
}

// Send implements Mailer.
func (s *SMTP) Send(ctx context.Context, email Email) (string, error) {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return "", domain.ErrMailDisabled
	}

	msg, id, err := s.build(email)
	if err != nil {
		return "", err
	}

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(s.cfg.Timeout),
	)
	if err != nil {
		return "", fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("send mail: %w", err)
	}
	return id, nil
}

func (s *SMTP) build(email Email) (*mail.Msg, string, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, "", fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, "", fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(email.Subject)

	id := newMessageID(s.cfg.From)
	msg.SetMessageIDWithValue(id)
	msg.SetDate()

	switch {
	case email.Text != "" && email.HTML != "":
		msg.SetBodyString(mail.TypeTextPlain, email.Text)
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)
	case email.HTML != "":
		msg.SetBodyString(mail.TypeTextHTML, email.HTML)
	default:
		msg.SetBodyString(mail.TypeTextPlain, email.Text)
	}
	return msg, id, nil
}

// newMessageID returns an id in the sender's domain, without angle brackets.
func newMessageID(from string) string {
	domainPart := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domainPart = strings.Trim(from[at+1:], "> ")
	}
	return uuid.NewString() + "@" + domainPart
}
