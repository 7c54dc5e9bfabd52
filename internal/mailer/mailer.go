// Package mailer delivers outbound email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wneessen/go-mail"
)

var ErrNoRecipient = errors.New("no recipient")

type Message struct {
	To       string
	Subject  string
	HTMLBody string
	// Attachment is optional.
	Attachment *Attachment
}

// Attachment is read when the message is written to the SMTP session.
type Attachment struct {
	Name    string
	Content io.ReadSeeker
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLS is one of "mandatory", "opportunistic" or "none".
	TLS string
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPMailer struct {
	from   string
	client sender
}

func New(cfg Config) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLS)),
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}

	return &SMTPMailer{from: cfg.From, client: client}, nil
}

func tlsPolicy(s string) mail.TLSPolicy {
	switch strings.ToLower(s) {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	built, err := m.build(msg)
	if err != nil {
		return err
	}

	if err := m.client.DialAndSendWithContext(ctx, built); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}

	return nil
}

func (m *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, ErrNoRecipient
	}

	out := mail.NewMsg()

	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("setting sender: %w", err)
	}

	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("setting recipient: %w", err)
	}

	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)

	if a := msg.Attachment; a != nil {
		out.AttachReadSeeker(a.Name, a.Content)
	}

	return out, nil
}
