// Package mailbox reads invoice attachments from a user's IMAP mailbox.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	DefaultPort    = 993
	DefaultFolder  = "INBOX"
	DefaultTimeout = 15 * time.Second
)

var (
	// ErrAuthFailed means the server rejected the credentials. It is never retried.
	ErrAuthFailed = errors.New("mailbox authentication failed")
	// ErrNoAttachment means the message carries no invoice-like attachment.
	ErrNoAttachment = errors.New("no invoice attachment")
)

// ConnectionError is a transient failure reaching or talking to the server.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mailbox connection to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ParseError means a fetched message could not be decoded.
type ParseError struct {
	UID uint32
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing message %d: %v", e.UID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Credentials is everything needed to open one user's mailbox.
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
	Folder   string
	// Since limits listing to messages received on or after this day.
	Since   time.Time
	Timeout time.Duration
}

func (c Credentials) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

func (c Credentials) folder() string {
	if c.Folder == "" {
		return DefaultFolder
	}

	return c.Folder
}

func (c Credentials) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}

	return c.Timeout
}

type MessageRef struct {
	UID uint32
	// MessageID is stable across runs; it falls back to the UID when the
	// message has no Message-ID header.
	MessageID string
	Subject   string
	From      string
	Date      time.Time
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

//go:generate mockgen -source=mailbox.go -destination=mailbox_mock.go -package=mailbox
type Dialer interface {
	Connect(ctx context.Context, creds Credentials) (Session, error)
}

// Session is an open, selected, read-only mailbox.
type Session interface {
	ListMessages(ctx context.Context) ([]MessageRef, error)
	FetchAttachment(ctx context.Context, ref MessageRef) (*Attachment, error)
	Close() error
}
