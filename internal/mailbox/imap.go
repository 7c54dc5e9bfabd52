package mailbox

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// IMAPDialer opens sessions over implicit TLS (IMAPS).
type IMAPDialer struct {
	// Accept filters attachment content types. Nil takes any attachment.
	Accept func(contentType string) bool
	// TLSConfig overrides the default; ServerName is filled from the host.
	TLSConfig *tls.Config
}

func NewIMAPDialer(accept func(contentType string) bool) *IMAPDialer {
	return &IMAPDialer{Accept: accept}
}

// ctxDialer lets the blocking go-imap dial honour the caller's context.
type ctxDialer struct {
	ctx context.Context
	d   *net.Dialer
}

func (c ctxDialer) Dial(network, addr string) (net.Conn, error) {
	return c.d.DialContext(c.ctx, network, addr)
}

func (d *IMAPDialer) Connect(ctx context.Context, creds Credentials) (Session, error) {
	addr := creds.Addr()
	timeout := creds.timeout()

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if d.TLSConfig != nil {
		tlsConfig = d.TLSConfig.Clone()
	}

	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = creds.Host
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := client.DialWithDialerTLS(ctxDialer{ctx: dialCtx, d: &net.Dialer{Timeout: timeout}}, addr, tlsConfig)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	c.Timeout = timeout

	if err := c.Login(creds.Username, creds.Password); err != nil {
		_ = c.Logout()

		if isNetworkError(err) {
			return nil, &ConnectionError{Addr: addr, Err: err}
		}

		return nil, fmt.Errorf("%w: %s: %v", ErrAuthFailed, creds.Username, err)
	}

	status, err := c.Select(creds.folder(), true)
	if err != nil {
		_ = c.Logout()
		return nil, &ConnectionError{Addr: addr, Err: fmt.Errorf("selecting %s: %w", creds.folder(), err)}
	}

	return &imapSession{
		c:           c,
		addr:        addr,
		creds:       creds,
		uidValidity: status.UidValidity,
		accept:      d.Accept,
	}, nil
}

func isNetworkError(err error) bool {
	var netErr net.Error

	return errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

type imapSession struct {
	c           *client.Client
	addr        string
	creds       Credentials
	uidValidity uint32
	accept      func(string) bool
}

// watch tears the connection down if ctx ends while a command is in flight.
func (s *imapSession) watch(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		_ = s.c.Terminate()
	})
}

func (s *imapSession) ListMessages(ctx context.Context) ([]MessageRef, error) {
	defer s.watch(ctx)()

	criteria := imap.NewSearchCriteria()
	if !s.creds.Since.IsZero() {
		criteria.Since = s.creds.Since
	}

	uids, err := s.c.UidSearch(criteria)
	if err != nil {
		return nil, s.commandError(ctx, "searching", err)
	}

	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)

	go func() {
		done <- s.c.UidFetch(seqset, []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope}, messages)
	}()

	refs := make([]MessageRef, 0, len(uids))

	for msg := range messages {
		refs = append(refs, s.toRef(msg))
	}

	if err := <-done; err != nil {
		return nil, s.commandError(ctx, "fetching envelopes", err)
	}

	slices.SortFunc(refs, func(a, b MessageRef) int { return cmp.Compare(a.UID, b.UID) })

	return refs, nil
}

func (s *imapSession) toRef(msg *imap.Message) MessageRef {
	ref := MessageRef{UID: msg.Uid}

	if env := msg.Envelope; env != nil {
		ref.MessageID = env.MessageId
		ref.Subject = env.Subject
		ref.Date = env.Date

		if len(env.From) > 0 && env.From[0] != nil {
			ref.From = env.From[0].Address()
		}
	}

	if ref.MessageID == "" {
		ref.MessageID = fmt.Sprintf("uid:%d:%d@%s", s.uidValidity, msg.Uid, s.creds.Host)
	}

	return ref
}

func (s *imapSession) FetchAttachment(ctx context.Context, ref MessageRef) (*Attachment, error) {
	defer s.watch(ctx)()

	seqset := new(imap.SeqSet)
	seqset.AddNum(ref.UID)

	// PEEK keeps the \Seen flag untouched.
	section := &imap.BodySectionName{Peek: true}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.c.UidFetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var body imap.Literal

	for msg := range messages {
		if body == nil {
			body = msg.GetBody(section)
		}
	}

	if err := <-done; err != nil {
		return nil, s.commandError(ctx, "fetching body", err)
	}

	if body == nil {
		return nil, &ParseError{UID: ref.UID, Err: errors.New("server returned no body")}
	}

	att, err := FirstAttachment(body, s.accept)
	if err != nil {
		if errors.Is(err, ErrNoAttachment) {
			return nil, err
		}

		return nil, &ParseError{UID: ref.UID, Err: err}
	}

	return att, nil
}

func (s *imapSession) commandError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}

	return &ConnectionError{Addr: s.addr, Err: fmt.Errorf("%s: %w", op, err)}
}

func (s *imapSession) Close() error {
	if err := s.c.Logout(); err != nil && !errors.Is(err, client.ErrAlreadyLoggedOut) {
		slog.Debug("mailbox logout", "addr", s.addr, "error", err)
		return s.c.Terminate()
	}

	return nil
}
