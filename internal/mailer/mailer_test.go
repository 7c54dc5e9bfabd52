package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type recordingSender struct {
	sent []*mail.Msg
	err  error
}

func (r *recordingSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	r.sent = append(r.sent, messages...)
	return r.err
}

func TestSend_WithAttachment(t *testing.T) {
	rec := &recordingSender{}
	m := &SMTPMailer{from: "reports@example.com", client: rec}

	err := m.Send(context.Background(), Message{
		To:         "accountant@example.com",
		Subject:    "Invoice report",
		HTMLBody:   "<p>Net: 10.00</p>",
		Attachment: &Attachment{Name: "invoices.zip", Content: bytes.NewReader([]byte("PK\x03\x04"))},
	})
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)

	msg := rec.sent[0]
	assert.Equal(t, []string{"Invoice report"}, msg.GetGenHeader(mail.HeaderSubject))

	to, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"accountant@example.com"}, to)

	attachments := msg.GetAttachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, "invoices.zip", attachments[0].Name)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
	assert.Contains(t, buf.String(), `filename="invoices.zip"`)
}

func TestSend_NoAttachment(t *testing.T) {
	rec := &recordingSender{}
	m := &SMTPMailer{from: "reports@example.com", client: rec}

	require.NoError(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "s", HTMLBody: "<p/>"}))
	assert.Empty(t, rec.sent[0].GetAttachments())
}

func TestSend_Errors(t *testing.T) {
	m := &SMTPMailer{from: "reports@example.com", client: &recordingSender{err: errors.New("421 try later")}}

	err := m.Send(context.Background(), Message{To: "a@example.com"})
	assert.ErrorContains(t, err, "421 try later")

	err = m.Send(context.Background(), Message{To: " "})
	assert.ErrorIs(t, err, ErrNoRecipient)

	err = m.Send(context.Background(), Message{To: "not an address"})
	assert.ErrorContains(t, err, "recipient")
}

func TestTLSPolicy(t *testing.T) {
	assert.Equal(t, mail.TLSMandatory, tlsPolicy("MANDATORY"))
	assert.Equal(t, mail.NoTLS, tlsPolicy("none"))
	assert.Equal(t, mail.TLSOpportunistic, tlsPolicy(""))
}

func TestNew(t *testing.T) {
	m, err := New(Config{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "x@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "x@example.com", m.from)
}
