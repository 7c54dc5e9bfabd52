package mailbox

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// MaxAttachmentSize bounds how much of a single part is read into memory.
const MaxAttachmentSize = 25 << 20

// FirstAttachment walks a raw RFC 5322 message and returns the first part
// accepted by accept. Inline parts count when they carry a filename, since
// some clients send PDFs inline. A nil accept takes the first attachment.
func FirstAttachment(r io.Reader, accept func(contentType string) bool) (*Attachment, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading message: %w", err)
	}
	defer mr.Close()

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, ErrNoAttachment
		}

		if err != nil {
			return nil, fmt.Errorf("reading part: %w", err)
		}

		var filename, contentType string

		switch h := p.Header.(type) {
		case *mail.AttachmentHeader:
			filename, _ = h.Filename()
			contentType, _, _ = h.ContentType()
		case *mail.InlineHeader:
			ct, params, _ := h.ContentType()
			if params["name"] == "" {
				continue
			}

			filename, contentType = params["name"], ct
		default:
			continue
		}

		contentType = strings.ToLower(contentType)
		if accept != nil && !accept(contentType) {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(p.Body, MaxAttachmentSize+1))
		if err != nil {
			return nil, fmt.Errorf("reading attachment %q: %w", filename, err)
		}

		if len(data) > MaxAttachmentSize {
			return nil, fmt.Errorf("attachment %q exceeds %d bytes", filename, MaxAttachmentSize)
		}

		return &Attachment{
			Filename:    baseName(filename),
			ContentType: contentType,
			Data:        data,
		}, nil
	}
}

func baseName(filename string) string {
	if filename == "" {
		return ""
	}

	return path.Base(strings.ReplaceAll(filename, "\\", "/"))
}
