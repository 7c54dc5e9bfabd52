package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/NickArm/Invoice-System-sub001/internal/encoding"
	"github.com/NickArm/Invoice-System-sub001/internal/money"
	"github.com/NickArm/Invoice-System-sub001/internal/retry"
)

// maxPromptText keeps long OCR output within the model context.
const maxPromptText = 24000

//go:generate mockgen -source=service.go -destination=extract_mock.go -package=extract

// Completer is the part of *openai.Client the extractor needs.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OCR reads the text of a PDF or image.
type OCR interface {
	Text(ctx context.Context, doc Document) (string, error)
}

type Config struct {
	Model       string
	Temperature float32
	MaxRetries  int
	// RetryDelay is the first backoff between attempts.
	RetryDelay time.Duration
}

type Service struct {
	completer Completer
	ocr       OCR
	cfg       Config
	log       *slog.Logger
}

// NewService builds an extractor. ocr may be nil, in which case images are
// sent to the model directly and PDFs are rejected.
func NewService(completer Completer, ocr OCR, cfg Config) *Service {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	return &Service{
		completer: completer,
		ocr:       ocr,
		cfg:       cfg,
		log:       slog.With("component", "extract"),
	}
}

func (s *Service) Extract(ctx context.Context, doc Document) (*Fields, error) {
	const op = "Extract"

	mediaType := mediaType(doc.ContentType)

	msg, err := s.userMessage(ctx, mediaType, doc)
	if err != nil {
		return nil, &ExtractionError{Op: op, Filename: doc.Filename, Err: err}
	}

	var fields *Fields

	err = retry.Do(ctx, func(ctx context.Context) error {
		var err error
		fields, err = s.complete(ctx, msg)

		return err
	}, retry.Options{MaxAttempts: s.cfg.MaxRetries, InitialDelay: s.cfg.RetryDelay})
	if err != nil {
		return nil, &ExtractionError{Op: op, Filename: doc.Filename, Err: err}
	}

	s.log.Debug("extracted invoice",
		"filename", doc.Filename,
		"number", fields.Number,
		"issuer_tax_id", fields.Issuer.TaxID,
		"gross", money.Format(fields.GrossAmount),
	)

	return fields, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}

	return mt
}

func (s *Service) userMessage(ctx context.Context, mediaType string, doc Document) (openai.ChatCompletionMessage, error) {
	switch {
	case mediaType == "application/xml" || mediaType == "text/xml" || mediaType == "text/plain":
		text, err := encoding.ToUTF8(doc.Data)
		if err != nil {
			return openai.ChatCompletionMessage{}, err
		}

		return textMessage(text)
	case mediaType == "application/pdf" || strings.HasPrefix(mediaType, "image/"):
		if s.ocr == nil {
			if mediaType == "application/pdf" {
				return openai.ChatCompletionMessage{}, fmt.Errorf("%w: pdf needs OCR", ErrUnsupported)
			}

			return imageMessage(mediaType, doc.Data), nil
		}

		text, err := s.ocr.Text(ctx, doc)
		if err != nil {
			return openai.ChatCompletionMessage{}, fmt.Errorf("ocr: %w", err)
		}

		return textMessage(text)
	default:
		return openai.ChatCompletionMessage{}, fmt.Errorf("%w: %s", ErrUnsupported, mediaType)
	}
}

func textMessage(text string) (openai.ChatCompletionMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return openai.ChatCompletionMessage{}, ErrNoText
	}

	if len(text) > maxPromptText {
		text = strings.ToValidUTF8(text[:maxPromptText], "")
	}

	return openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: "Invoice text:\n\n" + text,
	}, nil
}

func imageMessage(mediaType string, data []byte) openai.ChatCompletionMessage {
	url := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)

	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: "Extract the fields of this invoice."},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: url}},
		},
	}
}

func (s *Service) complete(ctx context.Context, msg openai.ChatCompletionMessage) (*Fields, error) {
	resp, err := s.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			msg,
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		MaxTokens:      1000,
	})
	if err != nil {
		if isPermanent(err) {
			return nil, retry.Permanent(err)
		}

		s.log.Warn("completion request failed", "error", err)

		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrBadResponse)
	}

	fields, err := parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		s.log.Warn("unusable completion", "error", err)

		if errors.Is(err, ErrMissingField) {
			// The model read the document and found nothing; asking again rarely helps.
			return nil, retry.Permanent(err)
		}

		return nil, err
	}

	return fields, nil
}

func isPermanent(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest, http.StatusNotFound:
			return true
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusUnauthorized || reqErr.HTTPStatusCode == http.StatusForbidden
	}

	return false
}

type response struct {
	IssuerName     string `json:"issuer_name"`
	IssuerTaxID    string `json:"issuer_tax_id"`
	RecipientName  string `json:"recipient_name"`
	RecipientTaxID string `json:"recipient_tax_id"`
	InvoiceNumber  string `json:"invoice_number"`
	IssueDate      string `json:"issue_date"`
	DueDate        string `json:"due_date"`
	NetAmount      any    `json:"net_amount"`
	VATAmount      any    `json:"vat_amount"`
	GrossAmount    any    `json:"gross_amount"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
}

func parseResponse(content string) (*Fields, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")

	var r response
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	gross, err := amount(r.GrossAmount)
	if err != nil {
		return nil, fmt.Errorf("gross_amount: %w", err)
	}

	if gross == 0 {
		return nil, fmt.Errorf("%w: gross_amount", ErrMissingField)
	}

	issued, err := parseDate(r.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("issue_date: %w", err)
	}

	if issued.IsZero() {
		return nil, fmt.Errorf("%w: issue_date", ErrMissingField)
	}

	f := &Fields{
		Issuer:      Party{Name: strings.TrimSpace(r.IssuerName), TaxID: strings.TrimSpace(r.IssuerTaxID)},
		Recipient:   Party{Name: strings.TrimSpace(r.RecipientName), TaxID: strings.TrimSpace(r.RecipientTaxID)},
		Number:      strings.TrimSpace(r.InvoiceNumber),
		IssueDate:   issued,
		GrossAmount: gross,
		Currency:    strings.ToUpper(strings.TrimSpace(r.Currency)),
		Description: strings.TrimSpace(r.Description),
	}

	if f.Currency == "" || len(f.Currency) != 3 {
		f.Currency = "EUR"
	}

	if due, err := parseDate(r.DueDate); err == nil && !due.IsZero() && !due.Before(issued) {
		f.DueDate = &due
	}

	// Totals are kept consistent as net + vat = gross, trusting gross.
	net, _ := amount(r.NetAmount)
	vat, _ := amount(r.VATAmount)

	switch {
	case net == 0 && vat == 0:
		net = gross
	case net == 0:
		net = gross - vat
	default:
		vat = gross - net
	}

	f.NetAmount, f.VATAmount = net, vat

	return f, nil
}

// amount reads a JSON string or number as cents.
func amount(v any) (int64, error) {
	switch a := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return money.FromFloat(a), nil
	case string:
		if strings.TrimSpace(a) == "" {
			return 0, nil
		}

		return money.Parse(a)
	default:
		return 0, fmt.Errorf("%w: amount of type %T", ErrBadResponse, v)
	}
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006", "02.01.2006"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return time.Time{}, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: unrecognised date %q", ErrBadResponse, s)
}

const systemPrompt = `You read invoices and return their fields as a single JSON object.

Fields:
- issuer_name: legal name of the company that issued the invoice
- issuer_tax_id: tax / VAT id of the issuer, digits and letters only
- recipient_name: legal name of the buyer
- recipient_tax_id: tax / VAT id of the buyer
- invoice_number: the invoice number or series + number
- issue_date: YYYY-MM-DD
- due_date: YYYY-MM-DD or null
- net_amount: amount before VAT, as a string like "100.00"
- vat_amount: VAT amount, as a string
- gross_amount: total payable, as a string
- currency: ISO 4217 code, EUR when not shown
- description: one short line on what was billed

Use null for anything not present on the document. Do not guess tax ids.
Return only the JSON object.`
