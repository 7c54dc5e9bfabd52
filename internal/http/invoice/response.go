package invoice

import (
	"time"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
	"github.com/NickArm/Invoice-System-sub001/internal/money"
)

type Response struct {
	ID               uuid.UUID      `json:"id"`
	BusinessEntityID uuid.UUID      `json:"business_entity_id"`
	BusinessName     string         `json:"business_name,omitempty"`
	CategoryID       *uuid.UUID     `json:"category_id,omitempty"`
	Number           string         `json:"number"`
	IssueDate        string         `json:"issue_date"`
	DueDate          *string        `json:"due_date,omitempty"`
	NetAmount        int64          `json:"net_amount"`
	VATAmount        int64          `json:"vat_amount"`
	GrossAmount      int64          `json:"gross_amount"`
	Gross            string         `json:"gross"`
	Currency         string         `json:"currency"`
	Status           invoice.Status `json:"status"`
	Type             invoice.Type   `json:"type"`
	Source           invoice.Source `json:"source"`
	Description      string         `json:"description,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`
}

// ToResponse renders amounts both in cents and as a decimal string.
func ToResponse(inv *invoice.Invoice) Response {
	resp := Response{
		ID:               inv.ID,
		BusinessEntityID: inv.BusinessEntityID,
		BusinessName:     inv.BusinessName,
		CategoryID:       inv.CategoryID,
		Number:           inv.Number,
		IssueDate:        inv.IssueDate.Format(time.DateOnly),
		NetAmount:        inv.NetAmount,
		VATAmount:        inv.VATAmount,
		GrossAmount:      inv.GrossAmount,
		Gross:            money.Format(inv.GrossAmount),
		Currency:         inv.Currency,
		Status:           inv.Status,
		Type:             inv.Type,
		Source:           inv.Source,
		Description:      inv.Description,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}

	if inv.DueDate != nil {
		resp.DueDate = new(inv.DueDate.Format(time.DateOnly))
	}

	return resp
}

func ToResponseList(invoices []*invoice.Invoice) []Response {
	resp := make([]Response, len(invoices))
	for i, inv := range invoices {
		resp[i] = ToResponse(inv)
	}

	return resp
}

type attachmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	InvoiceID   *uuid.UUID `json:"invoice_id,omitempty"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	SHA256      string     `json:"sha256"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toAttachmentResponse(a *invoice.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:          a.ID,
		InvoiceID:   a.InvoiceID,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Size:        a.Size,
		SHA256:      a.SHA256,
		CreatedAt:   a.CreatedAt,
	}
}

func toAttachmentList(attachments []*invoice.Attachment) []attachmentResponse {
	resp := make([]attachmentResponse, len(attachments))
	for i, a := range attachments {
		resp[i] = toAttachmentResponse(a)
	}

	return resp
}
