package report

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/http/authn"
	"github.com/NickArm/Invoice-System-sub001/internal/http/respond"
	"github.com/NickArm/Invoice-System-sub001/internal/report"
)

type Handler struct {
	svc *report.Service
}

func NewHandler(svc *report.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.send)
}

type sendRequest struct {
	From               string      `json:"from"`
	To                 string      `json:"to"`
	Type               report.Type `json:"type"`
	Recipient          string      `json:"recipient"`
	Message            string      `json:"message"`
	AttachmentIDs      []uuid.UUID `json:"attachment_ids"`
	IncludeAttachments bool        `json:"include_attachments"`
}

type sendResponse struct {
	Subject  string           `json:"subject"`
	Attached int              `json:"attached"`
	Summary  report.Summary   `json:"summary"`
	Totals   report.Formatted `json:"totals"`
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	from, err := time.Parse(time.DateOnly, req.From)
	if err != nil {
		respond.Error(w, r, apperror.NewValidationError("from", "must be a date formatted as "+time.DateOnly))
		return
	}

	to, err := time.Parse(time.DateOnly, req.To)
	if err != nil {
		respond.Error(w, r, apperror.NewValidationError("to", "must be a date formatted as "+time.DateOnly))
		return
	}

	out, err := h.svc.Send(r.Context(), report.Request{
		UserID:             authn.Principal(r).UserID,
		From:               from,
		To:                 to,
		Type:               req.Type,
		Recipient:          req.Recipient,
		Message:            req.Message,
		AttachmentIDs:      req.AttachmentIDs,
		IncludeAttachments: req.IncludeAttachments,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, sendResponse{
		Subject:  out.Subject,
		Attached: out.Attached,
		Summary:  out.Summary,
		Totals:   out.Summary.Format(),
	})
}
