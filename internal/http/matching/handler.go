package matching

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/http/authn"
	invoiceHandler "github.com/NickArm/Invoice-System-sub001/internal/http/invoice"
	"github.com/NickArm/Invoice-System-sub001/internal/http/respond"
	"github.com/NickArm/Invoice-System-sub001/internal/matching"
	"github.com/NickArm/Invoice-System-sub001/internal/money"
)

type Handler struct {
	svc *matching.Service
}

func NewHandler(svc *matching.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.match)
}

type entityRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	TaxID *string   `json:"tax_id,omitempty"`
}

type matchResponse struct {
	Kind     matching.Kind             `json:"kind"`
	Entity   entityRef                 `json:"entity"`
	Invoices []invoiceHandler.Response `json:"invoices"`
}

// match answers ?tax_id=&date=YYYY-MM-DD&amount=1234.56.
func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	date, err := time.Parse(time.DateOnly, q.Get("date"))
	if err != nil {
		respond.Error(w, r, apperror.NewValidationError("date", "must be a date formatted as "+time.DateOnly))
		return
	}

	amount, err := money.Parse(q.Get("amount"))
	if err != nil {
		respond.Error(w, r, apperror.NewValidationError("amount", "must be a decimal amount"))
		return
	}

	res, err := h.svc.Match(r.Context(), matching.Query{
		OwnerID:   authn.Principal(r).UserID,
		TaxID:     q.Get("tax_id"),
		IssueDate: date,
		Gross:     amount,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, matchResponse{
		Kind:     res.Kind,
		Entity:   entityRef{ID: res.Entity.ID, Name: res.Entity.Name, TaxID: res.Entity.TaxID},
		Invoices: invoiceHandler.ToResponseList(res.Invoices),
	})
}
