package business

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/business"
	"github.com/NickArm/Invoice-System-sub001/internal/http/authn"
	"github.com/NickArm/Invoice-System-sub001/internal/http/respond"
)

type Handler struct {
	svc *business.Service
}

func NewHandler(svc *business.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type entityResponse struct {
	ID        uuid.UUID     `json:"id"`
	Kind      business.Kind `json:"kind"`
	Name      string        `json:"name"`
	TaxID     *string       `json:"tax_id,omitempty"`
	Email     string        `json:"email,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Address   string        `json:"address,omitempty"`
	City      string        `json:"city,omitempty"`
	Country   string        `json:"country,omitempty"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

func toResponse(e *business.Entity) entityResponse {
	return entityResponse{
		ID:        e.ID,
		Kind:      e.Kind,
		Name:      e.Name,
		TaxID:     e.TaxID,
		Email:     e.Email,
		Phone:     e.Phone,
		Address:   e.Address,
		City:      e.City,
		Country:   e.Country,
		Notes:     e.Notes,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req business.Params
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	e, err := h.svc.Create(r.Context(), authn.Principal(r).UserID, req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(e))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := business.ListFilter{
		OwnerID: authn.Principal(r).UserID,
		Search:  r.URL.Query().Get("q"),
	}

	if k := r.URL.Query().Get("kind"); k != "" {
		kind := business.Kind(k)
		if kind != business.KindCustomer && kind != business.KindSupplier && kind != business.KindBoth {
			respond.Error(w, r, apperror.NewValidationError("kind", "must be one of: customer supplier both"))
			return
		}

		filter.Kind = &kind
	}

	entities, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]entityResponse, len(entities))
	for i, e := range entities {
		resp[i] = toResponse(e)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	e, err := h.svc.Get(r.Context(), authn.Principal(r).UserID, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(e))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req business.Params
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	e, err := h.svc.Update(r.Context(), authn.Principal(r).UserID, id, req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(e))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), authn.Principal(r).UserID, id); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}
