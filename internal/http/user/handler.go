package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NickArm/Invoice-System-sub001/internal/http/authn"
	"github.com/NickArm/Invoice-System-sub001/internal/http/respond"
	"github.com/NickArm/Invoice-System-sub001/internal/user"
)

type Handler struct {
	svc *user.Service
}

func NewHandler(svc *user.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes serves the caller's own account.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.me)
	r.Patch("/", h.updateProfile)
	r.Put("/mailbox", h.updateMailbox)
}

// AdminRoutes manages every account.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/toggle-status", h.toggleStatus)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), authn.Principal(r).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(u))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req user.UpdateProfileParams
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), authn.Principal(r).UserID, req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(u))
}

func (h *Handler) updateMailbox(w http.ResponseWriter, r *http.Request) {
	var req user.MailboxParams
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	u, err := h.svc.UpdateMailbox(r.Context(), authn.Principal(r).UserID, req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(u))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(users))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req user.CreateParams
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	u, err := h.svc.Create(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, ToResponse(u))
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

func (h *Handler) toggleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	u, err := h.svc.ToggleStatus(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(u))
}
