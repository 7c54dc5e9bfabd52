package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/auth"
	"github.com/NickArm/Invoice-System-sub001/internal/http/respond"
	userHandler "github.com/NickArm/Invoice-System-sub001/internal/http/user"
	"github.com/NickArm/Invoice-System-sub001/internal/user"
)

type Handler struct {
	users  *user.Service
	tokens *auth.TokenService
}

func NewHandler(users *user.Service, tokens *auth.TokenService) *Handler {
	return &Handler{users: users, tokens: tokens}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.login)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
	User      userHandler.Response `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := apperror.Validate(req); err != nil {
		respond.Error(w, r, err)
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      userHandler.ToResponse(u),
	})
}
