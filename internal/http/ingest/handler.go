package ingest

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/http/respond"
	"github.com/NickArm/Invoice-System-sub001/internal/ingest"
	"github.com/NickArm/Invoice-System-sub001/internal/user"
)

type Runner interface {
	Run(ctx context.Context, filter ingest.Filter) ([]ingest.Result, error)
}

type Users interface {
	Lookup(ctx context.Context, ref string) (*user.User, error)
}

type Handler struct {
	job   Runner
	users Users
}

func NewHandler(job Runner, users Users) *Handler {
	return &Handler{job: job, users: users}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.run)
}

type resultResponse struct {
	UserID        uuid.UUID       `json:"user_id"`
	Email         string          `json:"email"`
	Success       bool            `json:"success"`
	Processed     int             `json:"processed"`
	Skipped       int             `json:"skipped"`
	TotalMessages int             `json:"total_messages"`
	Errors        []string        `json:"errors,omitempty"`
	Review        []ingest.Review `json:"review,omitempty"`
	Message       string          `json:"message,omitempty"`
}

func toResponse(res ingest.Result) resultResponse {
	switch r := res.(type) {
	case *ingest.Completed:
		return resultResponse{
			UserID:        r.UserID,
			Email:         r.Email,
			Success:       true,
			Processed:     r.Processed,
			Skipped:       r.Skipped,
			TotalMessages: r.TotalMessages,
			Errors:        r.Errors,
			Review:        r.Review,
		}
	case *ingest.Failed:
		return resultResponse{UserID: r.UserID, Email: r.Email, Message: r.Message}
	default:
		return resultResponse{UserID: res.Owner(), Success: res.Success()}
	}
}

// run ingests every enabled mailbox, or only ?user=<uuid|email>.
func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	var filter ingest.Filter

	if ref := r.URL.Query().Get("user"); ref != "" {
		u, err := h.users.Lookup(r.Context(), ref)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		filter.UserID = &u.ID
	}

	results, err := h.job.Run(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]resultResponse, len(results))
	for i, res := range results {
		resp[i] = toResponse(res)
	}

	respond.JSON(w, http.StatusOK, resp)
}
