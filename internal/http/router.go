package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authHandler "github.com/NickArm/Invoice-System-sub001/internal/http/auth"
	"github.com/NickArm/Invoice-System-sub001/internal/http/authn"
	businessHandler "github.com/NickArm/Invoice-System-sub001/internal/http/business"
	categoryHandler "github.com/NickArm/Invoice-System-sub001/internal/http/category"
	ingestHandler "github.com/NickArm/Invoice-System-sub001/internal/http/ingest"
	invoiceHandler "github.com/NickArm/Invoice-System-sub001/internal/http/invoice"
	matchingHandler "github.com/NickArm/Invoice-System-sub001/internal/http/matching"
	reportHandler "github.com/NickArm/Invoice-System-sub001/internal/http/report"
	"github.com/NickArm/Invoice-System-sub001/internal/http/respond"
	userHandler "github.com/NickArm/Invoice-System-sub001/internal/http/user"
)

type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
	Tokens         authn.Tokens
	Users          authn.Users
}

type Handlers struct {
	Auth     *authHandler.Handler
	Users    *userHandler.Handler
	Business *businessHandler.Handler
	Category *categoryHandler.Handler
	Invoices *invoiceHandler.Handler
	Matching *matchingHandler.Handler
	Reports  *reportHandler.Handler
	Ingest   *ingestHandler.Handler
}

func New(opts Options, h Handlers) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Auth.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.Middleware(opts.Tokens, opts.Users))

			r.Group(func(r chi.Router) {
				if opts.Timeout > 0 {
					r.Use(middleware.Timeout(opts.Timeout))
				}

				r.Route("/me", func(r chi.Router) {
					r.Use(middleware.AllowContentType("application/json"))
					h.Users.Routes(r)
				})

				r.Route("/business-entities", func(r chi.Router) {
					r.Use(middleware.AllowContentType("application/json"))
					h.Business.Routes(r)
				})

				r.Route("/categories", func(r chi.Router) {
					r.Use(middleware.AllowContentType("application/json"))
					h.Category.Routes(r)
				})

				r.Route("/invoices", h.Invoices.Routes)
				r.Route("/attachments", h.Invoices.AttachmentRoutes)
				r.Route("/matching", h.Matching.Routes)

				r.Route("/reports", func(r chi.Router) {
					r.Use(middleware.AllowContentType("application/json"))
					h.Reports.Routes(r)
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(authn.RequireAdmin)

				r.Route("/users", func(r chi.Router) {
					r.Use(middleware.AllowContentType("application/json"))
					h.Users.AdminRoutes(r)
				})

				// Mailbox runs can outlast the request timeout.
				r.Route("/ingest", h.Ingest.Routes)
			})
		})
	})

	return router
}
