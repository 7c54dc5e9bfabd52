package invoice

import (
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/http/authn"
	"github.com/NickArm/Invoice-System-sub001/internal/http/respond"
	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
)

// MaxUploadSize bounds multipart uploads.
const MaxUploadSize = 25 << 20

// Files opens stored attachment bytes.
type Files interface {
	Open(path string) (afero.File, error)
}

type Handler struct {
	svc   *invoice.Service
	files Files
}

func NewHandler(svc *invoice.Service, files Files) *Handler {
	return &Handler{svc: svc, files: files}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/attachments", h.listAttachments)
	r.Post("/{id}/attachments", h.attach)
}

func (h *Handler) AttachmentRoutes(r chi.Router) {
	r.Post("/", h.upload)
	r.Get("/{id}", h.getAttachment)
	r.Get("/{id}/preview", h.preview)
}

type createInvoiceRequest struct {
	BusinessEntityID uuid.UUID      `json:"business_entity_id"`
	CategoryID       *uuid.UUID     `json:"category_id"`
	Number           string         `json:"number"`
	IssueDate        time.Time      `json:"issue_date"`
	DueDate          *time.Time     `json:"due_date"`
	NetAmount        int64          `json:"net_amount"`
	VATAmount        int64          `json:"vat_amount"`
	GrossAmount      int64          `json:"gross_amount"`
	Currency         string         `json:"currency"`
	Status           invoice.Status `json:"status"`
	Type             invoice.Type   `json:"type"`
	Description      string         `json:"description"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	inv, err := h.svc.Create(r.Context(), invoice.CreateParams{
		UserID:           authn.Principal(r).UserID,
		BusinessEntityID: req.BusinessEntityID,
		CategoryID:       req.CategoryID,
		Number:           req.Number,
		IssueDate:        req.IssueDate,
		DueDate:          req.DueDate,
		NetAmount:        req.NetAmount,
		VATAmount:        req.VATAmount,
		GrossAmount:      req.GrossAmount,
		Currency:         req.Currency,
		Status:           req.Status,
		Type:             req.Type,
		Source:           invoice.SourceManual,
		Description:      req.Description,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, ToResponse(inv))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	invoices, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponseList(invoices))
}

func listFilter(r *http.Request) (invoice.ListFilter, error) {
	q := r.URL.Query()
	filter := invoice.ListFilter{UserID: authn.Principal(r).UserID}

	if s := q.Get("status"); s != "" {
		switch status := invoice.Status(s); status {
		case invoice.StatusDraft, invoice.StatusPending, invoice.StatusPaid, invoice.StatusCancelled:
			filter.Status = &status
		default:
			return filter, apperror.NewValidationError("status", "must be one of: draft pending paid cancelled")
		}
	}

	if s := q.Get("type"); s != "" {
		switch typ := invoice.Type(s); typ {
		case invoice.TypeIncome, invoice.TypeExpense:
			filter.Type = &typ
		default:
			return filter, apperror.NewValidationError("type", "must be one of: income expense")
		}
	}

	var err error

	if filter.EntityID, err = respond.QueryID(r, "business_entity_id"); err != nil {
		return filter, err
	}

	if filter.CategoryID, err = respond.QueryID(r, "category_id"); err != nil {
		return filter, err
	}

	if filter.From, err = respond.QueryDate(r, "from"); err != nil {
		return filter, err
	}

	if filter.To, err = respond.QueryDate(r, "to"); err != nil {
		return filter, err
	}

	return filter, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	inv, err := h.svc.Get(r.Context(), authn.Principal(r).UserID, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(inv))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req invoice.UpdateParams
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	inv, err := h.svc.Update(r.Context(), authn.Principal(r).UserID, id, req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(inv))
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

func (h *Handler) listAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	owner := authn.Principal(r).UserID

	if _, err := h.svc.Get(r.Context(), owner, id); err != nil {
		respond.Error(w, r, err)
		return
	}

	attachments, err := h.svc.ListAttachments(r.Context(), invoice.AttachmentFilter{UserID: owner, InvoiceID: &id})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toAttachmentList(attachments))
}

func (h *Handler) attach(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.store(w, r, &id)
}

// upload stores a document that is not yet linked to an invoice.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	h.store(w, r, nil)
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request, invoiceID *uuid.UUID) {
	up, err := readUpload(w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	a, err := h.svc.Attach(r.Context(), authn.Principal(r).UserID, invoiceID, up)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toAttachmentResponse(a))
}

func readUpload(w http.ResponseWriter, r *http.Request) (invoice.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1<<20)

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return invoice.Upload{}, respond.BadRequest("failed to parse form: %v", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return invoice.Upload{}, apperror.NewValidationError("file", "is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return invoice.Upload{}, respond.BadRequest("reading file: %v", err)
	}

	if len(data) > MaxUploadSize {
		return invoice.Upload{}, apperror.NewValidationError("file", "must be at most 25 MiB")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return invoice.Upload{
		Filename:    path.Base(header.Filename),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (h *Handler) getAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	a, err := h.svc.GetAttachment(r.Context(), authn.Principal(r).UserID, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toAttachmentResponse(a))
}

// preview streams the document inline. Attachments of other users are
// reported as missing.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	a, err := h.svc.GetAttachment(r.Context(), authn.Principal(r).UserID, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	f, err := h.files.Open(a.Path)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": a.Filename}))

	http.ServeContent(w, r, a.Filename, a.CreatedAt, f)
}
