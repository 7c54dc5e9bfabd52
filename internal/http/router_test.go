package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/NickArm/Invoice-System-sub001/internal/auth"
	"github.com/NickArm/Invoice-System-sub001/internal/business"
	"github.com/NickArm/Invoice-System-sub001/internal/category"
	"github.com/NickArm/Invoice-System-sub001/internal/filestore"
	apihttp "github.com/NickArm/Invoice-System-sub001/internal/http"
	authHandler "github.com/NickArm/Invoice-System-sub001/internal/http/auth"
	businessHandler "github.com/NickArm/Invoice-System-sub001/internal/http/business"
	categoryHandler "github.com/NickArm/Invoice-System-sub001/internal/http/category"
	ingestHandler "github.com/NickArm/Invoice-System-sub001/internal/http/ingest"
	invoiceHandler "github.com/NickArm/Invoice-System-sub001/internal/http/invoice"
	matchingHandler "github.com/NickArm/Invoice-System-sub001/internal/http/matching"
	reportHandler "github.com/NickArm/Invoice-System-sub001/internal/http/report"
	userHandler "github.com/NickArm/Invoice-System-sub001/internal/http/user"
	"github.com/NickArm/Invoice-System-sub001/internal/ingest"
	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
	"github.com/NickArm/Invoice-System-sub001/internal/matching"
	"github.com/NickArm/Invoice-System-sub001/internal/report"
	"github.com/NickArm/Invoice-System-sub001/internal/user"
)

type fakeJob struct {
	filter ingest.Filter
}

func (f *fakeJob) Run(_ context.Context, filter ingest.Filter) ([]ingest.Result, error) {
	f.filter = filter

	return []ingest.Result{
		&ingest.Completed{UserID: uuid.New(), Email: "a@example.com", Processed: 2, TotalMessages: 3, Skipped: 1},
		&ingest.Failed{UserID: uuid.New(), Email: "b@example.com", Message: "mailbox authentication failed"},
	}, nil
}

type server struct {
	handler  http.Handler
	tokens   *auth.TokenService
	users    *user.MockRepository
	entities *business.MockRepository
	invoices *invoice.MockRepository
	matching *matching.MockRepository
	files    *filestore.Store
	mailer   *report.MockMailer
	job      *fakeJob
}

func newServer(t *testing.T) *server {
	ctrl := gomock.NewController(t)

	s := &server{
		tokens:   auth.NewTokenService("test-secret", time.Hour),
		users:    user.NewMockRepository(ctrl),
		entities: business.NewMockRepository(ctrl),
		invoices: invoice.NewMockRepository(ctrl),
		matching: matching.NewMockRepository(ctrl),
		files:    filestore.New(afero.NewMemMapFs()),
		mailer:   report.NewMockMailer(ctrl),
		job:      &fakeJob{},
	}

	var (
		userService     = user.NewService(s.users)
		businessService = business.NewService(s.entities)
		categoryService = category.NewService(category.NewMockRepository(ctrl))
		invoiceService  = invoice.NewService(s.invoices, s.files)
		matchingService = matching.NewService(s.matching, matching.DefaultTolerance)
		reportService   = report.NewService(invoiceService, s.files, s.mailer, afero.NewMemMapFs())
	)

	s.handler = apihttp.New(
		apihttp.Options{
			AllowedOrigins: []string{"http://localhost:5173"},
			Timeout:        5 * time.Second,
			Tokens:         s.tokens,
			Users:          userService,
		},
		apihttp.Handlers{
			Auth:     authHandler.NewHandler(userService, s.tokens),
			Users:    userHandler.NewHandler(userService),
			Business: businessHandler.NewHandler(businessService),
			Category: categoryHandler.NewHandler(categoryService),
			Invoices: invoiceHandler.NewHandler(invoiceService, s.files),
			Matching: matchingHandler.NewHandler(matchingService),
			Reports:  reportHandler.NewHandler(reportService),
			Ingest:   ingestHandler.NewHandler(s.job, userService),
		},
	)

	return s
}

// login makes u the caller of subsequent requests carrying the returned token.
func (s *server) login(t *testing.T, u *user.User) string {
	token, _, err := s.tokens.Issue(u.ID, string(u.Role))
	require.NoError(t, err)

	s.users.EXPECT().GetUser(gomock.Any(), u.ID).Return(u, nil).AnyTimes()

	return token
}

func (s *server) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	return rec
}

func (s *server) doJSON(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		return s.do(t, method, target, token, &buf, "application/json")
	}

	return s.do(t, method, target, token, nil, "")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

func member() *user.User {
	return &user.User{ID: uuid.New(), Email: "ann@example.com", Name: "Ann", Role: user.RoleUser, IsActive: true}
}

func admin() *user.User {
	return &user.User{ID: uuid.New(), Email: "root@example.com", Name: "Root", Role: user.RoleAdmin, IsActive: true}
}

func TestRouter_Healthz(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_Login(t *testing.T) {
	s := newServer(t)

	hash, err := auth.HashPassword("password1")
	require.NoError(t, err)

	u := member()
	u.PasswordHash = hash
	u.Mailbox = user.Mailbox{Enabled: true, Host: "imap.example.com", Password: "mailbox-secret"}

	s.users.EXPECT().GetUserByEmail(gomock.Any(), "ann@example.com").Return(u, nil).Times(2)

	type testCase struct {
		name       string
		body       map[string]string
		wantStatus int
	}

	tests := []testCase{
		{name: "Success", body: map[string]string{"email": "Ann@example.com", "password": "password1"}, wantStatus: http.StatusOK},
		{name: "WrongPassword", body: map[string]string{"email": "ann@example.com", "password": "nope"}, wantStatus: http.StatusUnauthorized},
		{name: "MissingPassword", body: map[string]string{"email": "ann@example.com"}, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus != http.StatusOK {
				return
			}

			assert.NotContains(t, rec.Body.String(), "mailbox-secret")
			assert.NotContains(t, rec.Body.String(), hash)

			resp := decode[map[string]any](t, rec)
			claims, err := s.tokens.Parse(resp["token"].(string))
			require.NoError(t, err)
			assert.Equal(t, u.ID, claims.UserID)
		})
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newServer(t)

	for _, target := range []string{"/api/v1/me", "/api/v1/invoices", "/api/v1/admin/users"} {
		rec := s.do(t, http.MethodGet, target, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestRouter_AdminOnly(t *testing.T) {
	s := newServer(t)
	token := s.login(t, member())

	rec := s.do(t, http.MethodGet, "/api/v1/admin/users", token, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/ingest", token, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_AdminCannotDeleteSelf(t *testing.T) {
	s := newServer(t)
	a := admin()
	token := s.login(t, a)

	rec := s.do(t, http.MethodDelete, "/api/v1/admin/users/"+a.ID.String(), token, nil, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot delete your own account")
}

func TestRouter_ToggleAdminStatusRefused(t *testing.T) {
	s := newServer(t)
	a := admin()
	other := admin()
	token := s.login(t, a)

	s.users.EXPECT().GetUser(gomock.Any(), other.ID).Return(other, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/admin/users/"+other.ID.String()+"/toggle-status", token, nil, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, other.IsActive)
}

func TestRouter_TriggerIngest(t *testing.T) {
	s := newServer(t)
	token := s.login(t, admin())
	target := member()

	s.users.EXPECT().GetUserByEmail(gomock.Any(), "ann@example.com").Return(target, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/admin/ingest?user=ann@example.com", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NotNil(t, s.job.filter.UserID)
	assert.Equal(t, target.ID, *s.job.filter.UserID)

	results := decode[[]map[string]any](t, rec)
	require.Len(t, results, 2)
	assert.Equal(t, true, results[0]["success"])
	assert.Equal(t, float64(2), results[0]["processed"])
	assert.Equal(t, false, results[1]["success"])
	assert.Equal(t, "mailbox authentication failed", results[1]["message"])
}

func TestRouter_BusinessValidation(t *testing.T) {
	s := newServer(t)
	token := s.login(t, member())

	rec := s.doJSON(t, http.MethodPost, "/api/v1/business-entities", token, map[string]any{"email": "not-an-email"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[map[string]any](t, rec)
	fields := resp["fields"].(map[string]any)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
}

func TestRouter_CreateInvoiceIsOwnerScoped(t *testing.T) {
	s := newServer(t)
	u := member()
	token := s.login(t, u)
	entityID := uuid.New()

	s.invoices.EXPECT().
		CreateInvoice(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
			assert.Equal(t, u.ID, inv.UserID)
			assert.Equal(t, invoice.SourceManual, inv.Source)
			assert.Equal(t, int64(10000), inv.NetAmount)
			inv.ID = uuid.New()
			return nil
		})

	rec := s.doJSON(t, http.MethodPost, "/api/v1/invoices", token, map[string]any{
		"business_entity_id": entityID,
		"issue_date":         "2026-01-26T00:00:00Z",
		"gross_amount":       10000,
		"type":               "expense",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "100.00", resp["gross"])
	assert.Equal(t, "2026-01-26", resp["issue_date"])

	// user_id is not accepted from clients.
	rec = s.doJSON(t, http.MethodPost, "/api/v1/invoices", token, map[string]any{"user_id": uuid.New()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ListInvoicesRejectsBadFilter(t *testing.T) {
	s := newServer(t)
	token := s.login(t, member())

	rec := s.do(t, http.MethodGet, "/api/v1/invoices?status=lost", token, nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/invoices?from=26-01-2026", token, nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouter_AttachmentPreview(t *testing.T) {
	s := newServer(t)
	owner := member()
	token := s.login(t, owner)

	stored, err := s.files.Save(owner.ID, time.Now(), "scan.pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)

	mine := &invoice.Attachment{ID: uuid.New(), UserID: owner.ID, Path: stored.Path, Filename: "scan.pdf", ContentType: "application/pdf"}
	foreign := uuid.New()

	s.invoices.EXPECT().GetAttachment(gomock.Any(), owner.ID, mine.ID).Return(mine, nil)
	s.invoices.EXPECT().GetAttachment(gomock.Any(), owner.ID, foreign).Return(nil, invoice.ErrAttachmentNotFound)

	rec := s.do(t, http.MethodGet, "/api/v1/attachments/"+mine.ID.String()+"/preview", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inline")
	assert.Equal(t, "%PDF-1.7", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/attachments/"+foreign.String()+"/preview", token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_UploadAttachment(t *testing.T) {
	s := newServer(t)
	owner := member()
	token := s.login(t, owner)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="receipt.pdf"`},
		"Content-Type":        {"application/pdf"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	s.invoices.EXPECT().
		CreateAttachment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *invoice.Attachment) error {
			assert.Equal(t, owner.ID, a.UserID)
			assert.Nil(t, a.InvoiceID)
			assert.True(t, strings.HasPrefix(a.Path, "users/"+owner.ID.String()+"/attachments/"))
			a.ID = uuid.New()
			return nil
		})

	rec := s.do(t, http.MethodPost, "/api/v1/attachments", token, &body, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "receipt.pdf", resp["filename"])
	assert.Equal(t, float64(8), resp["size"])
}

func TestRouter_Matching(t *testing.T) {
	s := newServer(t)
	u := member()
	token := s.login(t, u)

	entity := &business.Entity{ID: uuid.New(), UserID: u.ID, Name: "Acme", TaxID: new("047236845")}
	day := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)
	existing := &invoice.Invoice{ID: uuid.New(), BusinessEntityID: entity.ID, IssueDate: day, GrossAmount: 12346}

	s.matching.EXPECT().FindEntityByTaxID(gomock.Any(), u.ID, "047236845").Return(entity, nil)
	s.matching.EXPECT().
		FindInvoices(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f matching.InvoiceFilter) ([]*invoice.Invoice, error) {
			assert.Equal(t, int64(12344), *f.MinGross)
			assert.Equal(t, int64(12346), *f.MaxGross)
			return []*invoice.Invoice{existing}, nil
		})

	rec := s.do(t, http.MethodGet, "/api/v1/matching?tax_id=047236845&date=2026-01-26&amount=123,45", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "exact", resp["kind"])
	assert.Len(t, resp["invoices"], 1)
}

func TestRouter_MatchingUnknownTaxID(t *testing.T) {
	s := newServer(t)
	u := member()
	token := s.login(t, u)

	s.matching.EXPECT().FindEntityByTaxID(gomock.Any(), u.ID, "999").Return(nil, business.ErrNotFound)

	rec := s.do(t, http.MethodGet, "/api/v1/matching?tax_id=999&date=2026-01-26&amount=10", token, nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no business entity with this tax id")
}

func TestRouter_SendReport(t *testing.T) {
	s := newServer(t)
	u := member()
	token := s.login(t, u)

	s.invoices.EXPECT().
		ListInvoices(gomock.Any(), gomock.Any()).
		Return([]*invoice.Invoice{{ID: uuid.New(), Type: invoice.TypeIncome, GrossAmount: 5000, Status: invoice.StatusPaid}}, nil)
	s.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)

	rec := s.doJSON(t, http.MethodPost, "/api/v1/reports", token, map[string]any{
		"from":      "2026-01-01",
		"to":        "2026-01-31",
		"recipient": "accountant@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "Invoice report 2026-01-01 – 2026-01-31", resp["subject"])
	assert.Equal(t, "50.00", resp["totals"].(map[string]any)["net"])

	rec = s.doJSON(t, http.MethodPost, "/api/v1/reports", token, map[string]any{"from": "January", "to": "2026-01-31"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
