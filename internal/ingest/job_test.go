package ingest_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/NickArm/Invoice-System-sub001/internal/business"
	"github.com/NickArm/Invoice-System-sub001/internal/extract"
	"github.com/NickArm/Invoice-System-sub001/internal/ingest"
	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
	"github.com/NickArm/Invoice-System-sub001/internal/mailbox"
	"github.com/NickArm/Invoice-System-sub001/internal/matching"
	"github.com/NickArm/Invoice-System-sub001/internal/retry"
	"github.com/NickArm/Invoice-System-sub001/internal/user"
)

var issued = time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)

type mocks struct {
	users     *ingest.MockUsers
	dialer    *mailbox.MockDialer
	session   *mailbox.MockSession
	extractor *ingest.MockExtractor
	entities  *ingest.MockEntities
	matcher   *ingest.MockMatcher
	invoices  *ingest.MockInvoices
}

func newMocks(t *testing.T) (*mocks, *gomock.Controller) {
	ctrl := gomock.NewController(t)

	return &mocks{
		users:     ingest.NewMockUsers(ctrl),
		dialer:    mailbox.NewMockDialer(ctrl),
		session:   mailbox.NewMockSession(ctrl),
		extractor: ingest.NewMockExtractor(ctrl),
		entities:  ingest.NewMockEntities(ctrl),
		matcher:   ingest.NewMockMatcher(ctrl),
		invoices:  ingest.NewMockInvoices(ctrl),
	}, ctrl
}

func (m *mocks) job(invoices ingest.Invoices) *ingest.Job {
	if invoices == nil {
		invoices = m.invoices
	}

	return ingest.NewJob(m.users, m.dialer, m.extractor, m.entities, m.matcher, invoices, ingest.Config{
		Lookback:       30 * 24 * time.Hour,
		ConnectTimeout: time.Second,
		ConnectRetry:   retry.Options{MaxAttempts: 3, InitialDelay: time.Millisecond},
	})
}

func mailboxUser() *user.User {
	return &user.User{
		ID:       uuid.New(),
		Email:    "owner@example.com",
		IsActive: true,
		TaxID:    new("998877665"),
		Mailbox:  user.Mailbox{Enabled: true, Host: "imap.example.com", Port: 993, Username: "owner", Password: "secret"},
	}
}

func supplierFields() *extract.Fields {
	return &extract.Fields{
		Issuer:      extract.Party{Name: "Acme", TaxID: "047236845"},
		Recipient:   extract.Party{Name: "Owner Ltd", TaxID: "998877665"},
		Number:      "A-17",
		IssueDate:   issued,
		NetAmount:   8065,
		VATAmount:   1935,
		GrossAmount: 10000,
		Currency:    "EUR",
	}
}

var pdf = &mailbox.Attachment{Filename: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}

func TestJob_Run_DisabledUserNeverConnects(t *testing.T) {
	type testCase struct {
		name    string
		user    func() *user.User
		message string
	}

	tests := []testCase{
		{
			name: "MailboxDisabled",
			user: func() *user.User {
				u := mailboxUser()
				u.Mailbox.Enabled = false
				return u
			},
			message: "mailbox access disabled",
		},
		{
			name: "AccountDisabled",
			user: func() *user.User {
				u := mailboxUser()
				u.IsActive = false
				return u
			},
			message: "account is disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newMocks(t)
			u := tt.user()

			m.users.EXPECT().Get(gomock.Any(), u.ID).Return(u, nil)
			// No dialer expectations: any Connect call fails the test.

			results, err := m.job(nil).Run(context.Background(), ingest.Filter{UserID: &u.ID})
			require.NoError(t, err)
			require.Len(t, results, 1)

			failed, ok := results[0].(*ingest.Failed)
			require.True(t, ok)
			assert.False(t, failed.Success())
			assert.Equal(t, tt.message, failed.Message)
		})
	}
}

func TestJob_Run_ProcessesMessages(t *testing.T) {
	m, _ := newMocks(t)
	u := mailboxUser()

	refs := []mailbox.MessageRef{
		{UID: 1, MessageID: "<old@x>"},
		{UID: 2, MessageID: "<plain@x>"},
		{UID: 3, MessageID: "<new@x>", Subject: "Invoice A-17"},
		{UID: 4, MessageID: "<broken@x>", Subject: "Scan"},
	}

	entity := &business.Entity{ID: uuid.New(), UserID: u.ID, TaxID: new("047236845")}

	m.users.EXPECT().ListIngestable(gomock.Any()).Return([]*user.User{u}, nil)
	m.dialer.EXPECT().
		Connect(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, creds mailbox.Credentials) (mailbox.Session, error) {
			assert.Equal(t, "imap.example.com", creds.Host)
			assert.Equal(t, "owner", creds.Username)
			assert.Equal(t, time.Second, creds.Timeout)
			assert.False(t, creds.Since.IsZero())
			return m.session, nil
		})
	m.session.EXPECT().ListMessages(gomock.Any()).Return(refs, nil)
	m.session.EXPECT().Close().Return(nil)

	m.invoices.EXPECT().IsImported(gomock.Any(), u.ID, "<old@x>").Return(true, nil)

	m.invoices.EXPECT().IsImported(gomock.Any(), u.ID, "<plain@x>").Return(false, nil)
	m.session.EXPECT().FetchAttachment(gomock.Any(), refs[1]).Return(nil, mailbox.ErrNoAttachment)
	m.invoices.EXPECT().MarkImported(gomock.Any(), u.ID, "<plain@x>", nil).Return(nil)

	m.invoices.EXPECT().IsImported(gomock.Any(), u.ID, "<new@x>").Return(false, nil)
	m.session.EXPECT().FetchAttachment(gomock.Any(), refs[2]).Return(pdf, nil)
	m.extractor.EXPECT().
		Extract(gomock.Any(), extract.Document{Filename: "a.pdf", ContentType: "application/pdf", Data: pdf.Data}).
		Return(supplierFields(), nil)
	m.entities.EXPECT().
		Resolve(gomock.Any(), u.ID, business.ResolveParams{TaxID: "047236845", Name: "Acme", Kind: business.KindSupplier}).
		Return(entity, true, nil)
	m.matcher.EXPECT().
		Match(gomock.Any(), matching.Query{OwnerID: u.ID, TaxID: "047236845", IssueDate: issued, Gross: 10000}).
		Return(&matching.Result{Kind: matching.KindNone, Entity: entity}, nil)
	m.invoices.EXPECT().
		Import(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p invoice.ImportParams) (*invoice.Invoice, error) {
			assert.Equal(t, "<new@x>", p.MessageID)
			assert.Equal(t, entity.ID, p.Invoice.BusinessEntityID)
			assert.Equal(t, invoice.TypeExpense, p.Invoice.Type)
			assert.Equal(t, int64(10000), p.Invoice.GrossAmount)
			assert.Equal(t, "a.pdf", p.File.Filename)
			return &invoice.Invoice{ID: uuid.New()}, nil
		})

	m.invoices.EXPECT().IsImported(gomock.Any(), u.ID, "<broken@x>").Return(false, nil)
	m.session.EXPECT().FetchAttachment(gomock.Any(), refs[3]).Return(pdf, nil)
	m.extractor.EXPECT().
		Extract(gomock.Any(), gomock.Any()).
		Return(nil, &extract.ExtractionError{Op: "Extract", Err: extract.ErrNoText})

	results, err := m.job(nil).Run(context.Background(), ingest.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	got, ok := results[0].(*ingest.Completed)
	require.True(t, ok)
	assert.True(t, got.Success())
	assert.Equal(t, 4, got.TotalMessages)
	assert.Equal(t, 1, got.Processed)
	assert.Equal(t, 2, got.Skipped)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "<broken@x>")
	assert.Contains(t, got.Errors[0], "no text found")
}

func TestJob_Run_IssuedByOwnerIsIncome(t *testing.T) {
	m, _ := newMocks(t)
	u := mailboxUser()
	ref := mailbox.MessageRef{UID: 1, MessageID: "<out@x>"}

	fields := supplierFields()
	fields.Issuer, fields.Recipient = fields.Recipient, fields.Issuer

	m.users.EXPECT().Get(gomock.Any(), u.ID).Return(u, nil)
	m.dialer.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.session, nil)
	m.session.EXPECT().ListMessages(gomock.Any()).Return([]mailbox.MessageRef{ref}, nil)
	m.session.EXPECT().Close().Return(nil)
	m.invoices.EXPECT().IsImported(gomock.Any(), u.ID, ref.MessageID).Return(false, nil)
	m.session.EXPECT().FetchAttachment(gomock.Any(), ref).Return(pdf, nil)
	m.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(fields, nil)
	m.entities.EXPECT().
		Resolve(gomock.Any(), u.ID, business.ResolveParams{TaxID: "047236845", Name: "Acme", Kind: business.KindCustomer}).
		Return(&business.Entity{ID: uuid.New()}, false, nil)
	m.matcher.EXPECT().Match(gomock.Any(), gomock.Any()).Return(&matching.Result{Kind: matching.KindFallback}, nil)
	m.invoices.EXPECT().
		Import(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p invoice.ImportParams) (*invoice.Invoice, error) {
			assert.Equal(t, invoice.TypeIncome, p.Invoice.Type)
			return &invoice.Invoice{ID: uuid.New()}, nil
		})

	results, err := m.job(nil).Run(context.Background(), ingest.Filter{UserID: &u.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].(*ingest.Completed).Processed)
}

func TestJob_Run_FallbackMatchIsFlaggedForReview(t *testing.T) {
	m, _ := newMocks(t)
	u := mailboxUser()
	ref := mailbox.MessageRef{UID: 4, MessageID: "<near@x>"}
	sameDay := &invoice.Invoice{ID: uuid.New(), GrossAmount: 10002}
	imported := &invoice.Invoice{ID: uuid.New()}

	m.users.EXPECT().ListIngestable(gomock.Any()).Return([]*user.User{u}, nil)
	m.dialer.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.session, nil)
	m.session.EXPECT().ListMessages(gomock.Any()).Return([]mailbox.MessageRef{ref}, nil)
	m.session.EXPECT().Close().Return(nil)
	m.invoices.EXPECT().IsImported(gomock.Any(), u.ID, ref.MessageID).Return(false, nil)
	m.session.EXPECT().FetchAttachment(gomock.Any(), ref).Return(pdf, nil)
	m.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(supplierFields(), nil)
	m.entities.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(&business.Entity{ID: uuid.New()}, false, nil)
	m.matcher.EXPECT().
		Match(gomock.Any(), gomock.Any()).
		Return(&matching.Result{Kind: matching.KindFallback, Invoices: []*invoice.Invoice{sameDay}}, nil)
	m.invoices.EXPECT().Import(gomock.Any(), gomock.Any()).Return(imported, nil)

	results, err := m.job(nil).Run(context.Background(), ingest.Filter{})
	require.NoError(t, err)

	got := results[0].(*ingest.Completed)
	assert.Equal(t, 1, got.Processed)
	assert.Empty(t, got.Errors)
	assert.Equal(t, []ingest.Review{
		{MessageID: "<near@x>", InvoiceID: imported.ID, Candidates: []uuid.UUID{sameDay.ID}},
	}, got.Review)
}

func TestJob_Run_ExactMatchIsRecordedAsImported(t *testing.T) {
	m, _ := newMocks(t)
	u := mailboxUser()
	ref := mailbox.MessageRef{UID: 9, MessageID: "<dup@x>"}
	existing := &invoice.Invoice{ID: uuid.New()}

	m.users.EXPECT().ListIngestable(gomock.Any()).Return([]*user.User{u}, nil)
	m.dialer.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.session, nil)
	m.session.EXPECT().ListMessages(gomock.Any()).Return([]mailbox.MessageRef{ref}, nil)
	m.session.EXPECT().Close().Return(nil)
	m.invoices.EXPECT().IsImported(gomock.Any(), u.ID, ref.MessageID).Return(false, nil)
	m.session.EXPECT().FetchAttachment(gomock.Any(), ref).Return(pdf, nil)
	m.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(supplierFields(), nil)
	m.entities.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(&business.Entity{ID: uuid.New()}, false, nil)
	m.matcher.EXPECT().
		Match(gomock.Any(), gomock.Any()).
		Return(&matching.Result{Kind: matching.KindExact, Invoices: []*invoice.Invoice{existing}}, nil)
	m.invoices.EXPECT().MarkImported(gomock.Any(), u.ID, ref.MessageID, &existing.ID).Return(nil)
	// No Import call: the duplicate must not be stored.

	results, err := m.job(nil).Run(context.Background(), ingest.Filter{})
	require.NoError(t, err)

	got := results[0].(*ingest.Completed)
	assert.Equal(t, 0, got.Processed)
	assert.Equal(t, 1, got.Skipped)
	assert.Empty(t, got.Errors)
	assert.Empty(t, got.Review)
}

func TestJob_Run_MissingCounterpartyTaxID(t *testing.T) {
	m, _ := newMocks(t)
	u := mailboxUser()
	ref := mailbox.MessageRef{UID: 1, MessageID: "<anon@x>"}

	fields := supplierFields()
	fields.Issuer.TaxID = ""

	m.users.EXPECT().ListIngestable(gomock.Any()).Return([]*user.User{u}, nil)
	m.dialer.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.session, nil)
	m.session.EXPECT().ListMessages(gomock.Any()).Return([]mailbox.MessageRef{ref}, nil)
	m.session.EXPECT().Close().Return(nil)
	m.invoices.EXPECT().IsImported(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	m.session.EXPECT().FetchAttachment(gomock.Any(), ref).Return(pdf, nil)
	m.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(fields, nil)

	results, err := m.job(nil).Run(context.Background(), ingest.Filter{})
	require.NoError(t, err)

	got := results[0].(*ingest.Completed)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "tax id")
}

func TestJob_Run_ConnectFailures(t *testing.T) {
	type testCase struct {
		name      string
		setupMock func(m *mocks)
		wantOK    bool
		wantMsg   string
	}

	tests := []testCase{
		{
			name: "AuthFailureNotRetried",
			setupMock: func(m *mocks) {
				m.dialer.EXPECT().
					Connect(gomock.Any(), gomock.Any()).
					Return(nil, errors.Join(mailbox.ErrAuthFailed, errors.New("NO LOGIN failed"))).
					Times(1)
			},
			wantMsg: "authentication failed",
		},
		{
			name: "TransientRetriedThenSucceeds",
			setupMock: func(m *mocks) {
				gomock.InOrder(
					m.dialer.EXPECT().
						Connect(gomock.Any(), gomock.Any()).
						Return(nil, &mailbox.ConnectionError{Addr: "imap.example.com:993", Err: errors.New("i/o timeout")}),
					m.dialer.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.session, nil),
				)
				m.session.EXPECT().ListMessages(gomock.Any()).Return(nil, nil)
				m.session.EXPECT().Close().Return(nil)
			},
			wantOK: true,
		},
		{
			name: "TransientExhausted",
			setupMock: func(m *mocks) {
				m.dialer.EXPECT().
					Connect(gomock.Any(), gomock.Any()).
					Return(nil, &mailbox.ConnectionError{Addr: "imap.example.com:993", Err: errors.New("connection refused")}).
					Times(3)
			},
			wantMsg: "connection refused",
		},
		{
			name: "ListFailureClosesSession",
			setupMock: func(m *mocks) {
				m.dialer.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.session, nil)
				m.session.EXPECT().ListMessages(gomock.Any()).Return(nil, errors.New("BYE"))
				m.session.EXPECT().Close().Return(nil)
			},
			wantMsg: "listing messages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newMocks(t)
			u := mailboxUser()

			m.users.EXPECT().ListIngestable(gomock.Any()).Return([]*user.User{u}, nil)
			tt.setupMock(m)

			results, err := m.job(nil).Run(context.Background(), ingest.Filter{})
			require.NoError(t, err)
			require.Len(t, results, 1)

			assert.Equal(t, tt.wantOK, results[0].Success())
			assert.Equal(t, u.ID, results[0].Owner())

			if !tt.wantOK {
				assert.Contains(t, results[0].(*ingest.Failed).Message, tt.wantMsg)
			}
		})
	}
}

func TestJob_Run_OneUserFailingDoesNotStopOthers(t *testing.T) {
	m, _ := newMocks(t)
	broken, healthy := mailboxUser(), mailboxUser()
	broken.Mailbox.Host = "down.example.com"

	m.users.EXPECT().ListIngestable(gomock.Any()).Return([]*user.User{broken, healthy}, nil)
	m.dialer.EXPECT().
		Connect(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, creds mailbox.Credentials) (mailbox.Session, error) {
			if creds.Host == "down.example.com" {
				return nil, mailbox.ErrAuthFailed
			}
			return m.session, nil
		}).
		Times(2)
	m.session.EXPECT().ListMessages(gomock.Any()).Return(nil, nil)
	m.session.EXPECT().Close().Return(nil)

	results, err := m.job(nil).Run(context.Background(), ingest.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[0].Success())
	assert.Equal(t, broken.ID, results[0].Owner())
	assert.True(t, results[1].Success())
	assert.Equal(t, healthy.ID, results[1].Owner())
}

func TestJob_Run_StartupFailure(t *testing.T) {
	m, _ := newMocks(t)
	m.users.EXPECT().ListIngestable(gomock.Any()).Return(nil, errors.New("db unavailable"))

	_, err := m.job(nil).Run(context.Background(), ingest.Filter{})
	assert.ErrorContains(t, err, "db unavailable")
}

// memoryInvoices tracks imported messages the way the database marker does.
type memoryInvoices struct {
	mu       sync.Mutex
	imported map[string]bool
	invoices int
}

func (m *memoryInvoices) IsImported(_ context.Context, _ uuid.UUID, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.imported[messageID], nil
}

func (m *memoryInvoices) MarkImported(_ context.Context, _ uuid.UUID, messageID string, _ *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.imported[messageID] = true

	return nil
}

func (m *memoryInvoices) Import(_ context.Context, p invoice.ImportParams) (*invoice.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.imported[p.MessageID] {
		return nil, invoice.ErrAlreadyImported
	}

	m.imported[p.MessageID] = true
	m.invoices++

	return &invoice.Invoice{ID: uuid.New()}, nil
}

func TestJob_Run_Idempotent(t *testing.T) {
	m, _ := newMocks(t)
	u := mailboxUser()
	store := &memoryInvoices{imported: map[string]bool{}}
	refs := []mailbox.MessageRef{{UID: 1, MessageID: "<a@x>"}, {UID: 2, MessageID: "<b@x>"}}

	m.users.EXPECT().ListIngestable(gomock.Any()).Return([]*user.User{u}, nil).Times(2)
	m.dialer.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.session, nil).Times(2)
	m.session.EXPECT().ListMessages(gomock.Any()).Return(refs, nil).Times(2)
	m.session.EXPECT().Close().Return(nil).Times(2)

	// Only the first run reaches past the imported check.
	m.session.EXPECT().FetchAttachment(gomock.Any(), gomock.Any()).Return(pdf, nil).Times(2)
	m.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(supplierFields(), nil).Times(2)
	m.entities.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(&business.Entity{ID: uuid.New()}, false, nil).Times(2)
	m.matcher.EXPECT().Match(gomock.Any(), gomock.Any()).Return(&matching.Result{Kind: matching.KindNone}, nil).Times(2)

	job := m.job(store)

	first, err := job.Run(context.Background(), ingest.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, first[0].(*ingest.Completed).Processed)

	second, err := job.Run(context.Background(), ingest.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, second[0].(*ingest.Completed).Processed)
	assert.Equal(t, 2, second[0].(*ingest.Completed).Skipped)

	assert.Equal(t, 2, store.invoices)
}

func TestJob_Run_ConcurrentRunsDoNotDoubleImport(t *testing.T) {
	m, _ := newMocks(t)
	u := mailboxUser()
	store := &memoryInvoices{imported: map[string]bool{}}
	ref := mailbox.MessageRef{UID: 1, MessageID: "<race@x>"}

	// Both runs pass the fast pre-check; the store marker decides.
	pre := &memoryInvoices{imported: map[string]bool{}}
	racing := racingInvoices{pre: pre, store: store}

	m.users.EXPECT().ListIngestable(gomock.Any()).Return([]*user.User{u}, nil).Times(2)
	m.dialer.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.session, nil).Times(2)
	m.session.EXPECT().ListMessages(gomock.Any()).Return([]mailbox.MessageRef{ref}, nil).Times(2)
	m.session.EXPECT().Close().Return(nil).Times(2)
	m.session.EXPECT().FetchAttachment(gomock.Any(), gomock.Any()).Return(pdf, nil).Times(2)
	m.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(supplierFields(), nil).Times(2)
	m.entities.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(&business.Entity{ID: uuid.New()}, false, nil).Times(2)
	m.matcher.EXPECT().Match(gomock.Any(), gomock.Any()).Return(&matching.Result{Kind: matching.KindNone}, nil).Times(2)

	job := m.job(racing)

	var wg sync.WaitGroup
	results := make([][]ingest.Result, 2)

	for i := range results {
		wg.Go(func() {
			results[i], _ = job.Run(context.Background(), ingest.Filter{})
		})
	}

	wg.Wait()

	processed := results[0][0].(*ingest.Completed).Processed + results[1][0].(*ingest.Completed).Processed
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, store.invoices)
}

// racingInvoices answers the pre-check from a store nobody writes to, as if
// both runs checked before either committed.
type racingInvoices struct {
	pre   *memoryInvoices
	store *memoryInvoices
}

func (r racingInvoices) IsImported(ctx context.Context, userID uuid.UUID, messageID string) (bool, error) {
	return r.pre.IsImported(ctx, userID, messageID)
}

func (r racingInvoices) MarkImported(ctx context.Context, userID uuid.UUID, messageID string, invoiceID *uuid.UUID) error {
	return r.store.MarkImported(ctx, userID, messageID, invoiceID)
}

func (r racingInvoices) Import(ctx context.Context, p invoice.ImportParams) (*invoice.Invoice, error) {
	return r.store.Import(ctx, p)
}
