package report_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/filestore"
	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
	"github.com/NickArm/Invoice-System-sub001/internal/mailer"
	"github.com/NickArm/Invoice-System-sub001/internal/report"
)

var (
	from = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
)

func inv(typ invoice.Type, gross int64) *invoice.Invoice {
	return &invoice.Invoice{ID: uuid.New(), Type: typ, GrossAmount: gross, Status: invoice.StatusPending}
}

func TestSummarize(t *testing.T) {
	invoices := []*invoice.Invoice{
		inv(invoice.TypeIncome, 12345),
		inv(invoice.TypeIncome, 1),
		inv(invoice.TypeExpense, 10000),
		{ID: uuid.New(), Type: invoice.TypeExpense, GrossAmount: 999, Status: invoice.StatusCancelled},
	}

	type testCase struct {
		name string
		typ  report.Type
		want report.Summary
	}

	tests := []testCase{
		{
			name: "All",
			typ:  report.TypeAll,
			want: report.Summary{TotalCount: 3, IncomeCount: 2, IncomeSum: 12346, ExpenseCount: 1, ExpenseSum: 10000, Net: 2346},
		},
		{
			name: "IncomeOnly",
			typ:  report.TypeIncome,
			want: report.Summary{TotalCount: 2, IncomeCount: 2, IncomeSum: 12346, Net: 12346},
		},
		{
			name: "ExpenseOnly",
			typ:  report.TypeExpense,
			want: report.Summary{TotalCount: 1, ExpenseCount: 1, ExpenseSum: 10000, Net: -10000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := report.Summarize(invoices, tt.typ)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Net, got.IncomeSum-got.ExpenseSum)
		})
	}

	all := report.Summarize(invoices, report.TypeAll)
	assert.Equal(t, all.TotalCount, all.IncomeCount+all.ExpenseCount)
}

func TestSummarize_Empty(t *testing.T) {
	got := report.Summarize(nil, report.TypeAll).Format()

	assert.Equal(t, report.Formatted{IncomeSum: "0.00", ExpenseSum: "0.00", Net: "0.00"}, got)
}

func TestSummary_Format(t *testing.T) {
	got := report.Summary{IncomeSum: 123456, ExpenseSum: 5, Net: 123451}.Format()

	assert.Equal(t, "1234.56", got.IncomeSum)
	assert.Equal(t, "0.05", got.ExpenseSum)
	assert.Equal(t, "1234.51", got.Net)
}

type fixture struct {
	invoices *report.MockInvoices
	mailer   *report.MockMailer
	files    *filestore.Store
	staging  afero.Fs
	svc      *report.Service
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)

	f := &fixture{
		invoices: report.NewMockInvoices(ctrl),
		mailer:   report.NewMockMailer(ctrl),
		files:    filestore.New(afero.NewMemMapFs()),
		staging:  afero.NewMemMapFs(),
	}

	f.svc = report.NewService(f.invoices, f.files, f.mailer, f.staging)

	return f
}

func (f *fixture) attachment(t *testing.T, userID uuid.UUID, name, body string) *invoice.Attachment {
	stored, err := f.files.Save(userID, from, name, "application/pdf", []byte(body))
	require.NoError(t, err)

	return &invoice.Attachment{ID: uuid.New(), UserID: userID, Path: stored.Path, Filename: name}
}

func zipEntries(t *testing.T, a *mailer.Attachment) map[string]string {
	data, err := io.ReadAll(a.Content)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := map[string]string{}

	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()

		out[f.Name] = string(data)
	}

	return out
}

func assertNoStagedArchives(t *testing.T, fs afero.Fs) {
	left, err := afero.Glob(fs, filepath.Join(os.TempDir(), "report-*"))
	require.NoError(t, err)
	assert.Empty(t, left, "temporary archive left behind")
}

func TestService_Send_WithSelectedAttachments(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	a1 := f.attachment(t, userID, "invoice.pdf", "first")
	a2 := f.attachment(t, userID, "invoice.pdf", "second")

	f.invoices.EXPECT().
		List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
			assert.Equal(t, userID, filter.UserID)
			assert.Nil(t, filter.Type)
			return []*invoice.Invoice{inv(invoice.TypeIncome, 20000), inv(invoice.TypeExpense, 5050)}, nil
		})
	f.invoices.EXPECT().
		ListAttachments(gomock.Any(), invoice.AttachmentFilter{UserID: userID, IDs: []uuid.UUID{a1.ID, a2.ID}}).
		Return([]*invoice.Attachment{a1, a2}, nil)

	f.mailer.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg mailer.Message) error {
			assert.Equal(t, "accountant@example.com", msg.To)
			assert.Equal(t, "Invoice report 2026-01-01 – 2026-01-31", msg.Subject)
			assert.Contains(t, msg.HTMLBody, "200.00")
			assert.Contains(t, msg.HTMLBody, "50.50")
			assert.Contains(t, msg.HTMLBody, "149.50")
			assert.Contains(t, msg.HTMLBody, "Please book these")
			require.NotNil(t, msg.Attachment)
			assert.Equal(t, "invoices_2026-01-01_2026-01-31.zip", msg.Attachment.Name)

			entries := zipEntries(t, msg.Attachment)
			assert.Equal(t, map[string]string{"invoice.pdf": "first", "invoice (2).pdf": "second"}, entries)
			return nil
		})

	out, err := f.svc.Send(context.Background(), report.Request{
		UserID:        userID,
		From:          from,
		To:            to,
		Recipient:     "accountant@example.com",
		Message:       "Please book these",
		AttachmentIDs: []uuid.UUID{a1.ID, a2.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Attached)
	assert.Equal(t, int64(14950), out.Summary.Net)
	assertNoStagedArchives(t, f.staging)
}

func TestService_Send_RemovesArchiveOnFailure(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	a := f.attachment(t, userID, "a.pdf", "data")
	invoices := []*invoice.Invoice{inv(invoice.TypeExpense, 100)}

	f.invoices.EXPECT().List(gomock.Any(), gomock.Any()).Return(invoices, nil)
	f.invoices.EXPECT().
		ListAttachments(gomock.Any(), invoice.AttachmentFilter{UserID: userID, InvoiceIDs: []uuid.UUID{invoices[0].ID}}).
		Return([]*invoice.Attachment{a}, nil)
	f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

	_, err := f.svc.Send(context.Background(), report.Request{
		UserID:             userID,
		From:               from,
		To:                 to,
		Type:               report.TypeExpense,
		Recipient:          "a@example.com",
		IncludeAttachments: true,
	})
	assert.ErrorContains(t, err, "smtp down")
	assertNoStagedArchives(t, f.staging)
}

func TestService_Send_NoAttachments(t *testing.T) {
	f := newFixture(t)

	f.invoices.EXPECT().
		List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
			require.NotNil(t, filter.Type)
			assert.Equal(t, invoice.TypeIncome, *filter.Type)
			return nil, nil
		})
	f.mailer.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg mailer.Message) error {
			assert.Nil(t, msg.Attachment)
			assert.Contains(t, msg.HTMLBody, "0.00")
			return nil
		})

	out, err := f.svc.Send(context.Background(), report.Request{
		UserID: uuid.New(), From: from, To: to, Type: report.TypeIncome, Recipient: "a@example.com",
	})
	require.NoError(t, err)
	assert.Zero(t, out.Attached)
}

func TestService_Send_BodyListsEveryTotal(t *testing.T) {
	type testCase struct {
		name     string
		typ      report.Type
		invoices []*invoice.Invoice
		want     []string
	}

	tests := []testCase{
		{
			name:     "All",
			typ:      report.TypeAll,
			invoices: []*invoice.Invoice{inv(invoice.TypeIncome, 10000), inv(invoice.TypeExpense, 2500)},
			want: []string{
				`Invoices</th><td align="right">2<`,
				`Income invoices</th><td align="right">1<`,
				`Income</th><td align="right">100.00<`,
				`Expense invoices</th><td align="right">1<`,
				`Expenses</th><td align="right">25.00<`,
				`<strong>75.00</strong>`,
			},
		},
		{
			name:     "IncomeOnly",
			typ:      report.TypeIncome,
			invoices: []*invoice.Invoice{inv(invoice.TypeIncome, 10000)},
			want: []string{
				`Invoices</th><td align="right">1<`,
				`Income invoices</th><td align="right">1<`,
				`Income</th><td align="right">100.00<`,
				`Expense invoices</th><td align="right">0<`,
				`Expenses</th><td align="right">0.00<`,
				`<strong>100.00</strong>`,
			},
		},
		{
			name:     "ExpenseOnly",
			typ:      report.TypeExpense,
			invoices: []*invoice.Invoice{inv(invoice.TypeExpense, 2500)},
			want: []string{
				`Invoices</th><td align="right">1<`,
				`Income invoices</th><td align="right">0<`,
				`Income</th><td align="right">0.00<`,
				`Expense invoices</th><td align="right">1<`,
				`Expenses</th><td align="right">25.00<`,
				`<strong>-25.00</strong>`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			f.invoices.EXPECT().List(gomock.Any(), gomock.Any()).Return(tt.invoices, nil)
			f.mailer.EXPECT().
				Send(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, msg mailer.Message) error {
					for _, w := range tt.want {
						assert.Contains(t, msg.HTMLBody, w)
					}
					return nil
				})

			_, err := f.svc.Send(context.Background(), report.Request{
				UserID: uuid.New(), From: from, To: to, Type: tt.typ, Recipient: "a@example.com",
			})
			require.NoError(t, err)
		})
	}
}

func TestService_Send_ForeignAttachment(t *testing.T) {
	f := newFixture(t)
	userID, foreign := uuid.New(), uuid.New()

	f.invoices.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.invoices.EXPECT().ListAttachments(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := f.svc.Send(context.Background(), report.Request{
		UserID: userID, From: from, To: to, Recipient: "a@example.com", AttachmentIDs: []uuid.UUID{foreign},
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assertNoStagedArchives(t, f.staging)
}

func TestService_Send_Validation(t *testing.T) {
	f := newFixture(t)

	type testCase struct {
		name  string
		req   report.Request
		field string
	}

	tests := []testCase{
		{name: "MissingRecipient", req: report.Request{UserID: uuid.New(), From: from, To: to}, field: "recipient"},
		{name: "BadRecipient", req: report.Request{UserID: uuid.New(), From: from, To: to, Recipient: "nope"}, field: "recipient"},
		{name: "BadType", req: report.Request{UserID: uuid.New(), From: from, To: to, Recipient: "a@b.co", Type: "both"}, field: "type"},
		{name: "RangeReversed", req: report.Request{UserID: uuid.New(), From: to, To: from, Recipient: "a@b.co"}, field: "to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Send(context.Background(), tt.req)

			var ve *apperror.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}
