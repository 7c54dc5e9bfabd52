package report

import (
	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
	"github.com/NickArm/Invoice-System-sub001/internal/money"
)

// Type selects which invoices a report covers.
type Type string

const (
	TypeAll     Type = "all"
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAll, TypeIncome, TypeExpense:
		return true
	}

	return false
}

// Summary totals are in cents. Net is IncomeSum - ExpenseSum.
type Summary struct {
	TotalCount   int   `json:"total_count"`
	IncomeCount  int   `json:"income_count"`
	IncomeSum    int64 `json:"income_sum"`
	ExpenseCount int   `json:"expense_count"`
	ExpenseSum   int64 `json:"expense_sum"`
	Net          int64 `json:"net"`
}

// Summarize totals the invoices selected by t. Cancelled invoices are not counted.
func Summarize(invoices []*invoice.Invoice, t Type) Summary {
	var s Summary

	for _, inv := range invoices {
		if inv.Status == invoice.StatusCancelled {
			continue
		}

		switch {
		case inv.Type == invoice.TypeIncome && t != TypeExpense:
			s.IncomeCount++
			s.IncomeSum += inv.GrossAmount
		case inv.Type == invoice.TypeExpense && t != TypeIncome:
			s.ExpenseCount++
			s.ExpenseSum += inv.GrossAmount
		default:
			continue
		}

		s.TotalCount++
	}

	s.Net = s.IncomeSum - s.ExpenseSum

	return s
}

// Formatted is the summary as two-decimal strings for templates and JSON.
type Formatted struct {
	TotalCount   int    `json:"total_count"`
	IncomeCount  int    `json:"income_count"`
	IncomeSum    string `json:"income_sum"`
	ExpenseCount int    `json:"expense_count"`
	ExpenseSum   string `json:"expense_sum"`
	Net          string `json:"net"`
}

func (s Summary) Format() Formatted {
	return Formatted{
		TotalCount:   s.TotalCount,
		IncomeCount:  s.IncomeCount,
		IncomeSum:    money.Format(s.IncomeSum),
		ExpenseCount: s.ExpenseCount,
		ExpenseSum:   money.Format(s.ExpenseSum),
		Net:          money.Format(s.Net),
	}
}
