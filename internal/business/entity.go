package business

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
)

// Kind is the role a counterparty plays for its owner.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindSupplier Kind = "supplier"
	KindBoth     Kind = "both"
)

var (
	ErrNotFound   = fmt.Errorf("business entity %w", apperror.ErrNotFound)
	ErrTaxIDTaken = fmt.Errorf("a business entity with this tax id already exists: %w", apperror.ErrConflict)
	ErrInUse      = fmt.Errorf("business entity is referenced by invoices: %w", apperror.ErrConflict)
)

// Entity is a customer or supplier owned by a user.
type Entity struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      Kind
	Name      string
	TaxID     *string
	Email     string
	Phone     string
	Address   string
	City      string
	Country   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// NormalizeTaxID strips whitespace and separators and upper-cases the result,
// so "el 047-236 845" and "EL047236845" compare equal.
func NormalizeTaxID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r):
			return unicode.ToUpper(r)
		case unicode.IsDigit(r):
			return r
		default:
			return -1
		}
	}, s)
}
