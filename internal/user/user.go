package user

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

var (
	ErrNotFound           = fmt.Errorf("user %w", apperror.ErrNotFound)
	ErrEmailTaken         = fmt.Errorf("email already registered: %w", apperror.ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", apperror.ErrUnauthorized)
	ErrInactive           = fmt.Errorf("account is disabled: %w", apperror.ErrUnauthorized)
	ErrDeleteSelf         = fmt.Errorf("you cannot delete your own account: %w", apperror.ErrForbidden)
	ErrToggleAdmin        = fmt.Errorf("admin accounts are always active: %w", apperror.ErrForbidden)
)

// Mailbox holds the IMAP settings used to ingest invoices for a user.
type Mailbox struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	Folder   string
}

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsActive     bool
	TaxID        *string // The user's own company tax id.
	Mailbox      Mailbox
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
