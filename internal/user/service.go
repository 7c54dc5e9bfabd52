package user

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/auth"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=user
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, filter ListFilter) ([]*User, error)
	UpdateUser(ctx context.Context, u *User) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ListFilter struct {
	MailboxEnabled *bool
	ActiveOnly     bool
}

type CreateParams struct {
	Email    string  `json:"email" validate:"required,email"`
	Name     string  `json:"name" validate:"required,max=200"`
	Password string  `json:"password" validate:"required,min=8"`
	Role     Role    `json:"role" validate:"omitempty,oneof=admin user"`
	TaxID    *string `json:"tax_id" validate:"omitempty,max=32"`
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*User, error) {
	if err := apperror.Validate(params); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	role := params.Role
	if role == "" {
		role = RoleUser
	}

	u := &User{
		Email:        normalizeEmail(params.Email),
		Name:         strings.TrimSpace(params.Name),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		TaxID:        params.TaxID,
		Mailbox:      Mailbox{Port: 993, Folder: "INBOX"},
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Authenticate returns the active user matching the credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive {
		return nil, ErrInactive
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetUserByEmail(ctx, normalizeEmail(email))
}

// Lookup finds a user by id or, when ref is not a UUID, by email.
func (s *Service) Lookup(ctx context.Context, ref string) (*User, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.GetUser(ctx, id)
	}

	return s.repo.GetUserByEmail(ctx, normalizeEmail(ref))
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.repo.ListUsers(ctx, ListFilter{})
}

// ListIngestable returns active users whose mailbox access is enabled.
func (s *Service) ListIngestable(ctx context.Context) ([]*User, error) {
	return s.repo.ListUsers(ctx, ListFilter{MailboxEnabled: new(true), ActiveOnly: true})
}

// Delete removes target on behalf of actor. Admins can not delete themselves.
func (s *Service) Delete(ctx context.Context, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return ErrDeleteSelf
	}

	if _, err := s.repo.GetUser(ctx, targetID); err != nil {
		return err
	}

	return s.repo.DeleteUser(ctx, targetID)
}

// ToggleStatus flips is_active for a non-admin user and returns the result.
func (s *Service) ToggleStatus(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.IsAdmin() {
		return nil, ErrToggleAdmin
	}

	if err := s.repo.SetActive(ctx, id, !u.IsActive); err != nil {
		return nil, err
	}

	u.IsActive = !u.IsActive

	return u, nil
}

type UpdateProfileParams struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=200"`
	TaxID *string `json:"tax_id" validate:"omitempty,max=32"`
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, params UpdateProfileParams) (*User, error) {
	if err := apperror.Validate(params); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		u.Name = strings.TrimSpace(*params.Name)
	}

	if params.TaxID != nil {
		if tid := strings.TrimSpace(*params.TaxID); tid == "" {
			u.TaxID = nil
		} else {
			u.TaxID = &tid
		}
	}

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

type MailboxParams struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host" validate:"required_if=Enabled true,max=255"`
	Port     int    `json:"port" validate:"omitempty,min=1,max=65535"`
	Username string `json:"username" validate:"required_if=Enabled true"`
	Password string `json:"password"`
	Folder   string `json:"folder"`
}

// UpdateMailbox replaces the mailbox settings. An empty password keeps the stored one.
func (s *Service) UpdateMailbox(ctx context.Context, id uuid.UUID, params MailboxParams) (*User, error) {
	if err := apperror.Validate(params); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	password := u.Mailbox.Password
	if params.Password != "" {
		password = params.Password
	}

	if params.Enabled && password == "" {
		return nil, apperror.NewValidationError("password", "is required")
	}

	u.Mailbox = Mailbox{
		Enabled:  params.Enabled,
		Host:     params.Host,
		Port:     cmp.Or(params.Port, 993),
		Username: params.Username,
		Password: password,
		Folder:   cmp.Or(params.Folder, "INBOX"),
	}

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("saving mailbox settings: %w", err)
	}

	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
