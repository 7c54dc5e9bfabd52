package category

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
)

var (
	ErrNotFound  = fmt.Errorf("category %w", apperror.ErrNotFound)
	ErrNameTaken = fmt.Errorf("a category with this name already exists: %w", apperror.ErrConflict)
)

// Category is a user scoped label for invoices.
type Category struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=category
type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, ownerID, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context, ownerID uuid.UUID) ([]*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, ownerID, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type Params struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, params Params) (*Category, error) {
	if err := apperror.Validate(params); err != nil {
		return nil, err
	}

	c := &Category{
		UserID: ownerID,
		Name:   strings.TrimSpace(params.Name),
		Color:  params.Color,
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Category, error) {
	return s.repo.GetCategory(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*Category, error) {
	return s.repo.ListCategories(ctx, ownerID)
}

func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, params Params) (*Category, error) {
	if err := apperror.Validate(params); err != nil {
		return nil, err
	}

	c, err := s.repo.GetCategory(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(params.Name)
	c.Color = params.Color

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.repo.DeleteCategory(ctx, ownerID, id)
}
