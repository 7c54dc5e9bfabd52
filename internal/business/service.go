package business

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=business
type Repository interface {
	CreateEntity(ctx context.Context, e *Entity) error
	GetEntity(ctx context.Context, ownerID, id uuid.UUID) (*Entity, error)
	FindByTaxID(ctx context.Context, ownerID uuid.UUID, taxID string) (*Entity, error)
	ListEntities(ctx context.Context, filter ListFilter) ([]*Entity, error)
	UpdateEntity(ctx context.Context, e *Entity) error
	DeleteEntity(ctx context.Context, ownerID, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ListFilter struct {
	OwnerID uuid.UUID
	Kind    *Kind
	Search  string
}

type Params struct {
	Kind    Kind    `json:"kind" validate:"omitempty,oneof=customer supplier both"`
	Name    string  `json:"name" validate:"required,max=255"`
	TaxID   *string `json:"tax_id" validate:"omitempty,max=32"`
	Email   string  `json:"email" validate:"omitempty,email"`
	Phone   string  `json:"phone" validate:"max=64"`
	Address string  `json:"address" validate:"max=255"`
	City    string  `json:"city" validate:"max=128"`
	Country string  `json:"country" validate:"max=64"`
	Notes   string  `json:"notes"`
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, params Params) (*Entity, error) {
	if err := apperror.Validate(params); err != nil {
		return nil, err
	}

	e := &Entity{UserID: ownerID}
	apply(e, params)

	if err := s.repo.CreateEntity(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Entity, error) {
	return s.repo.GetEntity(ctx, ownerID, id)
}

// FindByTaxID looks up an owner's entity by normalized tax id.
func (s *Service) FindByTaxID(ctx context.Context, ownerID uuid.UUID, taxID string) (*Entity, error) {
	normalized := NormalizeTaxID(taxID)
	if normalized == "" {
		return nil, ErrNotFound
	}

	return s.repo.FindByTaxID(ctx, ownerID, normalized)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Entity, error) {
	return s.repo.ListEntities(ctx, filter)
}

func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, params Params) (*Entity, error) {
	if err := apperror.Validate(params); err != nil {
		return nil, err
	}

	e, err := s.repo.GetEntity(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	apply(e, params)

	if err := s.repo.UpdateEntity(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.repo.DeleteEntity(ctx, ownerID, id)
}

type ResolveParams struct {
	TaxID string
	Name  string
	Kind  Kind
}

// Resolve returns the owner's entity with the given tax id, creating it when absent.
// The boolean reports whether a new entity was created.
func (s *Service) Resolve(ctx context.Context, ownerID uuid.UUID, params ResolveParams) (*Entity, bool, error) {
	taxID := NormalizeTaxID(params.TaxID)
	if taxID == "" {
		return nil, false, apperror.NewValidationError("tax_id", "is required")
	}

	e, err := s.repo.FindByTaxID(ctx, ownerID, taxID)
	if err == nil {
		return e, false, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("finding entity: %w", err)
	}

	e = &Entity{
		UserID: ownerID,
		Kind:   cmp.Or(params.Kind, KindSupplier),
		Name:   cmp.Or(strings.TrimSpace(params.Name), taxID),
		TaxID:  &taxID,
	}

	err = s.repo.CreateEntity(ctx, e)
	if errors.Is(err, ErrTaxIDTaken) {
		// Lost a race with a concurrent creator.
		e, err = s.repo.FindByTaxID(ctx, ownerID, taxID)
		if err != nil {
			return nil, false, fmt.Errorf("finding entity after conflict: %w", err)
		}

		return e, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("creating entity: %w", err)
	}

	return e, true, nil
}

func apply(e *Entity, p Params) {
	e.Kind = cmp.Or(p.Kind, KindSupplier)
	e.Name = strings.TrimSpace(p.Name)
	e.TaxID = nil

	if p.TaxID != nil {
		if tid := NormalizeTaxID(*p.TaxID); tid != "" {
			e.TaxID = &tid
		}
	}

	e.Email = strings.TrimSpace(p.Email)
	e.Phone = p.Phone
	e.Address = p.Address
	e.City = p.City
	e.Country = p.Country
	e.Notes = p.Notes
}
