package pet

import (
	"context"
	"errors"
	"strings"
)

// ErrMissingFields signals a create without the required name or species.
var ErrMissingFields = errors.New("pet: name and species are required")

// Service handles pet business logic. Every operation is scoped to the
// calling owner.
type Service struct {
	repo Repository
}

// NewService creates a pet service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new pet for the owner.
func (s *Service) Create(ctx context.Context, params CreateParams) (Pet, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Species = strings.TrimSpace(params.Species)
	if params.Name == "" || params.Species == "" {
		return Pet{}, ErrMissingFields
	}
	return s.repo.Create(ctx, params)
}

// ListByOwner returns the owner's pets, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Pet, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Get returns a single pet. A pet owned by someone else reads as not found.
func (s *Service) Get(ctx context.Context, petID, ownerID string) (Pet, error) {
	p, err := s.repo.GetByID(ctx, petID)
	if err != nil {
		return Pet{}, err
	}
	if p.OwnerID != ownerID {
		return Pet{}, ErrNotFound
	}
	return p, nil
}
