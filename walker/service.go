package walker

import (
	"context"
	"errors"
)

// ErrInvalidStatus signals a review verdict outside {approved, rejected}.
var ErrInvalidStatus = errors.New("walker: invalid review status")

// Service handles walker credential review business logic.
type Service struct {
	repo Repository
}

// NewService creates a walker service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Review validates the verdict and applies it to the walker's profile.
// Only pending profiles can be reviewed; the transition is one-way.
func (s *Service) Review(ctx context.Context, params ReviewParams) (Profile, error) {
	if params.WalkerUserID == "" {
		return Profile{}, ErrProfileNotFound
	}
	if params.Status != ApprovalApproved && params.Status != ApprovalRejected {
		return Profile{}, ErrInvalidStatus
	}
	return s.repo.Review(ctx, params)
}

// ListPending returns the admin review queue, newest first.
func (s *Service) ListPending(ctx context.Context) ([]Entry, error) {
	return s.repo.ListByStatus(ctx, ApprovalPending)
}

// ListApproved returns the directory of walkers available to owners.
func (s *Service) ListApproved(ctx context.Context) ([]Entry, error) {
	return s.repo.ListByStatus(ctx, ApprovalApproved)
}

// GetByUserID returns the profile for a walker account.
func (s *Service) GetByUserID(ctx context.Context, userID string) (Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}
