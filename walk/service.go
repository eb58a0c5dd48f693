package walk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrMissingFields signals a create without pet, time or address.
	ErrMissingFields = errors.New("walk: pet, preferred time and address are required")
	// ErrInvalidTransition signals a status change from a terminal state.
	ErrInvalidTransition = errors.New("walk: invalid status transition")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service handles walk request business logic.
type Service struct {
	pool TxBeginner
	repo Repository
	apps ApplicationRepository
	now  func() time.Time
}

// NewService creates a walk service.
func NewService(pool TxBeginner, repo Repository, apps ApplicationRepository) *Service {
	return &Service{
		pool: pool,
		repo: repo,
		apps: apps,
		now:  time.Now,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateRequest opens a new walk request for one of the owner's pets.
func (s *Service) CreateRequest(ctx context.Context, params CreateRequestParams) (Request, error) {
	params.Address = strings.TrimSpace(params.Address)
	if params.PetID == "" || params.Address == "" || params.PreferredAt.IsZero() {
		return Request{}, ErrMissingFields
	}
	if params.OwnerID == "" {
		return Request{}, fmt.Errorf("walk: missing owner id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Request{}, fmt.Errorf("walk: begin create tx: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := s.repo.Create(ctx, tx, params)
	if err != nil {
		return Request{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, fmt.Errorf("walk: commit create: %w", err)
	}

	return req, nil
}

// ListByOwner returns the owner's requests, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]RequestSummary, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// ListOpen returns requests still accepting applications.
func (s *Service) ListOpen(ctx context.Context) ([]RequestSummary, error) {
	return s.repo.ListOpen(ctx)
}

// Apply places a walker's bid on an open request.
func (s *Service) Apply(ctx context.Context, params ApplyParams) (Application, error) {
	if params.RequestID == "" || params.WalkerID == "" {
		return Application{}, fmt.Errorf("walk: apply missing ids")
	}
	if params.Message != nil {
		trimmed := strings.TrimSpace(*params.Message)
		if trimmed == "" {
			params.Message = nil
		} else {
			params.Message = &trimmed
		}
	}
	return s.apps.Apply(ctx, params)
}

// ListApplications returns a request's bids to its owner.
func (s *Service) ListApplications(ctx context.Context, requestID, ownerID string) ([]ApplicationEntry, error) {
	return s.apps.ListForRequest(ctx, requestID, ownerID)
}

// ListApplicationsForWalker returns the walker's own bids.
func (s *Service) ListApplicationsForWalker(ctx context.Context, walkerID string) ([]WalkerApplication, error) {
	return s.apps.ListForWalker(ctx, walkerID)
}

// SelectWalker confirms the request with the chosen application. Exactly one
// application ends up selected; every other pending bid is rejected in the
// same transaction.
func (s *Service) SelectWalker(ctx context.Context, params SelectParams) (SelectionResult, error) {
	if params.RequestID == "" || params.ApplicationID == "" || params.OwnerID == "" {
		return SelectionResult{}, fmt.Errorf("walk: select missing ids")
	}
	return s.apps.Select(ctx, params)
}

// CompleteParams identifies the request an owner marks as done.
type CompleteParams struct {
	RequestID string
	OwnerID   string
}

// Complete moves a confirmed request to completed.
func (s *Service) Complete(ctx context.Context, params CompleteParams) (Request, error) {
	return s.transition(ctx, params.RequestID, params.OwnerID, func(req Request) (Status, error) {
		if req.Status != StatusConfirmed {
			return "", ErrInvalidTransition
		}
		return StatusCompleted, nil
	}, nil)
}

// CancelParams identifies the request an owner cancels.
type CancelParams struct {
	RequestID string
	OwnerID   string
	Reason    *string
}

// Cancel moves an open or confirmed request to cancelled.
func (s *Service) Cancel(ctx context.Context, params CancelParams) (Request, error) {
	var reason *string
	if params.Reason != nil {
		if trimmed := strings.TrimSpace(*params.Reason); trimmed != "" {
			reason = &trimmed
		}
	}

	return s.transition(ctx, params.RequestID, params.OwnerID, func(req Request) (Status, error) {
		if req.Status != StatusOpen && req.Status != StatusConfirmed {
			return "", ErrInvalidTransition
		}
		return StatusCancelled, nil
	}, reason)
}

func (s *Service) transition(ctx context.Context, requestID, ownerID string, next func(Request) (Status, error), cancelReason *string) (Request, error) {
	if requestID == "" || ownerID == "" {
		return Request{}, fmt.Errorf("walk: transition missing ids")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Request{}, fmt.Errorf("walk: begin transition tx: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := s.repo.GetForUpdate(ctx, tx, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.OwnerID != ownerID {
		return Request{}, ErrRequestNotOwned
	}

	status, err := next(req)
	if err != nil {
		return Request{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, tx, requestID, status, cancelReason)
	if err != nil {
		return Request{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, fmt.Errorf("walk: commit transition: %w", err)
	}

	return updated, nil
}
