package walk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the walk request does not exist.
	ErrNotFound = errors.New("walk: request not found")
	// ErrPetNotOwned signals the pet does not belong to the requesting owner.
	ErrPetNotOwned = errors.New("walk: pet not owned by user")
	// ErrRequestNotOwned signals the request belongs to a different owner.
	ErrRequestNotOwned = errors.New("walk: request not owned by user")
)

// Repository handles data access for walk requests. Write operations are
// transaction scoped so the service controls the commit boundary.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, params CreateRequestParams) (Request, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Request, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status, cancelReason *string) (Request, error)
	ListByOwner(ctx context.Context, ownerID string) ([]RequestSummary, error)
	ListOpen(ctx context.Context) ([]RequestSummary, error)
}

// CreateRequestParams enumerates the fields of a new walk request.
type CreateRequestParams struct {
	OwnerID     string
	PetID       string
	PreferredAt time.Time
	Address     string
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed walk request repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const requestColumns = `id, owner_id, pet_id, preferred_at, address, status, selected_walker_id, cancel_reason, created_at, updated_at`

// Create inserts a new open request. The pet ownership guard is part of the
// insert itself so a foreign pet id can never produce a row.
func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, params CreateRequestParams) (Request, error) {
	const query = `
		INSERT INTO walk_requests (owner_id, pet_id, preferred_at, address, status)
		SELECT $1, $2, $3, $4, 'open'
		FROM pets p
		WHERE p.id = $2 AND p.owner_id = $1
		RETURNING ` + requestColumns

	req, err := scanRequest(tx.QueryRow(ctx, query,
		params.OwnerID,
		params.PetID,
		params.PreferredAt,
		params.Address,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrPetNotOwned
		}
		return Request{}, fmt.Errorf("walk: create request: %w", err)
	}

	return req, nil
}

// GetForUpdate locks the request row for the duration of the transaction.
func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Request, error) {
	const query = `
		SELECT ` + requestColumns + `
		FROM walk_requests
		WHERE id = $1
		FOR UPDATE
	`

	req, err := scanRequest(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, fmt.Errorf("walk: get for update: %w", err)
	}

	return req, nil
}

// UpdateStatus writes the new status inside the caller's transaction.
func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status, cancelReason *string) (Request, error) {
	const query = `
		UPDATE walk_requests
		SET status = $2,
		    cancel_reason = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + requestColumns

	req, err := scanRequest(tx.QueryRow(ctx, query, id, status, cancelReason))
	if err != nil {
		return Request{}, fmt.Errorf("walk: update status: %w", err)
	}

	return req, nil
}

// ListByOwner returns the owner's requests with pet name and bid count,
// newest first.
func (r *PGRepository) ListByOwner(ctx context.Context, ownerID string) ([]RequestSummary, error) {
	const query = `
		SELECT r.id, r.owner_id, r.pet_id, r.preferred_at, r.address, r.status,
		       r.selected_walker_id, r.cancel_reason, r.created_at, r.updated_at,
		       p.name,
		       (SELECT COUNT(*) FROM applications a WHERE a.request_id = r.id)
		FROM walk_requests r
		JOIN pets p ON p.id = r.pet_id
		WHERE r.owner_id = $1
		ORDER BY r.created_at DESC
	`

	return r.querySummaries(ctx, query, ownerID)
}

// ListOpen returns requests still accepting applications, soonest walk
// first. This is the browse view for approved walkers.
func (r *PGRepository) ListOpen(ctx context.Context) ([]RequestSummary, error) {
	const query = `
		SELECT r.id, r.owner_id, r.pet_id, r.preferred_at, r.address, r.status,
		       r.selected_walker_id, r.cancel_reason, r.created_at, r.updated_at,
		       p.name,
		       (SELECT COUNT(*) FROM applications a WHERE a.request_id = r.id)
		FROM walk_requests r
		JOIN pets p ON p.id = r.pet_id
		WHERE r.status = 'open'
		ORDER BY r.preferred_at ASC
	`

	return r.querySummaries(ctx, query)
}

func (r *PGRepository) querySummaries(ctx context.Context, query string, args ...any) ([]RequestSummary, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("walk: list requests: %w", err)
	}
	defer rows.Close()

	out := make([]RequestSummary, 0, 8)
	for rows.Next() {
		var s RequestSummary
		if err := rows.Scan(
			&s.ID,
			&s.OwnerID,
			&s.PetID,
			&s.PreferredAt,
			&s.Address,
			&s.Status,
			&s.SelectedWalkerID,
			&s.CancelReason,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.PetName,
			&s.ApplicationCount,
		); err != nil {
			return nil, fmt.Errorf("walk: scan request: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("walk: iterate requests: %w", err)
	}

	return out, nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	return req, row.Scan(
		&req.ID,
		&req.OwnerID,
		&req.PetID,
		&req.PreferredAt,
		&req.Address,
		&req.Status,
		&req.SelectedWalkerID,
		&req.CancelReason,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
}
