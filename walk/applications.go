package walk

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrApplicationNotFound signals the application does not exist on the request.
	ErrApplicationNotFound = errors.New("walk: application not found")
	// ErrDuplicateApplication signals a second bid by the same walker.
	ErrDuplicateApplication = errors.New("walk: application already exists")
	// ErrRequestNotOpen signals a bid or selection on a request past open.
	ErrRequestNotOpen = errors.New("walk: request is not open")
	// ErrWalkerNotApproved signals a bid from an unapproved walker.
	ErrWalkerNotApproved = errors.New("walk: walker is not approved")
	// ErrOwnRequest signals a walker bidding on their own request.
	ErrOwnRequest = errors.New("walk: cannot apply to own request")
	// ErrApplicationNotPending signals selecting an already-decided application.
	ErrApplicationNotPending = errors.New("walk: application is not pending")
)

// ApplyParams enumerates the fields of a new application.
type ApplyParams struct {
	RequestID string
	WalkerID  string
	Message   *string
}

// SelectParams identifies the application an owner picks for their request.
type SelectParams struct {
	RequestID     string
	OwnerID       string
	ApplicationID string
}

// SelectionResult bundles the confirmed request and the winning application.
type SelectionResult struct {
	Request     Request
	Application Application
}

// ApplicationRepository handles data access for walker applications,
// including the transactional selection workflow.
type ApplicationRepository interface {
	Apply(ctx context.Context, params ApplyParams) (Application, error)
	ListForRequest(ctx context.Context, requestID, ownerID string) ([]ApplicationEntry, error)
	ListForWalker(ctx context.Context, walkerID string) ([]WalkerApplication, error)
	Select(ctx context.Context, params SelectParams) (SelectionResult, error)
}

// PGApplicationRepository implements ApplicationRepository backed by PostgreSQL.
type PGApplicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository creates a PostgreSQL-backed application repository.
func NewApplicationRepository(pool *pgxpool.Pool) *PGApplicationRepository {
	return &PGApplicationRepository{pool: pool}
}

const applicationColumns = `id, request_id, walker_id, message, status, created_at`

// Apply inserts a pending bid. The request is locked while the guards run so
// a concurrent selection cannot slip a bid onto a just-confirmed request.
func (r *PGApplicationRepository) Apply(ctx context.Context, params ApplyParams) (Application, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Application{}, fmt.Errorf("walk: begin apply tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status  Status
		ownerID string
	)
	if err := tx.QueryRow(ctx, `
		SELECT status, owner_id
		FROM walk_requests
		WHERE id = $1
		FOR UPDATE
	`, params.RequestID).Scan(&status, &ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, fmt.Errorf("walk: lock request for apply: %w", err)
	}
	if status != StatusOpen {
		return Application{}, ErrRequestNotOpen
	}
	if ownerID == params.WalkerID {
		return Application{}, ErrOwnRequest
	}

	var approval string
	if err := tx.QueryRow(ctx, `
		SELECT approval_status
		FROM walker_profiles
		WHERE user_id = $1
	`, params.WalkerID).Scan(&approval); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, ErrWalkerNotApproved
		}
		return Application{}, fmt.Errorf("walk: check walker approval: %w", err)
	}
	if approval != "approved" {
		return Application{}, ErrWalkerNotApproved
	}

	const insertSQL = `
		INSERT INTO applications (request_id, walker_id, message, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING ` + applicationColumns

	app, err := scanApplication(tx.QueryRow(ctx, insertSQL, params.RequestID, params.WalkerID, params.Message))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Application{}, ErrDuplicateApplication
		}
		return Application{}, fmt.Errorf("walk: insert application: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Application{}, fmt.Errorf("walk: commit apply: %w", err)
	}

	return app, nil
}

// ListForRequest returns a request's applications with walker credentials.
// Only the owning user may see them.
func (r *PGApplicationRepository) ListForRequest(ctx context.Context, requestID, ownerID string) ([]ApplicationEntry, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM walk_requests WHERE id = $1 AND owner_id = $2)`,
		requestID, ownerID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("walk: verify request owner: %w", err)
	}
	if !exists {
		return nil, ErrRequestNotOwned
	}

	const query = `
		SELECT a.id, a.request_id, a.walker_id, a.message, a.status, a.created_at,
		       u.name, wp.qualification, wp.area
		FROM applications a
		JOIN users u ON u.id = a.walker_id
		JOIN walker_profiles wp ON wp.user_id = a.walker_id
		WHERE a.request_id = $1
		ORDER BY a.created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("walk: list applications: %w", err)
	}
	defer rows.Close()

	entries := make([]ApplicationEntry, 0, 8)
	for rows.Next() {
		var e ApplicationEntry
		if err := rows.Scan(
			&e.ID,
			&e.RequestID,
			&e.WalkerID,
			&e.Message,
			&e.Status,
			&e.CreatedAt,
			&e.WalkerName,
			&e.Qualification,
			&e.Area,
		); err != nil {
			return nil, fmt.Errorf("walk: scan application entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("walk: iterate application entries: %w", err)
	}

	return entries, nil
}

// ListForWalker returns the walker's own bids joined with their requests,
// newest first.
func (r *PGApplicationRepository) ListForWalker(ctx context.Context, walkerID string) ([]WalkerApplication, error) {
	const query = `
		SELECT a.id, a.request_id, a.walker_id, a.message, a.status, a.created_at,
		       r.status, r.preferred_at, r.address, p.name
		FROM applications a
		JOIN walk_requests r ON r.id = a.request_id
		JOIN pets p ON p.id = r.pet_id
		WHERE a.walker_id = $1
		ORDER BY a.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, walkerID)
	if err != nil {
		return nil, fmt.Errorf("walk: list walker applications: %w", err)
	}
	defer rows.Close()

	out := make([]WalkerApplication, 0, 8)
	for rows.Next() {
		var wa WalkerApplication
		if err := rows.Scan(
			&wa.ID,
			&wa.RequestID,
			&wa.WalkerID,
			&wa.Message,
			&wa.Status,
			&wa.CreatedAt,
			&wa.RequestStatus,
			&wa.PreferredAt,
			&wa.Address,
			&wa.PetName,
		); err != nil {
			return nil, fmt.Errorf("walk: scan walker application: %w", err)
		}
		out = append(out, wa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("walk: iterate walker applications: %w", err)
	}

	return out, nil
}

// Select confirms the request with the chosen application in one
// transaction: the winning bid becomes selected, every sibling bid is
// rejected, and the request moves to confirmed with the walker recorded.
// The request row lock serializes concurrent selections so exactly one bid
// can ever win.
func (r *PGApplicationRepository) Select(ctx context.Context, params SelectParams) (SelectionResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return SelectionResult{}, fmt.Errorf("walk: begin select tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status  Status
		ownerID string
	)
	if err := tx.QueryRow(ctx, `
		SELECT status, owner_id
		FROM walk_requests
		WHERE id = $1
		FOR UPDATE
	`, params.RequestID).Scan(&status, &ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SelectionResult{}, ErrNotFound
		}
		return SelectionResult{}, fmt.Errorf("walk: lock request for select: %w", err)
	}
	if ownerID != params.OwnerID {
		return SelectionResult{}, ErrRequestNotOwned
	}
	if status != StatusOpen {
		return SelectionResult{}, ErrRequestNotOpen
	}

	var (
		appStatus ApplicationStatus
		walkerID  string
	)
	if err := tx.QueryRow(ctx, `
		SELECT status, walker_id
		FROM applications
		WHERE id = $1 AND request_id = $2
	`, params.ApplicationID, params.RequestID).Scan(&appStatus, &walkerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SelectionResult{}, ErrApplicationNotFound
		}
		return SelectionResult{}, fmt.Errorf("walk: load application: %w", err)
	}
	if appStatus != ApplicationPending {
		return SelectionResult{}, ErrApplicationNotPending
	}

	const selectSQL = `
		UPDATE applications
		SET status = 'selected'
		WHERE id = $1
		RETURNING ` + applicationColumns

	app, err := scanApplication(tx.QueryRow(ctx, selectSQL, params.ApplicationID))
	if err != nil {
		return SelectionResult{}, fmt.Errorf("walk: mark selected: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE applications
		SET status = 'rejected'
		WHERE request_id = $1 AND id <> $2 AND status = 'pending'
	`, params.RequestID, params.ApplicationID); err != nil {
		return SelectionResult{}, fmt.Errorf("walk: reject siblings: %w", err)
	}

	const confirmSQL = `
		UPDATE walk_requests
		SET status = 'confirmed',
		    selected_walker_id = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + requestColumns

	req, err := scanRequest(tx.QueryRow(ctx, confirmSQL, params.RequestID, walkerID))
	if err != nil {
		return SelectionResult{}, fmt.Errorf("walk: confirm request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return SelectionResult{}, fmt.Errorf("walk: commit select: %w", err)
	}

	return SelectionResult{Request: req, Application: app}, nil
}

func scanApplication(row pgx.Row) (Application, error) {
	var app Application
	return app, row.Scan(
		&app.ID,
		&app.RequestID,
		&app.WalkerID,
		&app.Message,
		&app.Status,
		&app.CreatedAt,
	)
}
