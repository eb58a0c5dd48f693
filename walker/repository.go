package walker

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrProfileNotFound signals that no profile exists for the user.
	ErrProfileNotFound = errors.New("walker: profile not found")
	// ErrDuplicateProfile signals a second profile insert for the same user.
	ErrDuplicateProfile = errors.New("walker: profile already exists")
	// ErrAlreadyReviewed signals a review of a non-pending profile.
	ErrAlreadyReviewed = errors.New("walker: profile already reviewed")
)

// CreateProfileParams contains write parameters for a new walker profile.
// Profiles are always created pending review.
type CreateProfileParams struct {
	UserID          string
	Qualification   Qualification
	Area            string
	YearsExperience *int
	Introduction    *string
}

// ReviewParams identifies the profile and verdict of an admin review.
type ReviewParams struct {
	WalkerUserID string
	Status       ApprovalStatus
}

// Repository handles data access for walker profiles.
type Repository interface {
	CreateProfile(ctx context.Context, tx pgx.Tx, params CreateProfileParams) (Profile, error)
	GetByUserID(ctx context.Context, userID string) (Profile, error)
	ListByStatus(ctx context.Context, status ApprovalStatus) ([]Entry, error)
	Review(ctx context.Context, params ReviewParams) (Profile, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed walker repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const profileColumns = `user_id, qualification, area, years_experience, introduction, approval_status, approved_at, created_at, updated_at`

// CreateProfile inserts a pending profile inside the caller's transaction so
// it commits or rolls back together with the owning user row.
func (r *PGRepository) CreateProfile(ctx context.Context, tx pgx.Tx, params CreateProfileParams) (Profile, error) {
	const insertSQL = `
		INSERT INTO walker_profiles (user_id, qualification, area, years_experience, introduction, approval_status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING ` + profileColumns

	profile, err := scanProfile(tx.QueryRow(ctx, insertSQL,
		params.UserID,
		params.Qualification,
		params.Area,
		params.YearsExperience,
		params.Introduction,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Profile{}, ErrDuplicateProfile
		}
		return Profile{}, fmt.Errorf("walker: create profile: %w", err)
	}

	return profile, nil
}

// GetByUserID retrieves the profile attached to a walker account.
func (r *PGRepository) GetByUserID(ctx context.Context, userID string) (Profile, error) {
	const selectSQL = `
		SELECT ` + profileColumns + `
		FROM walker_profiles
		WHERE user_id = $1
	`

	profile, err := scanProfile(r.pool.QueryRow(ctx, selectSQL, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, fmt.Errorf("walker: get profile: %w", err)
	}

	return profile, nil
}

// ListByStatus returns profiles in the given review state joined with the
// owning account, newest first. Backs both the admin queue (pending) and the
// owner-facing directory (approved).
func (r *PGRepository) ListByStatus(ctx context.Context, status ApprovalStatus) ([]Entry, error) {
	const query = `
		SELECT p.user_id, p.qualification, p.area, p.years_experience, p.introduction,
		       p.approval_status, p.approved_at, p.created_at, p.updated_at,
		       u.name, u.email
		FROM walker_profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.approval_status = $1
		ORDER BY p.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("walker: list by status: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, 8)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.UserID,
			&e.Qualification,
			&e.Area,
			&e.YearsExperience,
			&e.Introduction,
			&e.ApprovalStatus,
			&e.ApprovedAt,
			&e.CreatedAt,
			&e.UpdatedAt,
			&e.Name,
			&e.Email,
		); err != nil {
			return nil, fmt.Errorf("walker: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("walker: iterate entries: %w", err)
	}

	return entries, nil
}

// Review applies an admin verdict to the single pending profile of a walker.
// The row is locked for the duration of the transaction so concurrent reviews
// serialize instead of racing last-write-wins.
func (r *PGRepository) Review(ctx context.Context, params ReviewParams) (Profile, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("walker: begin review tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current ApprovalStatus
	if err := tx.QueryRow(ctx, `
		SELECT approval_status
		FROM walker_profiles
		WHERE user_id = $1
		FOR UPDATE
	`, params.WalkerUserID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, fmt.Errorf("walker: lock profile: %w", err)
	}

	if current != ApprovalPending {
		return Profile{}, ErrAlreadyReviewed
	}

	const updateSQL = `
		UPDATE walker_profiles
		SET approval_status = $2,
		    approved_at = CASE WHEN $2 = 'approved' THEN now() ELSE NULL END,
		    updated_at = now()
		WHERE user_id = $1
		RETURNING ` + profileColumns

	profile, err := scanProfile(tx.QueryRow(ctx, updateSQL, params.WalkerUserID, params.Status))
	if err != nil {
		return Profile{}, fmt.Errorf("walker: apply review: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Profile{}, fmt.Errorf("walker: commit review: %w", err)
	}

	return profile, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	return p, row.Scan(
		&p.UserID,
		&p.Qualification,
		&p.Area,
		&p.YearsExperience,
		&p.Introduction,
		&p.ApprovalStatus,
		&p.ApprovedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}
