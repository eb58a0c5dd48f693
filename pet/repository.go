package pet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested pet does not exist.
var ErrNotFound = errors.New("pet: not found")

// Repository handles data access for pets.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Pet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Pet, error)
	GetByID(ctx context.Context, petID string) (Pet, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed pet repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const petColumns = `id, owner_id, name, species, breed, age, weight, notes, created_at`

// Create inserts a new pet owned by the given user.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Pet, error) {
	const insertSQL = `
		INSERT INTO pets (owner_id, name, species, breed, age, weight, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + petColumns

	p, err := scanPet(r.pool.QueryRow(ctx, insertSQL,
		params.OwnerID,
		params.Name,
		params.Species,
		params.Breed,
		params.Age,
		params.Weight,
		params.Notes,
	))
	if err != nil {
		return Pet{}, fmt.Errorf("pet: create: %w", err)
	}

	return p, nil
}

// ListByOwner returns the owner's pets, newest first.
func (r *PGRepository) ListByOwner(ctx context.Context, ownerID string) ([]Pet, error) {
	const query = `
		SELECT ` + petColumns + `
		FROM pets
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("pet: list by owner: %w", err)
	}
	defer rows.Close()

	pets := make([]Pet, 0, 8)
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("pet: scan: %w", err)
		}
		pets = append(pets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pet: iterate: %w", err)
	}

	return pets, nil
}

// GetByID retrieves a pet by its primary key.
func (r *PGRepository) GetByID(ctx context.Context, petID string) (Pet, error) {
	const query = `
		SELECT ` + petColumns + `
		FROM pets
		WHERE id = $1
	`

	p, err := scanPet(r.pool.QueryRow(ctx, query, petID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pet{}, ErrNotFound
		}
		return Pet{}, fmt.Errorf("pet: get by id: %w", err)
	}

	return p, nil
}

func scanPet(row pgx.Row) (Pet, error) {
	var p Pet
	return p, row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Species,
		&p.Breed,
		&p.Age,
		&p.Weight,
		&p.Notes,
		&p.CreatedAt,
	)
}
