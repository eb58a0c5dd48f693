package pet

import "time"

// Pet mirrors the pets table. Breed, age, weight and notes are optional.
type Pet struct {
	ID        string
	OwnerID   string
	Name      string
	Species   string
	Breed     *string
	Age       *int
	Weight    *float64
	Notes     *string
	CreatedAt time.Time
}

// CreateParams enumerates the fields an owner supplies for a new pet.
type CreateParams struct {
	OwnerID string
	Name    string
	Species string
	Breed   *string
	Age     *int
	Weight  *float64
	Notes   *string
}
