package walk

import (
	"time"

	"walkmatch/walker"
)

// Status is the lifecycle of a walk request.
//
//	open --(owner selects walker)--> confirmed --(owner marks done)--> completed
//	open|confirmed --(owner cancels)--> cancelled
//
// completed and cancelled are terminal.
type Status string

const (
	StatusOpen      Status = "open"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ApplicationStatus is the lifecycle of a walker's bid on a request.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationSelected ApplicationStatus = "selected"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Request mirrors the walk_requests table.
type Request struct {
	ID               string
	OwnerID          string
	PetID            string
	PreferredAt      time.Time
	Address          string
	Status           Status
	SelectedWalkerID *string
	CancelReason     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RequestSummary decorates a request with the fields listings need.
type RequestSummary struct {
	Request
	PetName          string
	ApplicationCount int
}

// Application mirrors the applications table.
type Application struct {
	ID        string
	RequestID string
	WalkerID  string
	Message   *string
	Status    ApplicationStatus
	CreatedAt time.Time
}

// ApplicationEntry is an application joined with walker credentials, as
// shown to the owning user when picking a walker.
type ApplicationEntry struct {
	Application
	WalkerName    string
	Qualification walker.Qualification
	Area          string
}

// WalkerApplication is an application joined with its request, as shown to
// the bidding walker.
type WalkerApplication struct {
	Application
	RequestStatus Status
	PreferredAt   time.Time
	Address       string
	PetName       string
}
