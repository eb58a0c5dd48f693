package walker

import "time"

// Qualification is the credential class a walker registers with.
type Qualification string

const (
	QualificationVeterinarian Qualification = "veterinarian"
	QualificationNurse        Qualification = "nurse"
)

// ApprovalStatus is the review state of a walker profile. Transitions are
// one-way: pending may move to approved or rejected, nothing else.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Profile is the 1:1 credential extension of a walker account.
// It mirrors the walker_profiles table.
type Profile struct {
	UserID          string
	Qualification   Qualification
	Area            string
	YearsExperience *int
	Introduction    *string
	ApprovalStatus  ApprovalStatus
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Entry pairs a profile with the account fields needed by listings.
type Entry struct {
	Profile
	Name  string
	Email string
}

func IsValidQualification(q Qualification) bool {
	switch q {
	case QualificationVeterinarian, QualificationNurse:
		return true
	default:
		return false
	}
}
