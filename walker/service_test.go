package walker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestService_ReviewApproves(t *testing.T) {
	repo := newFakeRepo()
	repo.add(Profile{UserID: "walker-1", Qualification: QualificationNurse, ApprovalStatus: ApprovalPending})
	svc := NewService(repo)

	profile, err := svc.Review(context.Background(), ReviewParams{WalkerUserID: "walker-1", Status: ApprovalApproved})
	if err != nil {
		t.Fatalf("review: %v", err)
	}

	if profile.ApprovalStatus != ApprovalApproved {
		t.Fatalf("expected approved, got %s", profile.ApprovalStatus)
	}
	if profile.ApprovedAt == nil {
		t.Fatal("expected approvedAt to be set on approval")
	}
}

func TestService_ReviewRejectClearsTimestamp(t *testing.T) {
	repo := newFakeRepo()
	repo.add(Profile{UserID: "walker-1", Qualification: QualificationVeterinarian, ApprovalStatus: ApprovalPending})
	svc := NewService(repo)

	profile, err := svc.Review(context.Background(), ReviewParams{WalkerUserID: "walker-1", Status: ApprovalRejected})
	if err != nil {
		t.Fatalf("review: %v", err)
	}

	if profile.ApprovalStatus != ApprovalRejected {
		t.Fatalf("expected rejected, got %s", profile.ApprovalStatus)
	}
	if profile.ApprovedAt != nil {
		t.Fatal("expected approvedAt to stay null on rejection")
	}
}

func TestService_ReviewInvalidStatus(t *testing.T) {
	repo := newFakeRepo()
	repo.add(Profile{UserID: "walker-1", ApprovalStatus: ApprovalPending})
	svc := NewService(repo)

	for _, status := range []ApprovalStatus{ApprovalPending, "banned", ""} {
		_, err := svc.Review(context.Background(), ReviewParams{WalkerUserID: "walker-1", Status: status})
		if !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("status %q: expected ErrInvalidStatus, got %v", status, err)
		}
	}

	if repo.reviews != 0 {
		t.Fatalf("expected no repository write for invalid status, got %d", repo.reviews)
	}
}

func TestService_ReviewIsOneWay(t *testing.T) {
	repo := newFakeRepo()
	repo.add(Profile{UserID: "walker-1", ApprovalStatus: ApprovalPending})
	svc := NewService(repo)

	if _, err := svc.Review(context.Background(), ReviewParams{WalkerUserID: "walker-1", Status: ApprovalApproved}); err != nil {
		t.Fatalf("first review: %v", err)
	}

	_, err := svc.Review(context.Background(), ReviewParams{WalkerUserID: "walker-1", Status: ApprovalRejected})
	if !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}

	profile, _ := svc.GetByUserID(context.Background(), "walker-1")
	if profile.ApprovalStatus != ApprovalApproved {
		t.Fatalf("expected approval to stick, got %s", profile.ApprovalStatus)
	}
}

func TestService_ReviewUnknownWalker(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Review(context.Background(), ReviewParams{WalkerUserID: "missing", Status: ApprovalApproved})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestService_ListPending(t *testing.T) {
	repo := newFakeRepo()
	repo.add(Profile{UserID: "walker-1", ApprovalStatus: ApprovalPending})
	repo.add(Profile{UserID: "walker-2", ApprovalStatus: ApprovalApproved})
	repo.add(Profile{UserID: "walker-3", ApprovalStatus: ApprovalPending})
	svc := NewService(repo)

	pending, err := svc.ListPending(context.Background())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending entries, got %d", len(pending))
	}

	approved, err := svc.ListApproved(context.Background())
	if err != nil {
		t.Fatalf("list approved: %v", err)
	}
	if len(approved) != 1 || approved[0].UserID != "walker-2" {
		t.Fatalf("unexpected approved entries: %+v", approved)
	}
}

type fakeRepo struct {
	profiles map[string]Profile
	reviews  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{profiles: make(map[string]Profile)}
}

func (f *fakeRepo) add(p Profile) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	f.profiles[p.UserID] = p
}

func (f *fakeRepo) CreateProfile(ctx context.Context, tx pgx.Tx, params CreateProfileParams) (Profile, error) {
	if _, exists := f.profiles[params.UserID]; exists {
		return Profile{}, ErrDuplicateProfile
	}
	p := Profile{
		UserID:          params.UserID,
		Qualification:   params.Qualification,
		Area:            params.Area,
		YearsExperience: params.YearsExperience,
		Introduction:    params.Introduction,
		ApprovalStatus:  ApprovalPending,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	f.profiles[p.UserID] = p
	return p, nil
}

func (f *fakeRepo) GetByUserID(ctx context.Context, userID string) (Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeRepo) ListByStatus(ctx context.Context, status ApprovalStatus) ([]Entry, error) {
	out := make([]Entry, 0, len(f.profiles))
	for _, p := range f.profiles {
		if p.ApprovalStatus == status {
			out = append(out, Entry{Profile: p})
		}
	}
	return out, nil
}

func (f *fakeRepo) Review(ctx context.Context, params ReviewParams) (Profile, error) {
	f.reviews++
	p, ok := f.profiles[params.WalkerUserID]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	if p.ApprovalStatus != ApprovalPending {
		return Profile{}, ErrAlreadyReviewed
	}
	p.ApprovalStatus = params.Status
	if params.Status == ApprovalApproved {
		now := time.Now().UTC()
		p.ApprovedAt = &now
	} else {
		p.ApprovedAt = nil
	}
	p.UpdatedAt = time.Now().UTC()
	f.profiles[p.UserID] = p
	return p, nil
}
