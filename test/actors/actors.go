package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"walkmatch/walk"
	"walkmatch/walker"
)

// Applicant keeps bidding on whatever open requests exist. Rejected bids are
// expected under contention; anything else is a real failure.
func Applicant(ctx context.Context, svc *walk.Service, walkerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		open, err := svc.ListOpen(ctx)
		if err != nil {
			return fmt.Errorf("applicant list open: %w", err)
		}
		if len(open) > 0 {
			target := open[rand.Intn(len(open))]
			msg := fmt.Sprintf("walker %s bid", walkerID)
			_, err := svc.Apply(ctx, walk.ApplyParams{
				RequestID: target.ID,
				WalkerID:  walkerID,
				Message:   &msg,
			})
			if err != nil && !expectedApplyErr(err) {
				return fmt.Errorf("applicant apply: %w", err)
			}
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

func expectedApplyErr(err error) bool {
	return errors.Is(err, walk.ErrDuplicateApplication) ||
		errors.Is(err, walk.ErrRequestNotOpen) ||
		errors.Is(err, walk.ErrWalkerNotApproved) ||
		errors.Is(err, walk.ErrOwnRequest) ||
		errors.Is(err, walk.ErrNotFound)
}

// Poster keeps the market stocked with open requests.
func Poster(ctx context.Context, svc *walk.Service, ownerID, petID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		_, err := svc.CreateRequest(ctx, walk.CreateRequestParams{
			OwnerID:     ownerID,
			PetID:       petID,
			PreferredAt: time.Now().Add(time.Duration(1+rand.Intn(72)) * time.Hour),
			Address:     fmt.Sprintf("stress town %d", rand.Intn(1000)),
		})
		if err != nil {
			return fmt.Errorf("poster create: %w", err)
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
}

// Selector races to confirm a pending application on the owner's open
// requests. Losing the race to another selector or a state change is expected.
func Selector(ctx context.Context, svc *walk.Service, ownerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		summaries, err := svc.ListByOwner(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("selector list: %w", err)
		}
		for _, summary := range summaries {
			if summary.Status != walk.StatusOpen || summary.ApplicationCount == 0 {
				continue
			}
			entries, err := svc.ListApplications(ctx, summary.ID, ownerID)
			if err != nil {
				if errors.Is(err, walk.ErrRequestNotOwned) {
					continue
				}
				return fmt.Errorf("selector list applications: %w", err)
			}
			pending := make([]walk.ApplicationEntry, 0, len(entries))
			for _, e := range entries {
				if e.Status == walk.ApplicationPending {
					pending = append(pending, e)
				}
			}
			if len(pending) == 0 {
				continue
			}
			pick := pending[rand.Intn(len(pending))]
			_, err = svc.SelectWalker(ctx, walk.SelectParams{
				RequestID:     summary.ID,
				OwnerID:       ownerID,
				ApplicationID: pick.ID,
			})
			if err != nil && !expectedSelectErr(err) {
				return fmt.Errorf("selector select: %w", err)
			}
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

func expectedSelectErr(err error) bool {
	return errors.Is(err, walk.ErrRequestNotOpen) ||
		errors.Is(err, walk.ErrApplicationNotPending) ||
		errors.Is(err, walk.ErrApplicationNotFound) ||
		errors.Is(err, walk.ErrNotFound)
}

// Finisher drives confirmed requests to completed or cancelled.
func Finisher(ctx context.Context, svc *walk.Service, ownerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		summaries, err := svc.ListByOwner(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("finisher list: %w", err)
		}
		for _, summary := range summaries {
			if summary.Status != walk.StatusConfirmed {
				continue
			}
			if rand.Intn(2) == 0 {
				_, err = svc.Complete(ctx, walk.CompleteParams{RequestID: summary.ID, OwnerID: ownerID})
			} else {
				reason := "stress cancel"
				_, err = svc.Cancel(ctx, walk.CancelParams{RequestID: summary.ID, OwnerID: ownerID, Reason: &reason})
			}
			if err != nil && !errors.Is(err, walk.ErrInvalidTransition) && !errors.Is(err, walk.ErrNotFound) {
				return fmt.Errorf("finisher transition: %w", err)
			}
		}
		time.Sleep(time.Duration(100+rand.Intn(100)) * time.Millisecond)
	}
}

// Reviewer plays the admin working through the pending walker queue. Losing a
// review race surfaces as ErrAlreadyReviewed, which is fine.
func Reviewer(ctx context.Context, svc *walker.Service, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		pending, err := svc.ListPending(ctx)
		if err != nil {
			return fmt.Errorf("reviewer list pending: %w", err)
		}
		for _, entry := range pending {
			verdict := walker.ApprovalApproved
			if rand.Intn(4) == 0 {
				verdict = walker.ApprovalRejected
			}
			_, err := svc.Review(ctx, walker.ReviewParams{WalkerUserID: entry.UserID, Status: verdict})
			if err != nil && !errors.Is(err, walker.ErrAlreadyReviewed) && !errors.Is(err, walker.ErrProfileNotFound) {
				return fmt.Errorf("reviewer review: %w", err)
			}
		}
		time.Sleep(time.Duration(200+rand.Intn(200)) * time.Millisecond)
	}
}
