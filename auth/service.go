package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"walkmatch/walker"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrMissingFields signals a registration with required fields absent.
	ErrMissingFields = errors.New("auth: email, password, name and userType are required")
	// ErrInvalidRole signals a role outside the self-registerable set.
	ErrInvalidRole = errors.New("auth: invalid user type")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ProfileCreator creates the companion walker profile inside the
// registration transaction.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, tx pgx.Tx, params walker.CreateProfileParams) (walker.Profile, error)
}

// Service handles authentication business logic.
type Service struct {
	pool     TxBeginner
	repo     Repository
	profiles ProfileCreator
}

// RegisterResult bundles the account and, for walkers, the pending profile
// created alongside it.
type RegisterResult struct {
	User    User
	Profile *walker.Profile
}

// NewService creates a new authentication service.
func NewService(pool TxBeginner, repo Repository, profiles ProfileCreator) *Service {
	return &Service{
		pool:     pool,
		repo:     repo,
		profiles: profiles,
	}
}

// Register creates a new account. When the role is walker, the pending
// credential profile is inserted in the same transaction so a crash can
// never leave a walker account without a profile.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || req.Password == "" || name == "" || req.UserType == "" {
		return RegisterResult{}, ErrMissingFields
	}

	// Admin accounts are never self-registerable; they are seeded directly.
	role := Role(strings.TrimSpace(string(req.UserType)))
	if role != RoleOwner && role != RoleWalker {
		return RegisterResult{}, ErrInvalidRole
	}

	qualification := walker.Qualification(strings.TrimSpace(req.Qualification))
	if role == RoleWalker {
		if qualification == "" {
			qualification = walker.QualificationVeterinarian
		}
		if !walker.IsValidQualification(qualification) {
			return RegisterResult{}, fmt.Errorf("auth: invalid qualification %q", qualification)
		}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("auth: hash password: %w", err)
	}

	var phone *string
	if trimmed := strings.TrimSpace(req.Phone); trimmed != "" {
		phone = &trimmed
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("auth: begin register tx: %w", err)
	}
	defer tx.Rollback(ctx)

	user, err := s.repo.CreateUser(ctx, tx, CreateUserParams{
		Email:        email,
		Name:         name,
		PasswordHash: string(passwordHash),
		Phone:        phone,
		Role:         role,
	})
	if err != nil {
		return RegisterResult{}, err
	}

	result := RegisterResult{User: user}

	if role == RoleWalker {
		profile, err := s.profiles.CreateProfile(ctx, tx, walker.CreateProfileParams{
			UserID:        user.ID,
			Qualification: qualification,
			Area:          strings.TrimSpace(req.Area),
		})
		if err != nil {
			return RegisterResult{}, err
		}
		result.Profile = &profile
	}

	if err := tx.Commit(ctx); err != nil {
		return RegisterResult{}, fmt.Errorf("auth: commit register tx: %w", err)
	}

	return result, nil
}

// Login authenticates a user. A missing account and a wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// GetUserByID retrieves account information by ID.
func (s *Service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureAdmin creates the seeded admin account when it does not exist yet.
// Called once at startup; a duplicate email from a concurrent boot is fine.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) error {
	if email == "" || password == "" {
		return nil
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash admin password: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("auth: begin admin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.repo.CreateUser(ctx, tx, CreateUserParams{
		Email:        email,
		Name:         name,
		PasswordHash: string(passwordHash),
		Role:         RoleAdmin,
	}); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("auth: commit admin tx: %w", err)
	}

	return nil
}

func isValidRole(role Role) bool {
	switch role {
	case RoleOwner, RoleWalker, RoleAdmin:
		return true
	default:
		return false
	}
}
