package services

import (
	"context"
	"errors"
	"log"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// UserService handles profile and directory business logic
type UserService struct {
	userRepo   repositories.UserRepository
	creditRepo *repositories.CreditRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository, creditRepo *repositories.CreditRepository) *UserService {
	return &UserService{
		userRepo:   userRepo,
		creditRepo: creditRepo,
	}
}

// UpdateProfileInput represents profile update data
type UpdateProfileInput struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// GetProfile returns a user's own profile
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile updates mutable profile fields
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input *UpdateProfileInput) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Specialty != "" && user.IsDoctor() {
		user.Specialty = input.Specialty
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListDoctors returns the public doctor directory. Only verified doctors
// are bookable, so only they are listed.
func (s *UserService) ListDoctors(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	return s.userRepo.ListDoctors(ctx, true, offset, limit)
}

// GetDoctor returns a single doctor's public profile
func (s *UserService) GetDoctor(ctx context.Context, doctorID uint) (*models.User, error) {
	doctor, err := s.userRepo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return doctor, nil
}

// ListUsers returns users filtered by role, for admin use
func (s *UserService) ListUsers(ctx context.Context, role string, offset, limit int) ([]*models.User, int64, error) {
	return s.userRepo.List(ctx, role, offset, limit)
}

// SetActive suspends or reinstates an account
func (s *UserService) SetActive(ctx context.Context, userID uint, active bool) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("⚠️ User %d active set to %v", userID, active)
	return user, nil
}

// GetLedger returns a user's credit transaction history, newest first
func (s *UserService) GetLedger(ctx context.Context, userID uint, offset, limit int) ([]models.CreditTransaction, int64, error) {
	return s.creditRepo.GetByUser(ctx, userID, offset, limit)
}
