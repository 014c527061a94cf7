package repositories

import (
	"context"

	"mediconnect/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// AvailabilityRepository handles doctor availability windows
type AvailabilityRepository struct {
	db *gorm.DB
}

// NewAvailabilityRepository creates a new availability repository
func NewAvailabilityRepository(db *gorm.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Create creates a new availability window
func (r *AvailabilityRepository) Create(ctx context.Context, availability *models.Availability) error {
	return r.db.WithContext(ctx).Create(availability).Error
}

// GetByID gets an availability window by ID
func (r *AvailabilityRepository) GetByID(ctx context.Context, id uint) (*models.Availability, error) {
	var availability models.Availability
	err := r.db.WithContext(ctx).First(&availability, id).Error
	if err != nil {
		return nil, err
	}
	return &availability, nil
}

// GetAvailableByDoctor returns all AVAILABLE windows for a doctor
func (r *AvailabilityRepository) GetAvailableByDoctor(ctx context.Context, doctorID uint) ([]models.Availability, error) {
	var windows []models.Availability
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND status = ?", doctorID, models.AvailabilityStatusAvailable).
		Order("start_time ASC").
		Find(&windows).Error
	return windows, err
}

// GetByDoctor returns all windows for a doctor regardless of status
func (r *AvailabilityRepository) GetByDoctor(ctx context.Context, doctorID uint) ([]models.Availability, error) {
	var windows []models.Availability
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("start_time ASC").
		Find(&windows).Error
	return windows, err
}

// UpdateStatus updates the status of a window
func (r *AvailabilityRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.Availability{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Delete soft deletes an availability window
func (r *AvailabilityRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Availability{}, id).Error
}
