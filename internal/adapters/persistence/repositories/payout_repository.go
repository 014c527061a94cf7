package repositories

import (
	"context"

	"mediconnect/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutRepository handles payout data access
type PayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// Create creates a new payout request on the given transaction handle
func (r *PayoutRepository) Create(tx *gorm.DB, payout *models.Payout) error {
	return tx.Create(payout).Error
}

// GetByID gets a payout by ID
func (r *PayoutRepository) GetByID(ctx context.Context, id uint) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Preload("Doctor").
		First(&payout, id).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// GetByIDForUpdate re-reads a payout row with a FOR UPDATE lock on the
// given transaction handle
func (r *PayoutRepository) GetByIDForUpdate(tx *gorm.DB, id uint) (*models.Payout, error) {
	var payout models.Payout
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payout, id).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// HasProcessing reports whether the doctor already has a PROCESSING payout.
// It reads on the given transaction handle so callers can make the check
// while holding the doctor-row lock.
func (r *PayoutRepository) HasProcessing(tx *gorm.DB, doctorID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Payout{}).
		Where("doctor_id = ? AND status = ?", doctorID, models.PayoutStatusProcessing).
		Count(&count).Error
	return count > 0, err
}

// GetByDoctor returns payout requests for a doctor, most recent first
func (r *PayoutRepository) GetByDoctor(ctx context.Context, doctorID uint) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("created_at DESC").
		Find(&payouts).Error
	return payouts, err
}

// List returns payouts filtered by status with pagination
func (r *PayoutRepository) List(ctx context.Context, status string, offset, limit int) ([]models.Payout, int64, error) {
	var payouts []models.Payout
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Payout{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	query.Count(&total)

	err := query.
		Preload("Doctor").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&payouts).Error
	return payouts, total, err
}

// Update saves payout mutations on the given transaction handle
func (r *PayoutRepository) Update(tx *gorm.DB, payout *models.Payout) error {
	return tx.Save(payout).Error
}
