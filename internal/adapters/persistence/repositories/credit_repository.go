package repositories

import (
	"context"
	"fmt"

	"mediconnect/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// CreditRepository is the escrow ledger: the only code path allowed to
// mutate users.credits, so every balance change is paired with its
// append-only credit_transactions row in the same atomic unit.
type CreditRepository struct {
	db *gorm.DB
}

// NewCreditRepository creates a new credit repository
func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// MoveCredits writes one CreditTransaction row and applies the matching
// delta to users.credits, both on the caller's transaction handle. It never
// commits on its own and never decides whether a movement should happen.
func (r *CreditRepository) MoveCredits(tx *gorm.DB, userID uint, amount int, txType string) error {
	if amount == 0 {
		return fmt.Errorf("credit movement amount must be non-zero")
	}

	record := &models.CreditTransaction{
		UserID: userID,
		Amount: amount,
		Type:   txType,
	}
	if err := tx.Create(record).Error; err != nil {
		return err
	}

	result := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("credits", gorm.Expr("credits + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// GetByUser returns the ledger for a user, most recent first
func (r *CreditRepository) GetByUser(ctx context.Context, userID uint, offset, limit int) ([]models.CreditTransaction, int64, error) {
	var transactions []models.CreditTransaction
	var total int64

	r.db.WithContext(ctx).Model(&models.CreditTransaction{}).
		Where("user_id = ?", userID).
		Count(&total)

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&transactions).Error
	return transactions, total, err
}

// SumByUser returns the ledger sum for a user. It must always equal the
// cached users.credits value; the admin dashboard surfaces any drift.
func (r *CreditRepository) SumByUser(ctx context.Context, userID uint) (int64, error) {
	var sum *int64
	err := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).
		Select("SUM(amount)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

// CountMismatchedBalances counts users whose cached balance has drifted
// from their ledger sum
func (r *CreditRepository) CountMismatchedBalances(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM users u
		WHERE u.deleted_at IS NULL
		  AND u.credits <> COALESCE(
			(SELECT SUM(ct.amount) FROM credit_transactions ct WHERE ct.user_id = u.id), 0)
	`).Scan(&count).Error
	return count, err
}
