package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/adapters/persistence/repositories"
	"mediconnect/internal/core/domain"

	"gorm.io/gorm"
)

// Payout errors
var (
	ErrPayoutNotFound    = errors.New("payout not found")
	ErrPayoutPending     = errors.New("a payout request is already being processed")
	ErrPayoutNotPending  = errors.New("payout is not in processing state")
	ErrNoCreditsToPayout = errors.New("no credits available for payout")
	ErrBankDetailsEmpty  = errors.New("bank details are required")
)

// PayoutService converts a doctor's available credit balance into a cash
// payout request. Credits stay on the balance until an admin approves the
// request; approval is the only point a payout moves credits.
type PayoutService struct {
	db              *gorm.DB
	userRepo        repositories.UserRepository
	payoutRepo      *repositories.PayoutRepository
	creditRepo      *repositories.CreditRepository
	settingsService *SettingsService
	notifier        repositories.Notifier
}

// NewPayoutService creates a new payout service
func NewPayoutService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	payoutRepo *repositories.PayoutRepository,
	creditRepo *repositories.CreditRepository,
	settingsService *SettingsService,
	notifier repositories.Notifier,
) *PayoutService {
	return &PayoutService{
		db:              db,
		userRepo:        userRepo,
		payoutRepo:      payoutRepo,
		creditRepo:      creditRepo,
		settingsService: settingsService,
		notifier:        notifier,
	}
}

// RequestInput represents a payout request
type RequestInput struct {
	BankDetails string `json:"bank_details" validate:"required"`
}

// Request creates a PROCESSING payout for the doctor's full available
// balance. At most one PROCESSING payout may exist per doctor; the pending
// check runs inside the transaction while the doctor row is locked, so two
// concurrent requests cannot both pass it.
func (s *PayoutService) Request(ctx context.Context, doctorID uint, input *RequestInput) (*models.Payout, error) {
	if input.BankDetails == "" {
		return nil, ErrBankDetailsEmpty
	}

	if _, err := s.userRepo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	settings, err := s.settingsService.Billing(ctx)
	if err != nil {
		return nil, err
	}

	var payout *models.Payout
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doctor, err := repositories.LockUserForUpdate(tx, doctorID)
		if err != nil {
			return err
		}

		pending, err := s.payoutRepo.HasProcessing(tx, doctorID)
		if err != nil {
			return err
		}
		if pending {
			return ErrPayoutPending
		}

		if doctor.Credits <= 0 {
			return ErrNoCreditsToPayout
		}

		amounts := settings.ComputePayout(doctor.Credits)
		payout = &models.Payout{
			DoctorID:    doctorID,
			Credits:     doctor.Credits,
			Amount:      amounts.Amount,
			PlatformFee: amounts.PlatformFee,
			NetAmount:   amounts.NetAmount,
			BankDetails: input.BankDetails,
			Status:      models.PayoutStatusProcessing,
		}
		return s.payoutRepo.Create(tx, payout)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Payout #%d requested: doctor=%d credits=%d net=%.2f",
		payout.ID, doctorID, payout.Credits, payout.NetAmount)
	return payout, nil
}

// Approve finalizes a PROCESSING payout: the only place a payout debits
// credits. The payout and the doctor balance are re-read under locks so a
// balance that shrank since the request is caught.
func (s *PayoutService) Approve(ctx context.Context, payoutID, adminID uint) (*models.Payout, error) {
	var payout *models.Payout

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payout, err = s.payoutRepo.GetByIDForUpdate(tx, payoutID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPayoutNotFound
			}
			return err
		}

		if payout.Status != models.PayoutStatusProcessing {
			return ErrPayoutNotPending
		}

		doctor, err := repositories.LockUserForUpdate(tx, payout.DoctorID)
		if err != nil {
			return err
		}
		if doctor.Credits < payout.Credits {
			return &domain.InsufficientCreditsError{
				Required:  payout.Credits,
				Available: doctor.Credits,
			}
		}

		if err := s.creditRepo.MoveCredits(tx, payout.DoctorID, -payout.Credits, models.TxTypeAdminAdjustment); err != nil {
			return err
		}

		now := time.Now()
		payout.Status = models.PayoutStatusProcessed
		payout.ProcessedAt = &now
		payout.ProcessedBy = &adminID

		return s.payoutRepo.Update(tx, payout)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Payout #%d processed by admin %d: %d credits debited from doctor %d",
		payout.ID, adminID, payout.Credits, payout.DoctorID)

	if s.notifier != nil {
		s.notifier.Notify(payout.DoctorID, "Payout processed",
			fmt.Sprintf("Your payout of %.2f has been processed", payout.NetAmount))
	}

	return payout, nil
}

// GetMine returns the doctor's payout history
func (s *PayoutService) GetMine(ctx context.Context, doctorID uint) ([]models.Payout, error) {
	return s.payoutRepo.GetByDoctor(ctx, doctorID)
}

// List returns payouts for the admin view, optionally filtered by status
func (s *PayoutService) List(ctx context.Context, status string, offset, limit int) ([]models.Payout, int64, error) {
	return s.payoutRepo.List(ctx, status, offset, limit)
}
