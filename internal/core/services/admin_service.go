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

// Admin arbitration errors
var (
	ErrReleaseCancelled  = errors.New("cannot release credits for a cancelled appointment")
	ErrAlreadyReleased   = errors.New("credits were already released for this appointment")
	ErrUserNotFoundAdmin = errors.New("user not found")
	ErrZeroAdjustment    = errors.New("adjustment amount must be non-zero")
)

// AdminService is the manual override path for disputed or stuck
// appointments. It operates on the escrowed set (locked credits, latch not
// set) and bypasses the doctor-only and time-gated constraints of the
// normal lifecycle.
type AdminService struct {
	db              *gorm.DB
	userRepo        repositories.UserRepository
	appointmentRepo *repositories.AppointmentRepository
	creditRepo      *repositories.CreditRepository
	payoutRepo      *repositories.PayoutRepository
	notifier        repositories.Notifier
}

// NewAdminService creates a new admin service
func NewAdminService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	appointmentRepo *repositories.AppointmentRepository,
	creditRepo *repositories.CreditRepository,
	payoutRepo *repositories.PayoutRepository,
	notifier repositories.Notifier,
) *AdminService {
	return &AdminService{
		db:              db,
		userRepo:        userRepo,
		appointmentRepo: appointmentRepo,
		creditRepo:      creditRepo,
		payoutRepo:      payoutRepo,
		notifier:        notifier,
	}
}

// ResolveInput carries the arbitration note stored on the appointment
type ResolveInput struct {
	Note string `json:"note" validate:"required"`
}

// Release force-releases escrowed credits to the doctor. Releasing an
// already-released appointment is a no-op success; releasing a cancelled
// one is rejected because cancellation already disposed of the credits.
func (s *AdminService) Release(ctx context.Context, appointmentID uint, input *ResolveInput) (*models.Appointment, error) {
	var appointment *models.Appointment
	released := 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		appointment, err = s.appointmentRepo.GetByIDForUpdate(tx, appointmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}

		if appointment.CreditsReleased {
			return nil
		}
		if appointment.Status == models.AppointmentStatusCancelled {
			return ErrReleaseCancelled
		}

		if appointment.LockedCredits > 0 {
			if err := s.creditRepo.MoveCredits(tx, appointment.DoctorID, appointment.LockedCredits, models.TxTypeAdminAdjustment); err != nil {
				return err
			}
			released = appointment.LockedCredits
		}

		appointment.CreditsReleased = true
		appointment.AdminResolutionNote = input.Note
		if appointment.Status == models.AppointmentStatusScheduled {
			now := time.Now()
			appointment.Status = models.AppointmentStatusCompleted
			appointment.CompletedAt = &now
		}

		return s.appointmentRepo.Update(tx, appointment)
	})
	if err != nil {
		return nil, err
	}

	if released > 0 {
		log.Printf("✅ Admin released %d credits to doctor %d for appointment #%d",
			released, appointment.DoctorID, appointment.ID)
		if s.notifier != nil {
			s.notifier.Notify(appointment.DoctorID, "Credits released",
				fmt.Sprintf("An admin released %d credits for your consultation on %s",
					released, appointment.StartTime.Format("Mon, 02 Jan 2006 15:04")))
		}
	}

	return appointment, nil
}

// Refund force-refunds escrowed credits to the patient and cancels the
// appointment. Rejected once credits were released.
func (s *AdminService) Refund(ctx context.Context, appointmentID uint, input *ResolveInput) (*models.Appointment, error) {
	var appointment *models.Appointment
	refunded := 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		appointment, err = s.appointmentRepo.GetByIDForUpdate(tx, appointmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}

		if appointment.CreditsReleased {
			return ErrAlreadyReleased
		}

		if appointment.LockedCredits > 0 {
			if err := s.creditRepo.MoveCredits(tx, appointment.PatientID, appointment.LockedCredits, models.TxTypeAdminAdjustment); err != nil {
				return err
			}
			refunded = appointment.LockedCredits
		}

		now := time.Now()
		appointment.CreditsReleased = true
		appointment.AdminResolutionNote = input.Note
		appointment.Status = models.AppointmentStatusCancelled
		appointment.CancelledAt = &now

		return s.appointmentRepo.Update(tx, appointment)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Admin refunded %d credits to patient %d for appointment #%d",
		refunded, appointment.PatientID, appointment.ID)

	if s.notifier != nil {
		s.notifier.Notify(appointment.PatientID, "Credits refunded",
			fmt.Sprintf("An admin refunded %d credits for your consultation on %s",
				refunded, appointment.StartTime.Format("Mon, 02 Jan 2006 15:04")))
	}

	return appointment, nil
}

// ListEscrowed returns the appointments admin arbitration operates on
func (s *AdminService) ListEscrowed(ctx context.Context, offset, limit int) ([]models.Appointment, int64, error) {
	return s.appointmentRepo.GetEscrowed(ctx, offset, limit)
}

// VerifyDoctor flips a doctor's verification flag
func (s *AdminService) VerifyDoctor(ctx context.Context, doctorID uint, verified bool) (*models.User, error) {
	doctor, err := s.userRepo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	doctor.IsVerified = verified
	if err := s.userRepo.Update(ctx, doctor); err != nil {
		return nil, err
	}

	log.Printf("✅ Doctor %d verification set to %v", doctorID, verified)
	return doctor, nil
}

// AdjustCreditsInput represents a manual credit grant or revocation
type AdjustCreditsInput struct {
	UserID uint `json:"user_id" validate:"required"`
	Amount int  `json:"amount" validate:"required"`
}

// AdjustCredits grants or revokes credits through the ledger primitive.
// Positive amounts top a user up (the stand-in for purchase flows);
// negative amounts are bounded by the live balance.
func (s *AdminService) AdjustCredits(ctx context.Context, input *AdjustCreditsInput) (*models.User, error) {
	if input.Amount == 0 {
		return nil, ErrZeroAdjustment
	}

	txType := models.TxTypeAdminAdjustment
	if input.Amount > 0 {
		txType = models.TxTypeCreditPurchase
	}

	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = repositories.LockUserForUpdate(tx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFoundAdmin
			}
			return err
		}

		if input.Amount < 0 && user.Credits < -input.Amount {
			return &domain.InsufficientCreditsError{
				Required:  -input.Amount,
				Available: user.Credits,
			}
		}

		if err := s.creditRepo.MoveCredits(tx, input.UserID, input.Amount, txType); err != nil {
			return err
		}

		user.Credits += input.Amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Admin adjusted credits: user=%d amount=%+d", input.UserID, input.Amount)
	return user, nil
}

// DashboardResponse represents the admin overview
type DashboardResponse struct {
	TotalPatients      int64            `json:"total_patients"`
	TotalDoctors       int64            `json:"total_doctors"`
	UnverifiedDoctors  int64            `json:"unverified_doctors"`
	Appointments       map[string]int64 `json:"appointments"`
	EscrowedCredits    int64            `json:"escrowed_credits"`
	PendingPayouts     int64            `json:"pending_payouts"`
	LedgerDriftedUsers int64            `json:"ledger_drifted_users"`
}

// Dashboard aggregates platform counters, including the ledger
// reconciliation check (cached balances vs transaction sums).
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	resp := &DashboardResponse{
		Appointments: map[string]int64{
			models.AppointmentStatusScheduled: 0,
			models.AppointmentStatusCompleted: 0,
			models.AppointmentStatusCancelled: 0,
		},
	}

	db := s.db.WithContext(ctx)

	db.Model(&models.User{}).Where("role = ?", models.RolePatient).Count(&resp.TotalPatients)
	db.Model(&models.User{}).Where("role = ?", models.RoleDoctor).Count(&resp.TotalDoctors)
	db.Model(&models.User{}).Where("role = ? AND is_verified = ?", models.RoleDoctor, false).Count(&resp.UnverifiedDoctors)

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	db.Model(&models.Appointment{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&counts)
	for _, c := range counts {
		resp.Appointments[c.Status] = c.Count
	}

	var escrowed *int64
	db.Model(&models.Appointment{}).
		Select("SUM(locked_credits)").
		Where("locked_credits > 0 AND credits_released = ?", false).
		Scan(&escrowed)
	if escrowed != nil {
		resp.EscrowedCredits = *escrowed
	}

	db.Model(&models.Payout{}).
		Where("status = ?", models.PayoutStatusProcessing).
		Count(&resp.PendingPayouts)

	drifted, err := s.creditRepo.CountMismatchedBalances(ctx)
	if err != nil {
		return nil, err
	}
	resp.LedgerDriftedUsers = drifted

	return resp, nil
}
