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

// Booking errors
var (
	ErrSlotUnavailable = errors.New("slot is no longer available")
	ErrPatientNotFound = errors.New("patient not found")
	ErrInvalidSlot     = errors.New("invalid slot times")
	ErrSlotInPast      = errors.New("slot is in the past")
)

// BookingService validates a slot request against live state and creates
// the appointment with credits locked in escrow. The overlap re-check, the
// patient debit and the appointment insert happen in one transaction,
// serialized per doctor through a doctor-row lock.
type BookingService struct {
	db              *gorm.DB
	userRepo        repositories.UserRepository
	appointmentRepo *repositories.AppointmentRepository
	creditRepo      *repositories.CreditRepository
	settingsService *SettingsService
	videoProvider   VideoSessionProvider
	notifier        repositories.Notifier
}

// NewBookingService creates a new booking service
func NewBookingService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	appointmentRepo *repositories.AppointmentRepository,
	creditRepo *repositories.CreditRepository,
	settingsService *SettingsService,
	videoProvider VideoSessionProvider,
	notifier repositories.Notifier,
) *BookingService {
	return &BookingService{
		db:              db,
		userRepo:        userRepo,
		appointmentRepo: appointmentRepo,
		creditRepo:      creditRepo,
		settingsService: settingsService,
		videoProvider:   videoProvider,
		notifier:        notifier,
	}
}

// BookInput represents a booking request for one concrete slot
type BookInput struct {
	DoctorID  uint      `json:"doctor_id" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// Book atomically debits the patient and creates the appointment. Either
// both happen or neither does; no partial state survives any failure.
func (s *BookingService) Book(ctx context.Context, patientID uint, input *BookInput) (*models.Appointment, error) {
	if !input.EndTime.After(input.StartTime) {
		return nil, ErrInvalidSlot
	}
	if input.StartTime.Before(time.Now()) {
		return nil, ErrSlotInPast
	}

	doctor, err := s.userRepo.GetDoctorByID(ctx, input.DoctorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	if !doctor.IsVerified || !doctor.IsActive {
		return nil, ErrDoctorNotVerified
	}

	settings, err := s.settingsService.Billing(ctx)
	if err != nil {
		return nil, err
	}
	cost := settings.AppointmentCreditCost

	// Best effort: a missing session id never blocks booking, it is
	// reissued lazily on first join.
	var videoSessionID *string
	if sessionID, err := s.videoProvider.NewSessionID(ctx); err == nil {
		videoSessionID = &sessionID
	} else {
		log.Printf("⚠️ Video session issuance failed, deferring to first join: %v", err)
	}

	appointment := &models.Appointment{
		PatientID:       patientID,
		DoctorID:        input.DoctorID,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		Status:          models.AppointmentStatusScheduled,
		LockedCredits:   cost,
		CreditsReleased: false,
		VideoSessionID:  videoSessionID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The doctor-row lock serializes concurrent bookings for the same
		// doctor, so the overlap re-check below is authoritative.
		if _, err := repositories.LockUserForUpdate(tx, input.DoctorID); err != nil {
			return ErrDoctorNotFound
		}

		overlapping, err := s.appointmentRepo.CountOverlapping(tx, input.DoctorID, input.StartTime, input.EndTime)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return ErrSlotUnavailable
		}

		patient, err := repositories.LockUserForUpdate(tx, patientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPatientNotFound
			}
			return err
		}
		if patient.Credits < cost {
			return &domain.InsufficientCreditsError{
				Required:  cost,
				Available: patient.Credits,
			}
		}

		if err := s.creditRepo.MoveCredits(tx, patientID, -cost, models.TxTypeAppointmentDeduction); err != nil {
			return err
		}

		return s.appointmentRepo.Create(tx, appointment)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Appointment booked: #%d patient=%d doctor=%d %s (%d credits locked)",
		appointment.ID, patientID, input.DoctorID,
		input.StartTime.Format("2006-01-02 15:04"), cost)

	if s.notifier != nil {
		when := input.StartTime.Format("Mon, 02 Jan 2006 15:04")
		s.notifier.Notify(input.DoctorID, "New appointment",
			fmt.Sprintf("A consultation was booked for %s", when))
		s.notifier.Notify(patientID, "Appointment confirmed",
			fmt.Sprintf("Your consultation with Dr. %s is booked for %s (%d credits held)",
				doctor.Name, when, cost))
	}

	return appointment, nil
}
