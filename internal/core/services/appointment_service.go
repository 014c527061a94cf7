package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

// Appointment lifecycle errors
var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrNotAppointmentParty  = errors.New("caller is not a party to this appointment")
	ErrNotDoctorOfAppt      = errors.New("only the appointment's doctor can complete it")
	ErrAppointmentCompleted = errors.New("appointment is already completed")
	ErrNotScheduled         = errors.New("appointment is not in scheduled state")
	ErrNotYetEnded          = errors.New("appointment has not ended yet")
)

// AppointmentService is the state machine for SCHEDULED → COMPLETED or
// CANCELLED, with the escrow disposition bound to each transition. Every
// credit-bearing transition re-reads the row under a FOR UPDATE lock in the
// same transaction that moves credits and writes the status, so a losing
// concurrent transition observes the latch and never double-moves credits.
type AppointmentService struct {
	db              *gorm.DB
	appointmentRepo *repositories.AppointmentRepository
	creditRepo      *repositories.CreditRepository
	settingsService *SettingsService
	videoProvider   VideoSessionProvider
	notifier        repositories.Notifier
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	db *gorm.DB,
	appointmentRepo *repositories.AppointmentRepository,
	creditRepo *repositories.CreditRepository,
	settingsService *SettingsService,
	videoProvider VideoSessionProvider,
	notifier repositories.Notifier,
) *AppointmentService {
	return &AppointmentService{
		db:              db,
		appointmentRepo: appointmentRepo,
		creditRepo:      creditRepo,
		settingsService: settingsService,
		videoProvider:   videoProvider,
		notifier:        notifier,
	}
}

// Cancel cancels a SCHEDULED appointment. Either party may cancel.
// Cancelling an already-cancelled appointment is an idempotent success.
// Escrowed credits are refunded to the patient; if the latch is already
// set the status flips with no credit movement.
func (s *AppointmentService) Cancel(ctx context.Context, appointmentID, callerID uint) (*models.Appointment, error) {
	settings, err := s.settingsService.Billing(ctx)
	if err != nil {
		return nil, err
	}

	var appointment *models.Appointment
	refunded := 0

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appointment, err = s.appointmentRepo.GetByIDForUpdate(tx, appointmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}

		if callerID != appointment.PatientID && callerID != appointment.DoctorID {
			return ErrNotAppointmentParty
		}

		// Idempotent: a second cancel observes the terminal state and
		// makes no further changes.
		if appointment.Status == models.AppointmentStatusCancelled {
			return nil
		}
		if appointment.Status == models.AppointmentStatusCompleted {
			return ErrAppointmentCompleted
		}

		switch {
		case appointment.CreditsReleased:
			// Credits were already disposed of (e.g. by admin action);
			// flip the status only.

		case appointment.LockedCredits > 0:
			// Normal path: the doctor never received anything, so only the
			// patient leg moves.
			if err := s.creditRepo.MoveCredits(tx, appointment.PatientID, appointment.LockedCredits, models.TxTypeAppointmentDeduction); err != nil {
				return err
			}
			refunded = appointment.LockedCredits

		default:
			// Legacy rows without a locked amount: compensate with the
			// configured cost on both legs.
			cost := settings.AppointmentCreditCost
			if err := s.creditRepo.MoveCredits(tx, appointment.PatientID, cost, models.TxTypeAppointmentDeduction); err != nil {
				return err
			}
			if err := s.creditRepo.MoveCredits(tx, appointment.DoctorID, -cost, models.TxTypeAppointmentDeduction); err != nil {
				return err
			}
			refunded = cost
		}

		now := time.Now()
		appointment.Status = models.AppointmentStatusCancelled
		appointment.CreditsReleased = true
		appointment.CancelledAt = &now

		return s.appointmentRepo.Update(tx, appointment)
	})
	if err != nil {
		return nil, err
	}

	if refunded > 0 {
		log.Printf("✅ Appointment #%d cancelled, %d credits refunded to patient %d",
			appointment.ID, refunded, appointment.PatientID)
	} else {
		log.Printf("✅ Appointment #%d cancelled (no credit movement)", appointment.ID)
	}

	if s.notifier != nil {
		other := appointment.DoctorID
		if callerID == appointment.DoctorID {
			other = appointment.PatientID
		}
		s.notifier.Notify(other, "Appointment cancelled",
			fmt.Sprintf("The consultation on %s was cancelled",
				appointment.StartTime.Format("Mon, 02 Jan 2006 15:04")))
	}

	return appointment, nil
}

// Complete marks a consultation as done and releases the escrowed credits
// to the doctor. Only the appointment's doctor may complete, only after the
// end time, and only while SCHEDULED.
func (s *AppointmentService) Complete(ctx context.Context, appointmentID, doctorID uint) (*models.Appointment, error) {
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

		if appointment.DoctorID != doctorID {
			return ErrNotDoctorOfAppt
		}
		if appointment.Status != models.AppointmentStatusScheduled {
			return ErrNotScheduled
		}
		if time.Now().Before(appointment.EndTime) {
			return ErrNotYetEnded
		}

		if !appointment.CreditsReleased && appointment.LockedCredits > 0 {
			if err := s.creditRepo.MoveCredits(tx, appointment.DoctorID, appointment.LockedCredits, models.TxTypeAppointmentDeduction); err != nil {
				return err
			}
			released = appointment.LockedCredits
			appointment.CreditsReleased = true
		}

		now := time.Now()
		appointment.Status = models.AppointmentStatusCompleted
		appointment.CompletedAt = &now

		return s.appointmentRepo.Update(tx, appointment)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Appointment #%d completed, %d credits released to doctor %d",
		appointment.ID, released, appointment.DoctorID)

	if s.notifier != nil {
		s.notifier.Notify(appointment.PatientID, "Consultation completed",
			"Your doctor marked the consultation as completed")
	}

	return appointment, nil
}

// Join returns the video session identifier for a party of a SCHEDULED
// appointment, issuing one lazily if booking-time issuance failed.
func (s *AppointmentService) Join(ctx context.Context, appointmentID, callerID uint) (string, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrAppointmentNotFound
		}
		return "", err
	}

	if callerID != appointment.PatientID && callerID != appointment.DoctorID {
		return "", ErrNotAppointmentParty
	}
	if appointment.Status != models.AppointmentStatusScheduled {
		return "", ErrNotScheduled
	}

	if appointment.VideoSessionID != nil && *appointment.VideoSessionID != "" {
		return *appointment.VideoSessionID, nil
	}

	sessionID, err := s.videoProvider.NewSessionID(ctx)
	if err != nil {
		return "", err
	}
	if err := s.appointmentRepo.UpdateVideoSession(ctx, appointmentID, sessionID); err != nil {
		return "", err
	}

	log.Printf("✅ Video session issued lazily for appointment #%d", appointmentID)
	return sessionID, nil
}

// GetByID returns an appointment, visible to its parties and admins
func (s *AppointmentService) GetByID(ctx context.Context, appointmentID, callerID uint, callerRole string) (*models.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if callerRole != models.RoleAdmin &&
		callerID != appointment.PatientID && callerID != appointment.DoctorID {
		return nil, ErrNotAppointmentParty
	}

	return appointment, nil
}

// GetMine returns the caller's appointments, patient or doctor side
func (s *AppointmentService) GetMine(ctx context.Context, callerID uint, callerRole string) ([]models.Appointment, error) {
	if callerRole == models.RoleDoctor {
		return s.appointmentRepo.GetByDoctor(ctx, callerID)
	}
	return s.appointmentRepo.GetByPatient(ctx, callerID)
}
