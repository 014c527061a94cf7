package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// StaleEscrowAge is how long a past-end appointment may hold credits
// before the sweeper flags it for arbitration.
const StaleEscrowAge = 48 * time.Hour

// CronService runs the scheduled background jobs: appointment reminders,
// the stale escrow sweep, and refresh token cleanup.
type CronService struct {
	cron             *cron.Cron
	appointmentRepo  *repositories.AppointmentRepository
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	notifier         repositories.Notifier
}

// NewCronService creates a new cron service
func NewCronService(
	appointmentRepo *repositories.AppointmentRepository,
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	notifier repositories.Notifier,
) *CronService {
	return &CronService{
		cron:             cron.New(),
		appointmentRepo:  appointmentRepo,
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		notifier:         notifier,
	}
}

// Start registers and launches all jobs
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc("0 * * * *", s.SendReminders); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("30 * * * *", s.SweepStaleEscrow); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 3 * * *", s.CleanupExpiredTokens); err != nil {
		return err
	}

	s.cron.Start()
	log.Println("🚀 Cron service started (reminders, escrow sweep, token cleanup)")
	return nil
}

// Stop halts the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 Cron service stopped")
}

// SendReminders notifies both parties of appointments starting within
// the next hour
func (s *CronService) SendReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	appointments, err := s.appointmentRepo.GetUpcomingBetween(ctx, now, now.Add(time.Hour))
	if err != nil {
		log.Printf("❌ Reminder job failed to load appointments: %v", err)
		return
	}

	for _, appointment := range appointments {
		when := appointment.StartTime.Format("15:04")
		if s.notifier != nil {
			s.notifier.Notify(appointment.PatientID, "Upcoming consultation",
				fmt.Sprintf("Your consultation starts at %s", when))
			s.notifier.Notify(appointment.DoctorID, "Upcoming consultation",
				fmt.Sprintf("You have a consultation at %s", when))
		}
	}

	if len(appointments) > 0 {
		log.Printf("✅ Sent reminders for %d upcoming appointments", len(appointments))
	}
}

// SweepStaleEscrow flags appointments that ended long ago but still hold
// locked credits, and asks admins to arbitrate them
func (s *CronService) SweepStaleEscrow() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stale, err := s.appointmentRepo.GetStaleEscrowed(ctx, time.Now().Add(-StaleEscrowAge))
	if err != nil {
		log.Printf("❌ Escrow sweep failed to load appointments: %v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	log.Printf("⚠️ Escrow sweep found %d stale appointments awaiting arbitration", len(stale))

	admins, _, err := s.userRepo.List(ctx, models.RoleAdmin, 0, 50)
	if err != nil {
		log.Printf("❌ Escrow sweep failed to load admins: %v", err)
		return
	}

	for _, admin := range admins {
		if s.notifier != nil {
			s.notifier.Notify(admin.ID, "Escrow arbitration needed",
				fmt.Sprintf("%d appointments ended over %d hours ago with credits still locked",
					len(stale), int(StaleEscrowAge.Hours())))
		}
	}
}

// CleanupExpiredTokens deletes refresh tokens past their expiry
func (s *CronService) CleanupExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.refreshTokenRepo.DeleteExpired(ctx); err != nil {
		log.Printf("❌ Token cleanup failed: %v", err)
		return
	}
	log.Println("✅ Expired refresh tokens cleaned up")
}
