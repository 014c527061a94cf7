package services

import (
	"context"
	"testing"
	"time"

	"mediconnect/internal/adapters/persistence/repositories"
	"mediconnect/internal/core/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBookingService(t *testing.T) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)

	userRepo := repositories.NewUserRepository(db)
	appointmentRepo := repositories.NewAppointmentRepository(db)
	creditRepo := repositories.NewCreditRepository(db)
	settingsService := NewSettingsService(repositories.NewSettingsRepository(db))

	svc := NewBookingService(db, userRepo, appointmentRepo, creditRepo,
		settingsService, fixedVideoProvider{id: "session-1"}, nopNotifier{})
	return svc, mock
}

func futureSlot() (time.Time, time.Time) {
	start := time.Now().Add(24 * time.Hour).Truncate(30 * time.Minute)
	return start, start.Add(30 * time.Minute)
}

func TestBook_DebitsPatientAndCreatesAppointment(t *testing.T) {
	svc, mock := newBookingService(t)
	start, end := futureSlot()

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRows(2, "DOCTOR", 0, true))
	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(2, "DOCTOR", 0, true))
	mock.ExpectQuery("SELECT count(.+) FROM `appointments`").
		WillReturnRows(countRow(0))
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, "PATIENT", 10, false))
	mock.ExpectExec("INSERT INTO `credit_transactions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `appointments`").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	appointment, err := svc.Book(context.Background(), 1, &BookInput{
		DoctorID:  2,
		StartTime: start,
		EndTime:   end,
	})

	require.NoError(t, err)
	assert.Equal(t, uint(1), appointment.PatientID)
	assert.Equal(t, uint(2), appointment.DoctorID)
	assert.Equal(t, "SCHEDULED", appointment.Status)
	assert.Equal(t, 2, appointment.LockedCredits)
	assert.False(t, appointment.CreditsReleased)
	require.NotNil(t, appointment.VideoSessionID)
	assert.Equal(t, "session-1", *appointment.VideoSessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_InsufficientCreditsRollsBack(t *testing.T) {
	svc, mock := newBookingService(t)
	start, end := futureSlot()

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRows(2, "DOCTOR", 0, true))
	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(2, "DOCTOR", 0, true))
	mock.ExpectQuery("SELECT count(.+) FROM `appointments`").
		WillReturnRows(countRow(0))
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, "PATIENT", 1, false))
	mock.ExpectRollback()

	_, err := svc.Book(context.Background(), 1, &BookInput{
		DoctorID:  2,
		StartTime: start,
		EndTime:   end,
	})

	shortage, ok := domain.IsInsufficientCredits(err)
	require.True(t, ok, "expected credit shortfall, got %v", err)
	assert.Equal(t, 2, shortage.Required)
	assert.Equal(t, 1, shortage.Available)
	assert.Equal(t, 1, shortage.Shortfall())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_SlotConflictRollsBack(t *testing.T) {
	svc, mock := newBookingService(t)
	start, end := futureSlot()

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRows(2, "DOCTOR", 0, true))
	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(2, "DOCTOR", 0, true))
	mock.ExpectQuery("SELECT count(.+) FROM `appointments`").
		WillReturnRows(countRow(1))
	mock.ExpectRollback()

	_, err := svc.Book(context.Background(), 1, &BookInput{
		DoctorID:  2,
		StartTime: start,
		EndTime:   end,
	})

	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_UnverifiedDoctorRejected(t *testing.T) {
	svc, mock := newBookingService(t)
	start, end := futureSlot()

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRows(2, "DOCTOR", 0, false))

	_, err := svc.Book(context.Background(), 1, &BookInput{
		DoctorID:  2,
		StartTime: start,
		EndTime:   end,
	})

	assert.ErrorIs(t, err, ErrDoctorNotVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBook_RejectsInvalidSlotTimes(t *testing.T) {
	svc, _ := newBookingService(t)
	start, end := futureSlot()

	_, err := svc.Book(context.Background(), 1, &BookInput{
		DoctorID:  2,
		StartTime: end,
		EndTime:   start,
	})
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = svc.Book(context.Background(), 1, &BookInput{
		DoctorID:  2,
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(-30 * time.Minute),
	})
	assert.ErrorIs(t, err, ErrSlotInPast)
}

func TestBook_CustomCreditCostFromSettings(t *testing.T) {
	svc, mock := newBookingService(t)
	start, end := futureSlot()

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRows(2, "DOCTOR", 0, true))
	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(map[string]string{
			"appointment_credit_cost": "5",
		}))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(2, "DOCTOR", 0, true))
	mock.ExpectQuery("SELECT count(.+) FROM `appointments`").
		WillReturnRows(countRow(0))
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, "PATIENT", 5, false))
	mock.ExpectExec("INSERT INTO `credit_transactions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `appointments`").
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectCommit()

	appointment, err := svc.Book(context.Background(), 1, &BookInput{
		DoctorID:  2,
		StartTime: start,
		EndTime:   end,
	})

	require.NoError(t, err)
	assert.Equal(t, 5, appointment.LockedCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}
