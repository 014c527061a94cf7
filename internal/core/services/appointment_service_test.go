package services

import (
	"context"
	"testing"
	"time"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/adapters/persistence/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAppointmentService(t *testing.T) (*AppointmentService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)

	appointmentRepo := repositories.NewAppointmentRepository(db)
	creditRepo := repositories.NewCreditRepository(db)
	settingsService := NewSettingsService(repositories.NewSettingsRepository(db))

	svc := NewAppointmentService(db, appointmentRepo, creditRepo,
		settingsService, fixedVideoProvider{id: "session-2"}, nopNotifier{})
	return svc, mock
}

func scheduledAppointment(locked int) models.Appointment {
	start := time.Now().Add(24 * time.Hour)
	return models.Appointment{
		ID:            9,
		PatientID:     1,
		DoctorID:      2,
		StartTime:     start,
		EndTime:       start.Add(30 * time.Minute),
		Status:        models.AppointmentStatusScheduled,
		LockedCredits: locked,
	}
}

func TestCancel_RefundsEscrowedCredits(t *testing.T) {
	svc, mock := newAppointmentService(t)

	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(scheduledAppointment(2)))
	mock.ExpectExec("INSERT INTO `credit_transactions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `appointments` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	appointment, err := svc.Cancel(context.Background(), 9, 1)

	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, appointment.Status)
	assert.True(t, appointment.CreditsReleased)
	require.NotNil(t, appointment.CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_SecondCancelIsIdempotent(t *testing.T) {
	svc, mock := newAppointmentService(t)

	cancelled := scheduledAppointment(2)
	cancelled.Status = models.AppointmentStatusCancelled
	cancelled.CreditsReleased = true

	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(cancelled))
	mock.ExpectCommit()

	appointment, err := svc.Cancel(context.Background(), 9, 1)

	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, appointment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_CompletedAppointmentRejected(t *testing.T) {
	svc, mock := newAppointmentService(t)

	completed := scheduledAppointment(2)
	completed.Status = models.AppointmentStatusCompleted
	completed.CreditsReleased = true

	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(completed))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), 9, 1)

	assert.ErrorIs(t, err, ErrAppointmentCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_AfterAdminReleaseFlipsStatusOnly(t *testing.T) {
	svc, mock := newAppointmentService(t)

	released := scheduledAppointment(2)
	released.CreditsReleased = true

	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(released))
	mock.ExpectExec("UPDATE `appointments` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	appointment, err := svc.Cancel(context.Background(), 9, 2)

	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, appointment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_LegacyRowCompensatesBothLegs(t *testing.T) {
	svc, mock := newAppointmentService(t)

	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(scheduledAppointment(0)))
	// Patient refund leg, then doctor debit leg.
	mock.ExpectExec("INSERT INTO `credit_transactions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `credit_transactions`").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `appointments` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	appointment, err := svc.Cancel(context.Background(), 9, 1)

	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, appointment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_StrangerRejected(t *testing.T) {
	svc, mock := newAppointmentService(t)

	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(scheduledAppointment(2)))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), 9, 42)

	assert.ErrorIs(t, err, ErrNotAppointmentParty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplete_ReleasesCreditsToDoctor(t *testing.T) {
	svc, mock := newAppointmentService(t)

	ended := scheduledAppointment(2)
	ended.StartTime = time.Now().Add(-time.Hour)
	ended.EndTime = time.Now().Add(-30 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(ended))
	mock.ExpectExec("INSERT INTO `credit_transactions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `appointments` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	appointment, err := svc.Complete(context.Background(), 9, 2)

	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCompleted, appointment.Status)
	assert.True(t, appointment.CreditsReleased)
	require.NotNil(t, appointment.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplete_BeforeEndTimeRejected(t *testing.T) {
	svc, mock := newAppointmentService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(scheduledAppointment(2)))
	mock.ExpectRollback()

	_, err := svc.Complete(context.Background(), 9, 2)

	assert.ErrorIs(t, err, ErrNotYetEnded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplete_WrongDoctorRejected(t *testing.T) {
	svc, mock := newAppointmentService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(scheduledAppointment(2)))
	mock.ExpectRollback()

	_, err := svc.Complete(context.Background(), 9, 77)

	assert.ErrorIs(t, err, ErrNotDoctorOfAppt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplete_CancelledAppointmentRejected(t *testing.T) {
	svc, mock := newAppointmentService(t)

	cancelled := scheduledAppointment(2)
	cancelled.Status = models.AppointmentStatusCancelled

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(cancelled))
	mock.ExpectRollback()

	_, err := svc.Complete(context.Background(), 9, 2)

	assert.ErrorIs(t, err, ErrNotScheduled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoin_IssuesSessionLazilyWhenMissing(t *testing.T) {
	svc, mock := newAppointmentService(t)

	appointment := scheduledAppointment(2)

	// GetByID preloads both parties; gorm executes preloads in
	// alphabetical order, Doctor before Patient.
	mock.ExpectQuery("SELECT (.+) FROM `appointments`").
		WillReturnRows(appointmentRow(appointment))
	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRows(2, "DOCTOR", 0, true))
	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRows(1, "PATIENT", 8, false))
	mock.ExpectExec("UPDATE `appointments` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	sessionID, err := svc.Join(context.Background(), 9, 1)

	require.NoError(t, err)
	assert.Equal(t, "session-2", sessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
