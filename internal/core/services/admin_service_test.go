package services

import (
	"context"
	"testing"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/adapters/persistence/repositories"
	"mediconnect/internal/core/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminService(t *testing.T) (*AdminService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)

	userRepo := repositories.NewUserRepository(db)
	appointmentRepo := repositories.NewAppointmentRepository(db)
	creditRepo := repositories.NewCreditRepository(db)
	payoutRepo := repositories.NewPayoutRepository(db)

	svc := NewAdminService(db, userRepo, appointmentRepo, creditRepo,
		payoutRepo, nopNotifier{})
	return svc, mock
}

func TestRelease_MovesEscrowToDoctorAndCompletes(t *testing.T) {
	svc, mock := newAdminService(t)

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

	appointment, err := svc.Release(context.Background(), 9, &ResolveInput{
		Note: "doctor provided consultation off-platform",
	})

	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCompleted, appointment.Status)
	assert.True(t, appointment.CreditsReleased)
	assert.Equal(t, "doctor provided consultation off-platform", appointment.AdminResolutionNote)
	require.NotNil(t, appointment.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_AlreadyReleasedIsNoOp(t *testing.T) {
	svc, mock := newAdminService(t)

	released := scheduledAppointment(2)
	released.CreditsReleased = true

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(released))
	mock.ExpectCommit()

	appointment, err := svc.Release(context.Background(), 9, &ResolveInput{Note: "retry"})

	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusScheduled, appointment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_CancelledReleasedIsNoOp(t *testing.T) {
	svc, mock := newAdminService(t)

	cancelled := scheduledAppointment(2)
	cancelled.Status = models.AppointmentStatusCancelled
	cancelled.CreditsReleased = true

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(cancelled))
	mock.ExpectCommit()

	_, err := svc.Release(context.Background(), 9, &ResolveInput{Note: "late release"})

	require.NoError(t, err, "latch already set wins over the cancelled check")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_CancelledUnreleasedRejected(t *testing.T) {
	svc, mock := newAdminService(t)

	cancelled := scheduledAppointment(2)
	cancelled.Status = models.AppointmentStatusCancelled

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(cancelled))
	mock.ExpectRollback()

	_, err := svc.Release(context.Background(), 9, &ResolveInput{Note: "late release"})

	assert.ErrorIs(t, err, ErrReleaseCancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefund_MovesEscrowToPatientAndCancels(t *testing.T) {
	svc, mock := newAdminService(t)

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

	appointment, err := svc.Refund(context.Background(), 9, &ResolveInput{
		Note: "doctor never joined the call",
	})

	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, appointment.Status)
	assert.True(t, appointment.CreditsReleased)
	require.NotNil(t, appointment.CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefund_AfterReleaseRejected(t *testing.T) {
	svc, mock := newAdminService(t)

	released := scheduledAppointment(2)
	released.CreditsReleased = true

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments`(.+)FOR UPDATE").
		WillReturnRows(appointmentRow(released))
	mock.ExpectRollback()

	_, err := svc.Refund(context.Background(), 9, &ResolveInput{Note: "refund anyway"})

	assert.ErrorIs(t, err, ErrAlreadyReleased)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustCredits_GrantUsesPurchaseType(t *testing.T) {
	svc, mock := newAdminService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, "PATIENT", 5, false))
	mock.ExpectExec("INSERT INTO `credit_transactions`").
		WithArgs(uint(1), 3, models.TxTypeCreditPurchase, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := svc.AdjustCredits(context.Background(), &AdjustCreditsInput{
		UserID: 1,
		Amount: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, 8, user.Credits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustCredits_RevocationBoundedByBalance(t *testing.T) {
	svc, mock := newAdminService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, "PATIENT", 5, false))
	mock.ExpectRollback()

	_, err := svc.AdjustCredits(context.Background(), &AdjustCreditsInput{
		UserID: 1,
		Amount: -10,
	})

	shortage, ok := domain.IsInsufficientCredits(err)
	require.True(t, ok, "expected credit shortfall, got %v", err)
	assert.Equal(t, 10, shortage.Required)
	assert.Equal(t, 5, shortage.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustCredits_ZeroAmountRejected(t *testing.T) {
	svc, _ := newAdminService(t)

	_, err := svc.AdjustCredits(context.Background(), &AdjustCreditsInput{
		UserID: 1,
		Amount: 0,
	})

	assert.ErrorIs(t, err, ErrZeroAdjustment)
}
