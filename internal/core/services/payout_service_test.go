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

func newPayoutService(t *testing.T) (*PayoutService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)

	userRepo := repositories.NewUserRepository(db)
	payoutRepo := repositories.NewPayoutRepository(db)
	creditRepo := repositories.NewCreditRepository(db)
	settingsService := NewSettingsService(repositories.NewSettingsRepository(db))

	svc := NewPayoutService(db, userRepo, payoutRepo, creditRepo,
		settingsService, nopNotifier{})
	return svc, mock
}

func processingPayout(credits int) models.Payout {
	return models.Payout{
		ID:          3,
		DoctorID:    2,
		Credits:     credits,
		Amount:      float64(credits) * 10,
		PlatformFee: float64(credits) * 2,
		NetAmount:   float64(credits) * 8,
		BankDetails: "KBank 123-4-56789-0",
		Status:      models.PayoutStatusProcessing,
	}
}

func TestRequest_SnapshotsBalanceAndAmounts(t *testing.T) {
	svc, mock := newPayoutService(t)

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRows(2, "DOCTOR", 10, true))
	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(2, "DOCTOR", 10, true))
	mock.ExpectQuery("SELECT count(.+) FROM `payouts`").
		WillReturnRows(countRow(0))
	mock.ExpectExec("INSERT INTO `payouts`").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	payout, err := svc.Request(context.Background(), 2, &RequestInput{
		BankDetails: "KBank 123-4-56789-0",
	})

	require.NoError(t, err)
	assert.Equal(t, 10, payout.Credits)
	// 10 credits at rate 10.0, doctor keeps 80%.
	assert.InDelta(t, 100.0, payout.Amount, 0.001)
	assert.InDelta(t, 20.0, payout.PlatformFee, 0.001)
	assert.InDelta(t, 80.0, payout.NetAmount, 0.001)
	assert.Equal(t, models.PayoutStatusProcessing, payout.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequest_DuplicatePendingRejected(t *testing.T) {
	svc, mock := newPayoutService(t)

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRows(2, "DOCTOR", 10, true))
	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(2, "DOCTOR", 10, true))
	mock.ExpectQuery("SELECT count(.+) FROM `payouts`").
		WillReturnRows(countRow(1))
	mock.ExpectRollback()

	_, err := svc.Request(context.Background(), 2, &RequestInput{
		BankDetails: "KBank 123-4-56789-0",
	})

	assert.ErrorIs(t, err, ErrPayoutPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequest_ZeroBalanceRejected(t *testing.T) {
	svc, mock := newPayoutService(t)

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRows(2, "DOCTOR", 0, true))
	mock.ExpectQuery("SELECT (.+) FROM `platform_settings`").
		WillReturnRows(settingRows(nil))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(2, "DOCTOR", 0, true))
	mock.ExpectQuery("SELECT count(.+) FROM `payouts`").
		WillReturnRows(countRow(0))
	mock.ExpectRollback()

	_, err := svc.Request(context.Background(), 2, &RequestInput{
		BankDetails: "KBank 123-4-56789-0",
	})

	assert.ErrorIs(t, err, ErrNoCreditsToPayout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequest_EmptyBankDetailsRejected(t *testing.T) {
	svc, _ := newPayoutService(t)

	_, err := svc.Request(context.Background(), 2, &RequestInput{})

	assert.ErrorIs(t, err, ErrBankDetailsEmpty)
}

func TestApprove_DebitsDoctorAndMarksProcessed(t *testing.T) {
	svc, mock := newPayoutService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `payouts`(.+)FOR UPDATE").
		WillReturnRows(payoutRow(processingPayout(10)))
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(2, "DOCTOR", 10, true))
	mock.ExpectExec("INSERT INTO `credit_transactions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `payouts` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payout, err := svc.Approve(context.Background(), 3, 99)

	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusProcessed, payout.Status)
	require.NotNil(t, payout.ProcessedAt)
	require.NotNil(t, payout.ProcessedBy)
	assert.Equal(t, uint(99), *payout.ProcessedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprove_AlreadyProcessedRejected(t *testing.T) {
	svc, mock := newPayoutService(t)

	processed := processingPayout(10)
	processed.Status = models.PayoutStatusProcessed

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `payouts`(.+)FOR UPDATE").
		WillReturnRows(payoutRow(processed))
	mock.ExpectRollback()

	_, err := svc.Approve(context.Background(), 3, 99)

	assert.ErrorIs(t, err, ErrPayoutNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprove_ShrunkenBalanceRejected(t *testing.T) {
	svc, mock := newPayoutService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `payouts`(.+)FOR UPDATE").
		WillReturnRows(payoutRow(processingPayout(10)))
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(2, "DOCTOR", 4, true))
	mock.ExpectRollback()

	_, err := svc.Approve(context.Background(), 3, 99)

	shortage, ok := domain.IsInsufficientCredits(err)
	require.True(t, ok, "expected credit shortfall, got %v", err)
	assert.Equal(t, 10, shortage.Required)
	assert.Equal(t, 4, shortage.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}
