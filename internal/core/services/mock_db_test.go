package services

import (
	"context"
	"testing"

	"mediconnect/internal/adapters/persistence/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB wires gorm over a sqlmock connection the same way the real
// server connects, including the explicit-transaction setting.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func userRows(id uint, role string, credits int, verified bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "role", "credits", "specialty", "is_verified", "is_active"}).
		AddRow(id, "Test User", "user@example.com", role, credits, "General", verified, true)
}

func appointmentRow(a models.Appointment) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "patient_id", "doctor_id", "start_time", "end_time",
		"status", "locked_credits", "credits_released", "admin_resolution_note",
	}).AddRow(
		a.ID, a.PatientID, a.DoctorID, a.StartTime, a.EndTime,
		a.Status, a.LockedCredits, a.CreditsReleased, a.AdminResolutionNote,
	)
}

func payoutRow(p models.Payout) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "doctor_id", "credits", "amount", "platform_fee", "net_amount",
		"bank_details", "status",
	}).AddRow(
		p.ID, p.DoctorID, p.Credits, p.Amount, p.PlatformFee, p.NetAmount,
		p.BankDetails, p.Status,
	)
}

func settingRows(pairs map[string]string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "setting_key", "setting_value"})
	id := uint(1)
	for key, value := range pairs {
		rows.AddRow(id, key, value)
		id++
	}
	return rows
}

func countRow(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count(*)"}).AddRow(n)
}

// nopNotifier satisfies repositories.Notifier without side effects.
type nopNotifier struct{}

func (nopNotifier) Notify(userID uint, title, body string) {}

// fixedVideoProvider returns a deterministic session id.
type fixedVideoProvider struct{ id string }

func (p fixedVideoProvider) NewSessionID(ctx context.Context) (string, error) {
	return p.id, nil
}
