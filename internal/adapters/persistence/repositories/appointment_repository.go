package repositories

import (
	"context"
	"time"

	"mediconnect/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppointmentRepository handles appointment data access
type AppointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create creates a new appointment on the given transaction handle
func (r *AppointmentRepository) Create(tx *gorm.DB, appointment *models.Appointment) error {
	return tx.Create(appointment).Error
}

// GetByID gets an appointment by ID with both parties preloaded
func (r *AppointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		First(&appointment, id).Error
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

// GetByIDForUpdate re-reads an appointment row with a FOR UPDATE lock on
// the given transaction handle. Credit-bearing transitions must use this so
// concurrent cancel/complete/arbitrate observe each other's writes.
func (r *AppointmentRepository) GetByIDForUpdate(tx *gorm.DB, id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&appointment, id).Error
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

// CountOverlapping counts SCHEDULED appointments for a doctor that overlap
// [start, end) using the three-way overlap test: candidate starts inside an
// existing one, ends inside one, or fully contains one.
func (r *AppointmentRepository) CountOverlapping(tx *gorm.DB, doctorID uint, start, end time.Time) (int64, error) {
	var count int64
	err := tx.Model(&models.Appointment{}).
		Where("doctor_id = ? AND status = ?", doctorID, models.AppointmentStatusScheduled).
		Where("(start_time <= ? AND end_time > ?) OR (start_time < ? AND end_time >= ?) OR (start_time >= ? AND end_time <= ?)",
			start, start, end, end, start, end).
		Count(&count).Error
	return count, err
}

// GetScheduledByDoctorBetween returns SCHEDULED appointments for a doctor
// overlapping the [from, to) horizon
func (r *AppointmentRepository) GetScheduledByDoctorBetween(ctx context.Context, doctorID uint, from, to time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND status = ? AND start_time < ? AND end_time > ?",
			doctorID, models.AppointmentStatusScheduled, to, from).
		Order("start_time ASC").
		Find(&appointments).Error
	return appointments, err
}

// GetByPatient returns appointments for a patient, most recent first
func (r *AppointmentRepository) GetByPatient(ctx context.Context, patientID uint) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("start_time DESC").
		Find(&appointments).Error
	return appointments, err
}

// GetByDoctor returns appointments for a doctor, most recent first
func (r *AppointmentRepository) GetByDoctor(ctx context.Context, doctorID uint) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("doctor_id = ?", doctorID).
		Order("start_time DESC").
		Find(&appointments).Error
	return appointments, err
}

// GetEscrowed returns appointments holding locked credits that were never
// released (the set admin arbitration operates on)
func (r *AppointmentRepository) GetEscrowed(ctx context.Context, offset, limit int) ([]models.Appointment, int64, error) {
	var appointments []models.Appointment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("locked_credits > 0 AND credits_released = ?", false)

	query.Count(&total)

	err := query.
		Preload("Patient").
		Preload("Doctor").
		Order("start_time ASC").
		Offset(offset).
		Limit(limit).
		Find(&appointments).Error
	return appointments, total, err
}

// GetStaleEscrowed returns SCHEDULED appointments past their end time (plus
// grace) that still hold unreleased credits
func (r *AppointmentRepository) GetStaleEscrowed(ctx context.Context, before time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time < ? AND locked_credits > 0 AND credits_released = ?",
			models.AppointmentStatusScheduled, before, false).
		Order("end_time ASC").
		Find(&appointments).Error
	return appointments, err
}

// GetUpcomingBetween returns SCHEDULED appointments starting inside
// [from, to), for reminder sweeps
func (r *AppointmentRepository) GetUpcomingBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		Where("status = ? AND start_time >= ? AND start_time < ?",
			models.AppointmentStatusScheduled, from, to).
		Order("start_time ASC").
		Find(&appointments).Error
	return appointments, err
}

// Update saves appointment mutations on the given transaction handle
func (r *AppointmentRepository) Update(tx *gorm.DB, appointment *models.Appointment) error {
	return tx.Save(appointment).Error
}

// UpdateVideoSession sets the video session id outside any escrow flow
func (r *AppointmentRepository) UpdateVideoSession(ctx context.Context, id uint, sessionID string) error {
	return r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ?", id).
		Update("video_session_id", sessionID).Error
}
