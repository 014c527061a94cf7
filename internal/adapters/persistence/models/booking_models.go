package models

import (
	"time"
)

// ============================================================
// Appointments & Credit Escrow
// ============================================================

// Appointment statuses
const (
	AppointmentStatusScheduled = "SCHEDULED"
	AppointmentStatusCompleted = "COMPLETED"
	AppointmentStatusCancelled = "CANCELLED"
)

// Appointment is the central booking entity. LockedCredits is the escrowed
// amount debited from the patient at booking time. CreditsReleased is a
// one-way latch: once true, no further credit movement may happen for this
// appointment. Rows are never deleted; they are the audit trail.
type Appointment struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	PatientID           uint       `gorm:"not null;index" json:"patient_id"`
	DoctorID            uint       `gorm:"not null;index" json:"doctor_id"`
	StartTime           time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime             time.Time  `gorm:"not null" json:"end_time"`
	Status              string     `gorm:"size:20;not null;default:'SCHEDULED';index" json:"status"`
	LockedCredits       int        `gorm:"not null;default:0" json:"locked_credits"`
	CreditsReleased     bool       `gorm:"not null;default:false" json:"credits_released"`
	AdminResolutionNote string     `gorm:"type:text" json:"admin_resolution_note,omitempty"`
	VideoSessionID      *string    `gorm:"size:64" json:"video_session_id,omitempty"`
	CompletedAt         *time.Time `json:"completed_at"`
	CancelledAt         *time.Time `json:"cancelled_at"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsTerminal reports whether the appointment reached a final status.
func (a *Appointment) IsTerminal() bool {
	return a.Status == AppointmentStatusCompleted || a.Status == AppointmentStatusCancelled
}

// IsEscrowed reports whether credits are still held against this appointment.
func (a *Appointment) IsEscrowed() bool {
	return a.LockedCredits > 0 && !a.CreditsReleased
}

// Disposition is the effective escrow state derived from status plus the
// release latch.
type Disposition string

const (
	DispositionScheduled         Disposition = "SCHEDULED"
	DispositionCompletedReleased Disposition = "COMPLETED_RELEASED"
	DispositionCompletedPending  Disposition = "COMPLETED_PENDING"
	DispositionCancelledRefunded Disposition = "CANCELLED_REFUNDED"
	DispositionScheduledReleased Disposition = "SCHEDULED_RELEASED"
)

// Disposition derives the effective escrow state of the appointment.
func (a *Appointment) Disposition() Disposition {
	switch a.Status {
	case AppointmentStatusCompleted:
		if a.CreditsReleased {
			return DispositionCompletedReleased
		}
		return DispositionCompletedPending
	case AppointmentStatusCancelled:
		return DispositionCancelledRefunded
	default:
		if a.CreditsReleased {
			return DispositionScheduledReleased
		}
		return DispositionScheduled
	}
}

// AppointmentResponse DTO
type AppointmentResponse struct {
	ID                  uint       `json:"id"`
	PatientID           uint       `json:"patient_id"`
	PatientName         string     `json:"patient_name,omitempty"`
	DoctorID            uint       `json:"doctor_id"`
	DoctorName          string     `json:"doctor_name,omitempty"`
	Specialty           string     `json:"specialty,omitempty"`
	StartTime           time.Time  `json:"start_time"`
	EndTime             time.Time  `json:"end_time"`
	Status              string     `json:"status"`
	LockedCredits       int        `json:"locked_credits"`
	CreditsReleased     bool       `json:"credits_released"`
	AdminResolutionNote string     `json:"admin_resolution_note,omitempty"`
	VideoSessionID      *string    `json:"video_session_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
}

func (a *Appointment) ToResponse() *AppointmentResponse {
	resp := &AppointmentResponse{
		ID:                  a.ID,
		PatientID:           a.PatientID,
		DoctorID:            a.DoctorID,
		StartTime:           a.StartTime,
		EndTime:             a.EndTime,
		Status:              a.Status,
		LockedCredits:       a.LockedCredits,
		CreditsReleased:     a.CreditsReleased,
		AdminResolutionNote: a.AdminResolutionNote,
		VideoSessionID:      a.VideoSessionID,
		CreatedAt:           a.CreatedAt,
		CompletedAt:         a.CompletedAt,
		CancelledAt:         a.CancelledAt,
	}

	if a.Patient != nil {
		resp.PatientName = a.Patient.Name
	}
	if a.Doctor != nil {
		resp.DoctorName = a.Doctor.Name
		resp.Specialty = a.Doctor.Specialty
	}

	return resp
}

// ============================================================
// Credit Ledger
// ============================================================

// Credit transaction types
const (
	TxTypeCreditPurchase       = "CREDIT_PURCHASE"
	TxTypeAppointmentDeduction = "APPOINTMENT_DEDUCTION"
	TxTypeAdminAdjustment      = "ADMIN_ADJUSTMENT"
)

// CreditTransaction is an append-only ledger row. For every user, the sum
// of Amount over all rows must equal users.credits at all times.
type CreditTransaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Amount    int       `gorm:"not null" json:"amount"`
	Type      string    `gorm:"size:30;not null" json:"type"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

// ============================================================
// Payouts
// ============================================================

// Payout statuses
const (
	PayoutStatusProcessing = "PROCESSING"
	PayoutStatusProcessed  = "PROCESSED"
)

// Payout is a doctor's cash-out request. Credits leave the doctor's balance
// only when an admin approves the payout.
type Payout struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	DoctorID    uint       `gorm:"not null;index" json:"doctor_id"`
	Credits     int        `gorm:"not null" json:"credits"`
	Amount      float64    `gorm:"type:decimal(15,2);not null" json:"amount"`
	PlatformFee float64    `gorm:"type:decimal(15,2);not null" json:"platform_fee"`
	NetAmount   float64    `gorm:"type:decimal(15,2);not null" json:"net_amount"`
	BankDetails string     `gorm:"type:text;not null" json:"bank_details"`
	Status      string     `gorm:"size:20;not null;default:'PROCESSING';index" json:"status"`
	ProcessedAt *time.Time `json:"processed_at"`
	ProcessedBy *uint      `json:"processed_by"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Doctor    *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Processor *User `gorm:"foreignKey:ProcessedBy" json:"processor,omitempty"`
}

func (Payout) TableName() string {
	return "payouts"
}

// ============================================================
// Platform Settings (key/value)
// ============================================================

// Setting keys
const (
	SettingAppointmentCreditCost = "appointment_credit_cost"
	SettingDoctorEarningRate     = "doctor_earning_rate"
	SettingCreditToCurrencyRate  = "credit_to_currency_rate"
	SettingAdminEarningPercent   = "admin_earning_percent"
)

// PlatformSetting stores one numeric engine parameter per row.
type PlatformSetting struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SettingKey   string    `gorm:"size:50;uniqueIndex;not null" json:"setting_key"`
	SettingValue string    `gorm:"size:100;not null" json:"setting_value"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PlatformSetting) TableName() string {
	return "platform_settings"
}

// ============================================================
// Notifications
// ============================================================

// Notification is a best-effort notification bell row.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}
