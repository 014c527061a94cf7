package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User roles
const (
	RolePatient = "PATIENT"
	RoleDoctor  = "DOCTOR"
	RoleAdmin   = "ADMIN"
)

// User represents users table.
// Credits is a denormalized cache of the credit_transactions sum for this
// user; it is only ever written through CreditRepository.MoveCredits.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"size:100;not null" json:"name"`
	Email      string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password   string         `gorm:"size:255;not null" json:"-"`
	Role       string         `gorm:"size:20;default:'PATIENT'" json:"role"`
	Credits    int            `gorm:"not null;default:0" json:"credits"`
	Specialty  string         `gorm:"size:100" json:"specialty,omitempty"`
	IsVerified bool           `gorm:"default:false" json:"is_verified"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Credits    int       `json:"credits"`
	Specialty  string    `json:"specialty,omitempty"`
	IsVerified bool      `json:"is_verified"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Credits:    u.Credits,
		Specialty:  u.Specialty,
		IsVerified: u.IsVerified,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

// IsDoctor reports whether the user is a doctor account.
func (u *User) IsDoctor() bool {
	return u.Role == RoleDoctor
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Availability (doctor recurring windows)
// ============================================================

// Availability statuses
const (
	AvailabilityStatusAvailable = "AVAILABLE"
	AvailabilityStatusDisabled  = "DISABLED"
)

// Availability represents a doctor's recurring daily window. Only the
// time-of-day of StartTime/EndTime is meaningful; the date part is a
// template. EndTime's clock earlier than StartTime's means the window
// wraps past midnight.
type Availability struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	DoctorID  uint           `gorm:"not null;index" json:"doctor_id"`
	StartTime time.Time      `gorm:"not null" json:"start_time"`
	EndTime   time.Time      `gorm:"not null" json:"end_time"`
	Status    string         `gorm:"size:20;not null;default:'AVAILABLE'" json:"status"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Doctor *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (Availability) TableName() string {
	return "availabilities"
}

// IsOvernight reports whether the window wraps past midnight.
func (a *Availability) IsOvernight() bool {
	startMin := a.StartTime.Hour()*60 + a.StartTime.Minute()
	endMin := a.EndTime.Hour()*60 + a.EndTime.Minute()
	return endMin < startMin
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Availability{},
		&Appointment{},
		&CreditTransaction{},
		&Payout{},
		&PlatformSetting{},
		&Notification{},
	)
}
