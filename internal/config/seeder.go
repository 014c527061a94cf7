package config

import (
	"log"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedPlatformSettings(); err != nil {
		return err
	}
	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedPlatformSettings inserts the billing defaults if missing. Existing
// values are never overwritten so admin changes survive restarts.
func (s *Seeder) seedPlatformSettings() error {
	defaults := map[string]string{
		models.SettingAppointmentCreditCost: "2",
		models.SettingDoctorEarningRate:     "0.8",
		models.SettingCreditToCurrencyRate:  "10.0",
		models.SettingAdminEarningPercent:   "20.0",
	}

	for key, value := range defaults {
		var count int64
		s.db.Model(&models.PlatformSetting{}).Where("setting_key = ?", key).Count(&count)
		if count > 0 {
			continue
		}
		setting := &models.PlatformSetting{SettingKey: key, SettingValue: value}
		if err := s.db.Create(setting).Error; err != nil {
			return err
		}
		log.Printf("🌱 Seeded setting %s = %s", key, value)
	}
	return nil
}

// seedAdminUser seeds default admin user
// This is for development/testing only
// In production, create admin through secure process
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:     "Platform Admin",
		Email:    "admin@mediconnect.local",
		Password: hashedPassword,
		Role:     models.RoleAdmin,
		IsActive: true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Email)
	return nil
}
