package repositories

import (
	"context"
	"errors"

	"mediconnect/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// SettingsRepository handles platform_settings key/value rows
type SettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetAll returns every platform setting row
func (r *SettingsRepository) GetAll(ctx context.Context) ([]models.PlatformSetting, error) {
	var settings []models.PlatformSetting
	err := r.db.WithContext(ctx).Find(&settings).Error
	return settings, err
}

// GetValue returns a specific setting value
func (r *SettingsRepository) GetValue(ctx context.Context, key string) (string, error) {
	var setting models.PlatformSetting
	err := r.db.WithContext(ctx).
		Where("setting_key = ?", key).
		First(&setting).Error
	if err != nil {
		return "", err
	}
	return setting.SettingValue, nil
}

// Upsert updates or creates a setting entry
func (r *SettingsRepository) Upsert(ctx context.Context, key, value string) error {
	var setting models.PlatformSetting
	err := r.db.WithContext(ctx).
		Where("setting_key = ?", key).
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = models.PlatformSetting{
			SettingKey:   key,
			SettingValue: value,
		}
		return r.db.WithContext(ctx).Create(&setting).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&setting).Update("setting_value", value).Error
}
