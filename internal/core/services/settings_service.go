package services

import (
	"context"
	"errors"
	"strconv"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/adapters/persistence/repositories"
	"mediconnect/internal/core/domain"
)

// Settings errors
var (
	ErrSettingNotFound = errors.New("setting not found")
	ErrInvalidSetting  = errors.New("invalid setting value")
)

// Billing defaults used when a row is missing or unparsable
const (
	DefaultAppointmentCreditCost = 2
	DefaultDoctorEarningRate     = 0.8
	DefaultCreditToCurrencyRate  = 10.0
	DefaultAdminEarningPercent   = 20.0
)

// SettingsService reads the numeric engine parameters. Billing settings are
// resolved once per operation and handed to the engine as an explicit
// value, never cached across requests.
type SettingsService struct {
	settingsRepo *repositories.SettingsRepository
}

// NewSettingsService creates a new settings service
func NewSettingsService(settingsRepo *repositories.SettingsRepository) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

// Billing resolves the current billing settings from platform_settings,
// falling back to defaults for missing rows.
func (s *SettingsService) Billing(ctx context.Context) (domain.BillingSettings, error) {
	settings := domain.BillingSettings{
		AppointmentCreditCost: DefaultAppointmentCreditCost,
		DoctorEarningRate:     DefaultDoctorEarningRate,
		CreditToCurrencyRate:  DefaultCreditToCurrencyRate,
		AdminEarningPercent:   DefaultAdminEarningPercent,
	}

	rows, err := s.settingsRepo.GetAll(ctx)
	if err != nil {
		return settings, err
	}

	for _, row := range rows {
		switch row.SettingKey {
		case models.SettingAppointmentCreditCost:
			if v, err := strconv.Atoi(row.SettingValue); err == nil && v > 0 {
				settings.AppointmentCreditCost = v
			}
		case models.SettingDoctorEarningRate:
			if v, err := strconv.ParseFloat(row.SettingValue, 64); err == nil && v > 0 && v <= 1 {
				settings.DoctorEarningRate = v
			}
		case models.SettingCreditToCurrencyRate:
			if v, err := strconv.ParseFloat(row.SettingValue, 64); err == nil && v > 0 {
				settings.CreditToCurrencyRate = v
			}
		case models.SettingAdminEarningPercent:
			if v, err := strconv.ParseFloat(row.SettingValue, 64); err == nil && v >= 0 && v <= 100 {
				settings.AdminEarningPercent = v
			}
		}
	}

	return settings, nil
}

// GetAll returns every platform setting row (admin view)
func (s *SettingsService) GetAll(ctx context.Context) ([]models.PlatformSetting, error) {
	return s.settingsRepo.GetAll(ctx)
}

// UpdateSettingInput represents a setting update request
type UpdateSettingInput struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// Update validates and upserts a setting entry
func (s *SettingsService) Update(ctx context.Context, input *UpdateSettingInput) error {
	switch input.Key {
	case models.SettingAppointmentCreditCost:
		if v, err := strconv.Atoi(input.Value); err != nil || v <= 0 {
			return ErrInvalidSetting
		}
	case models.SettingDoctorEarningRate:
		if v, err := strconv.ParseFloat(input.Value, 64); err != nil || v <= 0 || v > 1 {
			return ErrInvalidSetting
		}
	case models.SettingCreditToCurrencyRate:
		if v, err := strconv.ParseFloat(input.Value, 64); err != nil || v <= 0 {
			return ErrInvalidSetting
		}
	case models.SettingAdminEarningPercent:
		if v, err := strconv.ParseFloat(input.Value, 64); err != nil || v < 0 || v > 100 {
			return ErrInvalidSetting
		}
	default:
		return ErrSettingNotFound
	}

	return s.settingsRepo.Upsert(ctx, input.Key, input.Value)
}
