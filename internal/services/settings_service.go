// internal/services/settings_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/inkwell-backend/internal/models"
	"github.com/javajoker/inkwell-backend/internal/repository"
)

// SettingsService resolves the platform fee rate: the stored setting when
// present, otherwise the configured default.
type SettingsService struct {
	store      *repository.Store
	defaultFee decimal.Decimal
}

func NewSettingsService(store *repository.Store, defaultFee decimal.Decimal) *SettingsService {
	return &SettingsService{store: store, defaultFee: defaultFee}
}

// PlatformFeePercent reads the rate through store, which may be a
// transaction-scoped Store so the rate is read once per verification.
func (s *SettingsService) PlatformFeePercent(ctx context.Context, store *repository.Store) (decimal.Decimal, error) {
	if store == nil {
		store = s.store
	}

	setting, err := store.Settings.Get(ctx, models.SettingPlatformFeePercent)
	if errors.Is(err, repository.ErrNotFound) {
		return s.defaultFee, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read platform fee: %w", err)
	}

	fee, err := parseFeePercent(setting.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("stored %s is invalid: %w", models.SettingPlatformFeePercent, err)
	}
	return fee, nil
}

func (s *SettingsService) SetPlatformFeePercent(ctx context.Context, value string, updatedBy *uuid.UUID) (decimal.Decimal, error) {
	fee, err := parseFeePercent(value)
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.store.Settings.Set(ctx, models.SettingPlatformFeePercent, fee.String(), updatedBy); err != nil {
		return decimal.Zero, fmt.Errorf("failed to store platform fee: %w", err)
	}

	logrus.WithField("platform_fee_percent", fee.String()).Info("Platform fee updated")
	return fee, nil
}

func parseFeePercent(value string) (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidFeeRate, value)
	}
	if fee.IsNegative() || fee.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("%w: got %s", ErrInvalidFeeRate, fee)
	}
	return fee, nil
}
