// internal/repository/settings_repository.go
package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/inkwell-backend/internal/models"
)

type SettingsRepository struct {
	db *gorm.DB
}

func (r *SettingsRepository) Get(ctx context.Context, name string) (*models.PlatformSetting, error) {
	var setting models.PlatformSetting
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&setting).Error; err != nil {
		return nil, translate(err)
	}
	return &setting, nil
}

func (r *SettingsRepository) Set(ctx context.Context, name, value string, updatedBy *uuid.UUID) error {
	setting := &models.PlatformSetting{
		Name:      name,
		Value:     value,
		UpdatedBy: updatedBy,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
		}).
		Create(setting).Error
}
