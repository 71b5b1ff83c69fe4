// internal/models/settings.go
package models

import (
	"github.com/google/uuid"
)

const SettingPlatformFeePercent = "platform_fee_percent"

type PlatformSetting struct {
	BaseModel
	Name        string     `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Value       string     `json:"value" gorm:"size:255;not null"`
	Description string     `json:"description" gorm:"type:text"`
	UpdatedBy   *uuid.UUID `json:"updated_by" gorm:"type:uuid"`
}

func (PlatformSetting) TableName() string {
	return "platform_settings"
}
