package models

import (
	"time"
)

// Admin setting keys for the platform-wide scoring defaults. Tournament
// columns override these when set.
const (
	SettingPointsExactScore            = "points_exact_score"
	SettingPointsCorrectResult         = "points_correct_result"
	SettingPointsIncorrectResult       = "points_incorrect_result"
	SettingPointsDefaultPredictionDraw = "points_default_prediction_draw"
)

// AdminSetting is a key-value row of the admin configuration table.
type AdminSetting struct {
	Key       string    `json:"setting_key" gorm:"primaryKey;column:setting_key"`
	Value     string    `json:"setting_value" gorm:"column:setting_value;not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
