package models

import (
	"time"

	"gorm.io/gorm"
)

// Prediction is a user's submitted score for one match of a tournament.
// At most one row per (user, tournament, match). Defaults (0-0 after kickoff
// with no submission) are synthesized at read time and never persisted, so
// IsDefault is false on every stored row written through the API.
type Prediction struct {
	ID             string `json:"id" gorm:"primaryKey;type:uuid"`
	ExternalUserID string `json:"external_user_id" gorm:"uniqueIndex:idx_user_tournament_match;not null"`
	TournamentID   string `json:"tournament_id" gorm:"uniqueIndex:idx_user_tournament_match;not null"`
	MatchID        string `json:"match_id" gorm:"uniqueIndex:idx_user_tournament_match;not null"`

	PredictedHomeScore int  `json:"predicted_home_score" gorm:"not null"`
	PredictedAwayScore int  `json:"predicted_away_score" gorm:"not null"`
	IsDefault          bool `json:"is_default" gorm:"default:false"`

	// "home" or "away" on knockout fixtures when the qualifier bonus is on.
	PredictedQualifier *string `json:"predicted_qualifier,omitempty" gorm:"type:varchar(8)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
