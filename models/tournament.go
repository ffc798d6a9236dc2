package models

import (
	"time"
)

// Tournament statuses follow the lifecycle draft → pending → warmup → active → finished.
const (
	TournamentStatusDraft    = "draft"
	TournamentStatusPending  = "pending"
	TournamentStatusWarmup   = "warmup"
	TournamentStatusActive   = "active"
	TournamentStatusFinished = "finished"
)

// Tournament ties a group of participants to a matchday range of a competition.
// The scoring_* columns override the admin defaults when set (> 0).
type Tournament struct {
	ID            string `json:"id" gorm:"primaryKey;type:uuid"`
	Slug          string `json:"slug" gorm:"uniqueIndex;not null"`
	Name          string `json:"name" gorm:"not null"`
	CompetitionID string `json:"competition_id" gorm:"index;not null"`
	CreatorID     string `json:"creator_id" gorm:"index"`
	Status        string `json:"status" gorm:"type:varchar(16);default:'draft'"`

	// Inclusive matchday range. Invariant: EndingMatchday >= StartingMatchday.
	StartingMatchday int `json:"starting_matchday" gorm:"not null"`
	EndingMatchday   int `json:"ending_matchday" gorm:"not null"`

	// Scoring configuration (non-negative integers).
	ScoringExactScore            int `json:"scoring_exact_score" gorm:"default:0"`
	ScoringCorrectResult         int `json:"scoring_correct_result" gorm:"default:0"`
	ScoringIncorrectResult       int `json:"scoring_incorrect_result" gorm:"default:0"`
	ScoringDefaultPredictionDraw int `json:"scoring_default_prediction_draw" gorm:"default:0"`

	BonusMatchEnabled     bool `json:"bonus_match_enabled" gorm:"default:false"`
	QualifierBonusEnabled bool `json:"qualifier_bonus_enabled" gorm:"default:false"`

	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Calculated fields (not stored in DB)
	ParticipantsCount int64 `json:"participants_count,omitempty" gorm:"-"`

	Timestamps
}

// TournamentParticipant links a mirrored user to a tournament.
type TournamentParticipant struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	TournamentID   string    `json:"tournament_id" gorm:"uniqueIndex:idx_tournament_user;not null"`
	ExternalUserID string    `json:"external_user_id" gorm:"uniqueIndex:idx_tournament_user;not null"`
	JoinedAt       time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// BonusMatch pins the doubled-points fixture of one matchday.
// Created lazily, once, and never regenerated for its (tournament, matchday)
// key; dropping the row is the only way to force a re-selection.
type BonusMatch struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	TournamentID string    `json:"tournament_id" gorm:"uniqueIndex:idx_tournament_matchday;not null"`
	Matchday     int       `json:"matchday" gorm:"uniqueIndex:idx_tournament_matchday;not null"`
	MatchID      string    `json:"match_id" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}
