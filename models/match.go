package models

import (
	"time"
)

const (
	MatchStatusScheduled = "scheduled"
	MatchStatusInPlay    = "in_play"
	MatchStatusFinished  = "finished"
	MatchStatusOther     = "other"
)

// Match is a fixture mirrored from the football-data provider.
// Scores stay nil until the provider reports them; a finished match always
// carries both scores.
type Match struct {
	ID            string    `json:"id" gorm:"primaryKey"` // provider-stable id
	CompetitionID string    `json:"competition_id" gorm:"index;not null"`
	Matchday      int       `json:"matchday" gorm:"index;not null"`
	Stage         string    `json:"stage,omitempty"`
	KickoffAt     time.Time `json:"kickoff_at" gorm:"index;not null"`
	Status        string    `json:"status" gorm:"type:varchar(16);default:'scheduled'"`

	HomeTeamName  string  `json:"home_team_name"`
	AwayTeamName  string  `json:"away_team_name"`
	HomeTeamCrest *string `json:"home_team_crest,omitempty"`
	AwayTeamCrest *string `json:"away_team_crest,omitempty"`

	HomeScore *int `json:"home_score,omitempty"`
	AwayScore *int `json:"away_score,omitempty"`

	// 90-minute scores and winner side, set for knockout fixtures that went
	// to extra time. WinnerSide is "home" or "away".
	HomeScore90 *int    `json:"home_score_90,omitempty"`
	AwayScore90 *int    `json:"away_score_90,omitempty"`
	WinnerSide  *string `json:"winner_side,omitempty" gorm:"type:varchar(8)"`

	Timestamps
}

// IsFinished reports whether the match can be scored: the provider flagged it
// finished and both scores are present.
func (m *Match) IsFinished() bool {
	return m.Status == MatchStatusFinished && m.HomeScore != nil && m.AwayScore != nil
}

// Score90 returns the 90-minute score when recorded, falling back to the
// final score. Predictions on knockout fixtures are graded on 90 minutes.
func (m *Match) Score90() (home, away int) {
	home, away = *m.HomeScore, *m.AwayScore
	if m.HomeScore90 != nil {
		home = *m.HomeScore90
	}
	if m.AwayScore90 != nil {
		away = *m.AwayScore90
	}
	return home, away
}
