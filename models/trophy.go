package models

import (
	"time"

	"gorm.io/datatypes"
)

// Trophy type codes. Append-only: codes are stored in user rows and must
// never be renamed.
const (
	TrophyCorrectResult    = "correct_result"
	TrophyExactScore       = "exact_score"
	TrophyKingOfDay        = "king_of_day"
	TrophyDoubleKing       = "double_king"
	TrophyOpportunist      = "opportunist"
	TrophyNostradamus      = "nostradamus"
	TrophyLantern          = "lantern"
	TrophyDownwardSpiral   = "downward_spiral"
	TrophyBonusProfiteer   = "bonus_profiteer"
	TrophyBonusOptimizer   = "bonus_optimizer"
	TrophyUltraDominator   = "ultra_dominator"
	TrophyPoulidor         = "poulidor"
	TrophyCursed           = "cursed"
	TrophyTournamentWinner = "tournament_winner"
	TrophyLegend           = "legend"
	TrophyAbyssal          = "abyssal"
)

var AllTrophyTypes = []string{
	TrophyCorrectResult, TrophyExactScore, TrophyKingOfDay, TrophyDoubleKing,
	TrophyOpportunist, TrophyNostradamus, TrophyLantern, TrophyDownwardSpiral,
	TrophyBonusProfiteer, TrophyBonusOptimizer, TrophyUltraDominator,
	TrophyPoulidor, TrophyCursed, TrophyTournamentWinner, TrophyLegend,
	TrophyAbyssal,
}

// TrophyUnlock is a permanent award. Exactly one row per (user, trophy type)
// ever, never updated, never deleted. IsNew drives the one-shot unlock
// animation in the UI and is cleared once shown.
type TrophyUnlock struct {
	ID             string         `json:"id" gorm:"primaryKey;type:uuid"`
	ExternalUserID string         `json:"external_user_id" gorm:"uniqueIndex:idx_user_trophy;not null"`
	TrophyType     string         `json:"trophy_type" gorm:"uniqueIndex:idx_user_trophy;not null;type:varchar(32)"`
	UnlockedAt     time.Time      `json:"unlocked_at" gorm:"not null"`
	IsNew          bool           `json:"is_new" gorm:"default:true"`
	TriggerMatch   datatypes.JSON `json:"trigger_match,omitempty"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TriggerMatch is the snapshot stored alongside an unlock so notifications
// and the profile UI can show which fixture earned it.
type TriggerMatch struct {
	HomeTeamName       string    `json:"home_team_name"`
	AwayTeamName       string    `json:"away_team_name"`
	HomeTeamCrest      *string   `json:"home_team_crest,omitempty"`
	AwayTeamCrest      *string   `json:"away_team_crest,omitempty"`
	HomeScore          int       `json:"home_score"`
	AwayScore          int       `json:"away_score"`
	PredictedHomeScore int       `json:"predicted_home_score"`
	PredictedAwayScore int       `json:"predicted_away_score"`
	KickoffAt          time.Time `json:"kickoff_at"`
}

// TrophyInfo is the display metadata for one trophy type.
type TrophyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IconPath    string `json:"icon_path"`
}

var trophyCatalog = map[string]TrophyInfo{
	TrophyCorrectResult:    {"The Lucky One", "Predict at least one correct result", "/trophy/correct-result.png"},
	TrophyExactScore:       {"The Analyst", "Predict at least one exact score", "/trophy/exact-score.png"},
	TrophyKingOfDay:        {"King of the Day", "Finish a matchday first, outright", "/trophy/king-of-day.png"},
	TrophyDoubleKing:       {"Double King", "Finish first on two consecutive matchdays", "/trophy/double-king.png"},
	TrophyOpportunist:      {"The Opportunist", "Two correct results on the same matchday", "/trophy/opportunist.png"},
	TrophyNostradamus:      {"Nostradamus", "Two exact scores on the same matchday", "/trophy/nostradamus.png"},
	TrophyLantern:          {"Red Lantern", "Finish a matchday last, outright", "/trophy/lantern.png"},
	TrophyDownwardSpiral:   {"Downward Spiral", "Finish last on two consecutive matchdays", "/trophy/downward-spiral.png"},
	TrophyBonusProfiteer:   {"The Profiteer", "A correct result on a bonus match", "/trophy/bonus-profiteer.png"},
	TrophyBonusOptimizer:   {"The Optimizer", "An exact score on a bonus match", "/trophy/bonus-optimizer.png"},
	TrophyUltraDominator:   {"Ultra Dominator", "Finish first on every matchday of a tournament", "/trophy/ultra-dominator.png"},
	TrophyPoulidor:         {"The Poulidor", "Never first on any matchday of a finished tournament", "/trophy/poulidor.png"},
	TrophyCursed:           {"The Cursed", "Zero correct results across a whole matchday", "/trophy/cursed.png"},
	TrophyTournamentWinner: {"Ballon d'Or", "Win a tournament's final standing, outright", "/trophy/tournament-winner.png"},
	TrophyLegend:           {"The Legend", "Win a tournament with more than 10 participants", "/trophy/legend.png"},
	TrophyAbyssal:          {"The Abyssal", "Finish a tournament last, outright", "/trophy/abyssal.png"},
}

// GetTrophyInfo returns display metadata for a trophy type.
func GetTrophyInfo(trophyType string) TrophyInfo {
	if info, ok := trophyCatalog[trophyType]; ok {
		return info
	}
	return TrophyInfo{Name: "Unknown Trophy", Description: "No description available", IconPath: "/trophy/default.png"}
}
