package models

// PlayerStanding is one ranked row of a matchday or tournament standing.
// Derived on demand, never persisted.
type PlayerStanding struct {
	ExternalUserID string `json:"external_user_id"`
	Username       string `json:"username,omitempty"`
	Avatar         string `json:"avatar,omitempty"`

	TotalPoints    int `json:"total_points"`
	ExactScores    int `json:"exact_scores"`
	CorrectResults int `json:"correct_results"`
	MatchesPlayed  int `json:"matches_played"`

	// Perfect ties (points, exact scores, correct results) share a rank.
	Rank         int    `json:"rank"`
	PreviousRank int    `json:"previous_rank,omitempty"`
	RankChange   string `json:"rank_change,omitempty"` // "up", "down", "same"
}
