package services

import (
	"time"

	"prediction-league-system/models"
)

// EffectivePrediction is what a user is scored against for one match: their
// stored submission, or a virtual 0-0 default once the match has kicked off.
type EffectivePrediction struct {
	ExternalUserID     string
	MatchID            string
	PredictedHomeScore int
	PredictedAwayScore int
	IsDefault          bool
	PredictedQualifier string // "", "home", "away"
}

// ResolvePredictions yields at most one effective prediction per match for
// one user:
//   - a stored prediction is used as-is
//   - a match that kicked off (kickoff <= now) with no submission gets a
//     virtual 0-0 default, flagged IsDefault; defaults are never persisted
//   - a match that has not started and has no submission is excluded:
//     still pending, not scored
//
// Every scoring path (live rankings, matchday aggregation, trophy detection)
// resolves through here so a user's score never differs between views.
func ResolvePredictions(matches []models.Match, stored []models.Prediction, externalUserID string, now time.Time) []EffectivePrediction {
	byMatch := make(map[string]*models.Prediction, len(stored))
	for i := range stored {
		if stored[i].ExternalUserID == externalUserID {
			byMatch[stored[i].MatchID] = &stored[i]
		}
	}

	resolved := make([]EffectivePrediction, 0, len(matches))
	for _, m := range matches {
		if p, ok := byMatch[m.ID]; ok {
			ep := EffectivePrediction{
				ExternalUserID:     externalUserID,
				MatchID:            m.ID,
				PredictedHomeScore: p.PredictedHomeScore,
				PredictedAwayScore: p.PredictedAwayScore,
				IsDefault:          p.IsDefault,
			}
			if p.PredictedQualifier != nil {
				ep.PredictedQualifier = *p.PredictedQualifier
			}
			resolved = append(resolved, ep)
			continue
		}

		if !m.KickoffAt.After(now) {
			resolved = append(resolved, EffectivePrediction{
				ExternalUserID:     externalUserID,
				MatchID:            m.ID,
				PredictedHomeScore: 0,
				PredictedAwayScore: 0,
				IsDefault:          true,
			})
		}
	}
	return resolved
}
