package services

import (
	"errors"
	"fmt"
)

// ScoringConfig is the immutable point configuration of one recomputation
// run. Loaded once per job (tournament overrides on top of admin defaults)
// and passed explicitly, never read from global state mid-computation.
type ScoringConfig struct {
	ExactScore            int
	CorrectResult         int
	IncorrectResult       int
	DefaultPredictionDraw int
}

// DefaultScoringConfig is the platform fallback when neither the tournament
// nor the admin settings table defines a value.
var DefaultScoringConfig = ScoringConfig{
	ExactScore:            3,
	CorrectResult:         1,
	IncorrectResult:       0,
	DefaultPredictionDraw: 1,
}

// ScoreBreakdown is the result of grading one prediction.
type ScoreBreakdown struct {
	Points          int  `json:"points"`
	IsExactScore    bool `json:"is_exact_score"`
	IsCorrectResult bool `json:"is_correct_result"`
}

// Match outcomes for 1X2 classification.
const (
	OutcomeHomeWin = "HOME_WIN"
	OutcomeDraw    = "DRAW"
	OutcomeAwayWin = "AWAY_WIN"
)

// MatchOutcome classifies a score line as home win, draw or away win.
func MatchOutcome(homeScore, awayScore int) string {
	if homeScore > awayScore {
		return OutcomeHomeWin
	}
	if homeScore < awayScore {
		return OutcomeAwayWin
	}
	return OutcomeDraw
}

// CalculatePoints grades a prediction against the real result. Pure and
// total: valid integer scores always produce a breakdown.
//
// Priority order:
//  1. default prediction (0-0, never submitted) on a real draw → the
//     configured default-draw points, flagged correct result but not exact
//  2. exact score
//  3. correct 1X2 outcome
//  4. incorrect
//
// A bonus match doubles the awarded points of whichever tier applied.
func CalculatePoints(predHome, predAway, realHome, realAway int, cfg ScoringConfig, isBonusMatch, isDefaultPrediction bool) ScoreBreakdown {
	multiplier := 1
	if isBonusMatch {
		multiplier = 2
	}

	// An auto 0-0 on a draw is rewarded at its own configured rate, not the
	// exact-score or correct-result rate.
	if isDefaultPrediction && predHome == 0 && predAway == 0 {
		if MatchOutcome(realHome, realAway) == OutcomeDraw {
			return ScoreBreakdown{
				Points:          cfg.DefaultPredictionDraw * multiplier,
				IsExactScore:    false,
				IsCorrectResult: true,
			}
		}
	}

	if predHome == realHome && predAway == realAway {
		return ScoreBreakdown{
			Points:          cfg.ExactScore * multiplier,
			IsExactScore:    true,
			IsCorrectResult: true,
		}
	}

	if MatchOutcome(predHome, predAway) == MatchOutcome(realHome, realAway) {
		return ScoreBreakdown{
			Points:          cfg.CorrectResult * multiplier,
			IsExactScore:    false,
			IsCorrectResult: true,
		}
	}

	return ScoreBreakdown{
		Points:          cfg.IncorrectResult * multiplier,
		IsExactScore:    false,
		IsCorrectResult: false,
	}
}

// CalculateKnockoutPoints grades a knockout prediction: base points on the
// 90-minute score plus a flat +1 when the predicted qualifier matches the
// side that went through. The qualifier bonus is added after bonus-match
// doubling and is never doubled itself.
func CalculateKnockoutPoints(predHome, predAway, realHome90, realAway90 int, predictedQualifier, actualWinnerSide string, cfg ScoringConfig, isBonusMatch, isDefaultPrediction, qualifierBonusEnabled bool) ScoreBreakdown {
	result := CalculatePoints(predHome, predAway, realHome90, realAway90, cfg, isBonusMatch, isDefaultPrediction)

	if qualifierBonusEnabled && predictedQualifier != "" && actualWinnerSide != "" && predictedQualifier == actualWinnerSide {
		result.Points++
	}
	return result
}

// ErrNoCandidateMatches is returned when a bonus match is requested for a
// matchday that has no fixtures yet.
var ErrNoCandidateMatches = errors.New("no candidate matches for bonus selection")

// SelectBonusMatch deterministically picks the bonus fixture of a matchday
// from an ordered candidate list. Pure: the same tournament, matchday and
// candidate set always select the same match, across calls and restarts, so
// a lost selection can be regenerated safely.
func SelectBonusMatch(tournamentID string, matchday int, candidateMatchIDs []string) (string, error) {
	if len(candidateMatchIDs) == 0 {
		return "", ErrNoCandidateMatches
	}

	seed := hashSeed(fmt.Sprintf("%s-%d", tournamentID, matchday))
	return candidateMatchIDs[seed%len(candidateMatchIDs)], nil
}

// hashSeed is a polynomial rolling hash truncated to signed 32 bits, sign-
// normalized to non-negative. PINNED: changing this function would silently
// reassign every historical bonus match, so it must never change.
func hashSeed(key string) int {
	var h int32
	for _, r := range key {
		h = (h << 5) - h + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v)
}
