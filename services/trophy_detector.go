package services

import (
	"sort"
	"time"

	"prediction-league-system/models"
)

// Unlock is one detected trophy award, not yet persisted.
type Unlock struct {
	ExternalUserID string
	TrophyType     string
	UnlockedAt     time.Time
	Trigger        *models.TriggerMatch
}

// MatchdayContext is the value object matchday-scoped predicates consume:
// one fully finished matchday, already graded.
type MatchdayContext struct {
	Matchday     int
	Matches      []models.Match
	Predictions  []models.Prediction
	BonusMatchID string
	Stats        map[string]*UserMatchdayStats
	Meta         MatchdayMeta
}

// TournamentContext bundles everything the detector needs for one
// tournament: the graded matchdays (incomplete ones absent), the
// participant roster and each user's already-awarded trophy set.
type TournamentContext struct {
	Tournament     *models.Tournament
	Days           map[int]*MatchdayContext
	ParticipantIDs []string
	Existing       map[string]map[string]bool // user -> trophy types held
	Finished       bool
}

// MatchdayEvaluation is the per-user view a matchday predicate sees.
type MatchdayEvaluation struct {
	Stats              *UserMatchdayStats // nil when the user had no resolvable prediction
	Meta               MatchdayMeta
	IsKing             bool
	IsLantern          bool
	ConsecutiveKing    int
	ConsecutiveLantern int
}

// TournamentEvaluation is the per-user view a tournament predicate sees.
type TournamentEvaluation struct {
	KingOnEveryDay     bool
	KingOnNoDay        bool
	RangeComplete      bool
	MultiMatchdayRange bool
	IsSoleWinner       bool
	IsSoleLast         bool
	Participants       int
}

// MatchdayPredicate decides one matchday-scoped trophy for one user.
type MatchdayPredicate struct {
	Type string
	Eval func(e *MatchdayEvaluation) bool
}

// TournamentPredicate decides one tournament-scoped trophy for one user.
type TournamentPredicate struct {
	Type string
	Eval func(e *TournamentEvaluation) bool
}

// The predicate registries. Adding a trophy type means appending here, not
// threading new branches through the detection walk.
var matchdayPredicates = []MatchdayPredicate{
	{models.TrophyKingOfDay, func(e *MatchdayEvaluation) bool {
		return e.IsKing
	}},
	{models.TrophyDoubleKing, func(e *MatchdayEvaluation) bool {
		return e.ConsecutiveKing >= 2
	}},
	{models.TrophyLantern, func(e *MatchdayEvaluation) bool {
		return e.IsLantern
	}},
	{models.TrophyDownwardSpiral, func(e *MatchdayEvaluation) bool {
		return e.ConsecutiveLantern >= 2
	}},
	{models.TrophyOpportunist, func(e *MatchdayEvaluation) bool {
		return e.Stats != nil && e.Stats.CorrectResults >= 2
	}},
	{models.TrophyNostradamus, func(e *MatchdayEvaluation) bool {
		return e.Stats != nil && e.Stats.ExactScores >= 2
	}},
	{models.TrophyBonusProfiteer, func(e *MatchdayEvaluation) bool {
		return e.Stats != nil && e.Stats.BonusCorrect
	}},
	{models.TrophyBonusOptimizer, func(e *MatchdayEvaluation) bool {
		return e.Stats != nil && e.Stats.BonusExact
	}},
	{models.TrophyCursed, func(e *MatchdayEvaluation) bool {
		return e.Stats != nil && e.Stats.MatchesPlayed > 0 && e.Stats.CorrectResults == 0
	}},
}

var tournamentPredicates = []TournamentPredicate{
	{models.TrophyUltraDominator, func(e *TournamentEvaluation) bool {
		return e.RangeComplete && e.MultiMatchdayRange && e.KingOnEveryDay
	}},
	{models.TrophyPoulidor, func(e *TournamentEvaluation) bool {
		return e.RangeComplete && e.MultiMatchdayRange && e.KingOnNoDay
	}},
	{models.TrophyTournamentWinner, func(e *TournamentEvaluation) bool {
		return e.IsSoleWinner
	}},
	{models.TrophyLegend, func(e *TournamentEvaluation) bool {
		return e.IsSoleWinner && e.Participants > 10
	}},
	{models.TrophyAbyssal, func(e *TournamentEvaluation) bool {
		return e.IsSoleLast && e.Participants > 1
	}},
}

// isSoleLeader implements the king_of_day tie-break: top of the day, and
// either the top is above zero or exactly one user sits there. The zero-point
// branch deliberately crowns a user who is alone at the top with nothing,
// e.g. the only participant with any resolvable prediction.
func isSoleLeader(points int, meta MatchdayMeta) bool {
	return points == meta.MaxPoints && (meta.MaxPoints > 0 || meta.UsersAtMax == 1)
}

// isSoleLast is stricter than its king counterpart: the bottom must be held
// alone, and losing requires someone to lose to.
func isSoleLast(points int, meta MatchdayMeta, participants int) bool {
	return points == meta.MinPoints && meta.UsersAtMin == 1 && participants > 1
}

// DetectTrophies evaluates every predicate for every participant of one
// tournament and returns the unlocks not already held. Deterministic: the
// same context always yields the same unlock set, so re-running a
// recomputation is safe.
func DetectTrophies(ctx *TournamentContext) []Unlock {
	var unlocks []Unlock
	for _, userID := range ctx.ParticipantIDs {
		unlocks = append(unlocks, detectForUser(ctx, userID)...)
	}
	return unlocks
}

func detectForUser(ctx *TournamentContext, userID string) []Unlock {
	held := make(map[string]bool)
	for trophyType := range ctx.Existing[userID] {
		held[trophyType] = true
	}

	var unlocks []Unlock
	award := func(trophyType string, at time.Time, trigger *models.TriggerMatch) {
		if held[trophyType] {
			return
		}
		held[trophyType] = true
		unlocks = append(unlocks, Unlock{
			ExternalUserID: userID,
			TrophyType:     trophyType,
			UnlockedAt:     at,
			Trigger:        trigger,
		})
	}

	t := ctx.Tournament
	totalMatchdays := t.EndingMatchday - t.StartingMatchday + 1

	unlocks = append(unlocks, detectCareerTrophies(ctx, userID, held)...)
	for _, u := range unlocks {
		held[u.TrophyType] = true
	}

	consecutiveKing := 0
	consecutiveLantern := 0
	kingCount := 0
	completedMatchdays := 0

	for matchday := t.StartingMatchday; matchday <= t.EndingMatchday; matchday++ {
		day := ctx.Days[matchday]
		if day == nil {
			// A gap breaks any consecutive run.
			consecutiveKing = 0
			consecutiveLantern = 0
			continue
		}
		completedMatchdays++

		stats := day.Stats[userID]
		eval := MatchdayEvaluation{
			Stats: stats,
			Meta:  day.Meta,
		}
		if stats != nil {
			eval.IsKing = isSoleLeader(stats.Points, day.Meta)
			eval.IsLantern = isSoleLast(stats.Points, day.Meta, len(day.Stats))
		}

		if eval.IsKing {
			consecutiveKing++
			kingCount++
		} else {
			consecutiveKing = 0
		}
		if eval.IsLantern {
			consecutiveLantern++
		} else {
			consecutiveLantern = 0
		}
		eval.ConsecutiveKing = consecutiveKing
		eval.ConsecutiveLantern = consecutiveLantern

		for _, p := range matchdayPredicates {
			if held[p.Type] || !p.Eval(&eval) {
				continue
			}
			// Unlocked when the matchday completed (latest kickoff), not at
			// detection time, so late recomputation keeps historical order.
			award(p.Type, day.Meta.CompletedAt, lastMatchTrigger(day, userID))
		}
	}

	if ctx.Finished && completedMatchdays == totalMatchdays {
		finalDay := ctx.Days[t.EndingMatchday]
		var finalAt time.Time
		var finalTrigger *models.TriggerMatch
		if finalDay != nil {
			finalAt = finalDay.Meta.CompletedAt
			finalTrigger = lastMatchTrigger(finalDay, userID)
		}

		eval := TournamentEvaluation{
			KingOnEveryDay:     kingCount == totalMatchdays,
			KingOnNoDay:        kingCount == 0,
			RangeComplete:      true,
			MultiMatchdayRange: totalMatchdays >= 2,
			Participants:       len(ctx.ParticipantIDs),
		}
		eval.IsSoleWinner, eval.IsSoleLast = finalStandingPosition(ctx, userID)

		for _, p := range tournamentPredicates {
			if held[p.Type] || !p.Eval(&eval) {
				continue
			}
			award(p.Type, finalAt, finalTrigger)
		}
	}

	return unlocks
}

// detectCareerTrophies finds the first-ever correct result and exact score,
// walking fixtures in kickoff order so the unlock timestamps land on the
// earliest qualifying match.
func detectCareerTrophies(ctx *TournamentContext, userID string, held map[string]bool) []Unlock {
	if held[models.TrophyCorrectResult] && held[models.TrophyExactScore] {
		return nil
	}

	type graded struct {
		match   *models.Match
		ep      EffectivePrediction
		outcome ScoreBreakdown
	}
	var all []graded

	cfg := DefaultScoringConfig // flags only; point values are irrelevant here
	for _, day := range ctx.Days {
		matchByID := make(map[string]*models.Match, len(day.Matches))
		for i := range day.Matches {
			matchByID[day.Matches[i].ID] = &day.Matches[i]
		}
		for _, ep := range ResolvePredictions(day.Matches, day.Predictions, userID, day.Meta.CompletedAt) {
			m := matchByID[ep.MatchID]
			if m == nil || !m.IsFinished() {
				continue
			}
			result := CalculatePoints(ep.PredictedHomeScore, ep.PredictedAwayScore, *m.HomeScore, *m.AwayScore, cfg, false, ep.IsDefault)
			all = append(all, graded{match: m, ep: ep, outcome: result})
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].match.KickoffAt.Before(all[j].match.KickoffAt)
	})

	var unlocks []Unlock
	haveCorrect := held[models.TrophyCorrectResult]
	haveExact := held[models.TrophyExactScore]
	for _, g := range all {
		if !haveExact && g.outcome.IsExactScore {
			unlocks = append(unlocks, Unlock{
				ExternalUserID: userID,
				TrophyType:     models.TrophyExactScore,
				UnlockedAt:     g.match.KickoffAt,
				Trigger:        triggerFromMatch(g.match, g.ep),
			})
			haveExact = true
		}
		if !haveCorrect && g.outcome.IsCorrectResult {
			unlocks = append(unlocks, Unlock{
				ExternalUserID: userID,
				TrophyType:     models.TrophyCorrectResult,
				UnlockedAt:     g.match.KickoffAt,
				Trigger:        triggerFromMatch(g.match, g.ep),
			})
			haveCorrect = true
		}
		if haveCorrect && haveExact {
			break
		}
	}
	return unlocks
}

// finalStandingPosition reports whether the user is the strict sole leader
// and/or strict sole last of the summed final standing. Both require a gap
// to the adjacent row: a tie at either end produces nothing.
func finalStandingPosition(ctx *TournamentContext, userID string) (soleWinner, soleLast bool) {
	totals := make(map[string]int)
	for _, day := range ctx.Days {
		for uid, s := range day.Stats {
			totals[uid] += s.Points
		}
	}
	if _, ok := totals[userID]; !ok {
		return false, false
	}

	type entry struct {
		userID string
		points int
	}
	sorted := make([]entry, 0, len(totals))
	for uid, pts := range totals {
		sorted = append(sorted, entry{uid, pts})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].points > sorted[j].points })

	if len(sorted) == 0 {
		return false, false
	}
	if sorted[0].userID == userID && (len(sorted) == 1 || sorted[0].points > sorted[1].points) {
		soleWinner = true
	}
	last := len(sorted) - 1
	if len(sorted) > 1 && sorted[last].userID == userID && sorted[last].points < sorted[last-1].points {
		soleLast = true
	}
	return soleWinner, soleLast
}

// lastMatchTrigger snapshots the final fixture of a matchday together with
// the user's effective prediction on it.
func lastMatchTrigger(day *MatchdayContext, userID string) *models.TriggerMatch {
	if len(day.Matches) == 0 {
		return nil
	}
	last := &day.Matches[0]
	for i := range day.Matches {
		if day.Matches[i].KickoffAt.After(last.KickoffAt) {
			last = &day.Matches[i]
		}
	}

	ep := EffectivePrediction{MatchID: last.ID}
	for _, resolved := range ResolvePredictions(day.Matches, day.Predictions, userID, day.Meta.CompletedAt) {
		if resolved.MatchID == last.ID {
			ep = resolved
			break
		}
	}
	return triggerFromMatch(last, ep)
}

func triggerFromMatch(m *models.Match, ep EffectivePrediction) *models.TriggerMatch {
	trigger := &models.TriggerMatch{
		HomeTeamName:       m.HomeTeamName,
		AwayTeamName:       m.AwayTeamName,
		HomeTeamCrest:      m.HomeTeamCrest,
		AwayTeamCrest:      m.AwayTeamCrest,
		PredictedHomeScore: ep.PredictedHomeScore,
		PredictedAwayScore: ep.PredictedAwayScore,
		KickoffAt:          m.KickoffAt,
	}
	if m.HomeScore != nil {
		trigger.HomeScore = *m.HomeScore
	}
	if m.AwayScore != nil {
		trigger.AwayScore = *m.AwayScore
	}
	return trigger
}
