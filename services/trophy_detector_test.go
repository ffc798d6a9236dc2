package services

import (
	"testing"
	"time"

	"prediction-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var detectorJoin = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

// day builds a graded MatchdayContext the way the recompute loop would.
func day(t *models.Tournament, matchday int, matches []models.Match, preds []models.Prediction, parts []models.TournamentParticipant, bonusID string) *MatchdayContext {
	now := LatestKickoff(matches).Add(3 * time.Hour)
	stats := ComputeMatchdayStats(t, matches, preds, parts, DefaultScoringConfig, bonusID, now)
	return &MatchdayContext{
		Matchday:     matchday,
		Matches:      matches,
		Predictions:  preds,
		BonusMatchID: bonusID,
		Stats:        stats,
		Meta:         ComputeMatchdayMeta(stats, matches),
	}
}

func detectorContext(tournament *models.Tournament, participantIDs []string, days ...*MatchdayContext) *TournamentContext {
	ctx := &TournamentContext{
		Tournament:     tournament,
		Days:           make(map[int]*MatchdayContext),
		ParticipantIDs: participantIDs,
		Existing:       make(map[string]map[string]bool),
		Finished:       tournament.Status == models.TournamentStatusFinished,
	}
	for _, userID := range participantIDs {
		ctx.Existing[userID] = make(map[string]bool)
	}
	for _, d := range days {
		ctx.Days[d.Matchday] = d
	}
	return ctx
}

func unlocksOf(unlocks []Unlock, userID, trophyType string) []Unlock {
	var out []Unlock
	for _, u := range unlocks {
		if u.ExternalUserID == userID && u.TrophyType == trophyType {
			out = append(out, u)
		}
	}
	return out
}

func hasUnlock(unlocks []Unlock, userID, trophyType string) bool {
	return len(unlocksOf(unlocks, userID, trophyType)) > 0
}

func kickoffAt(dayOffset, hour int) time.Time {
	return time.Date(2025, 8, 16+dayOffset, hour, 0, 0, 0, time.UTC)
}

func TestDetectTrophies_KingOfDay(t *testing.T) {
	tournament := testTournament("t1")
	parts := []models.TournamentParticipant{
		participant("t1", "alice", detectorJoin),
		participant("t1", "bob", detectorJoin),
	}

	matches := []models.Match{finishedMatch("m1", "PL", 1, kickoffAt(0, 15), 2, 1)}
	preds := []models.Prediction{
		storedPrediction("alice", "t1", "m1", 2, 1), // exact, 3 pts
		storedPrediction("bob", "t1", "m1", 0, 2),   // wrong, 0 pts
	}

	ctx := detectorContext(tournament, []string{"alice", "bob"}, day(tournament, 1, matches, preds, parts, ""))
	unlocks := DetectTrophies(ctx)

	assert.True(t, hasUnlock(unlocks, "alice", models.TrophyKingOfDay))
	assert.False(t, hasUnlock(unlocks, "bob", models.TrophyKingOfDay))

	// Unlock time is the matchday's latest kickoff, not detection time.
	king := unlocksOf(unlocks, "alice", models.TrophyKingOfDay)[0]
	assert.Equal(t, kickoffAt(0, 15), king.UnlockedAt)
	require.NotNil(t, king.Trigger)
	assert.Equal(t, "Home m1", king.Trigger.HomeTeamName)
}

func TestDetectTrophies_KingOfDayTieAboveZero(t *testing.T) {
	tournament := testTournament("t1")
	parts := []models.TournamentParticipant{
		participant("t1", "alice", detectorJoin),
		participant("t1", "bob", detectorJoin),
	}

	matches := []models.Match{finishedMatch("m1", "PL", 1, kickoffAt(0, 15), 2, 1)}
	preds := []models.Prediction{
		storedPrediction("alice", "t1", "m1", 2, 1),
		storedPrediction("bob", "t1", "m1", 2, 1),
	}

	ctx := detectorContext(tournament, []string{"alice", "bob"}, day(tournament, 1, matches, preds, parts, ""))
	unlocks := DetectTrophies(ctx)

	// A tie above zero crowns everybody at the top.
	assert.True(t, hasUnlock(unlocks, "alice", models.TrophyKingOfDay))
	assert.True(t, hasUnlock(unlocks, "bob", models.TrophyKingOfDay))
}

func TestDetectTrophies_KingOfDaySoleZero(t *testing.T) {
	// Only alice has a resolvable prediction; she scores zero and is still
	// the day's sole entrant, so she is king with zero points.
	tournament := testTournament("t1")
	parts := []models.TournamentParticipant{
		participant("t1", "alice", detectorJoin),
		participant("t1", "bob", kickoffAt(0, 16)), // joined after kickoff, no entry
	}

	matches := []models.Match{finishedMatch("m1", "PL", 1, kickoffAt(0, 15), 2, 1)}
	preds := []models.Prediction{
		storedPrediction("alice", "t1", "m1", 0, 2), // wrong, 0 pts
	}

	d := day(tournament, 1, matches, preds, parts, "")
	require.Len(t, d.Stats, 1)

	ctx := detectorContext(tournament, []string{"alice", "bob"}, d)
	unlocks := DetectTrophies(ctx)
	assert.True(t, hasUnlock(unlocks, "alice", models.TrophyKingOfDay))
}

func TestDetectTrophies_ZeroPointTieCrownsNobody(t *testing.T) {
	tournament := testTournament("t1")
	parts := []models.TournamentParticipant{
		participant("t1", "alice", detectorJoin),
		participant("t1", "bob", detectorJoin),
	}

	matches := []models.Match{finishedMatch("m1", "PL", 1, kickoffAt(0, 15), 2, 1)}
	preds := []models.Prediction{
		storedPrediction("alice", "t1", "m1", 0, 2),
		storedPrediction("bob", "t1", "m1", 0, 3),
	}

	ctx := detectorContext(tournament, []string{"alice", "bob"}, day(tournament, 1, matches, preds, parts, ""))
	unlocks := DetectTrophies(ctx)
	assert.False(t, hasUnlock(unlocks, "alice", models.TrophyKingOfDay))
	assert.False(t, hasUnlock(unlocks, "bob", models.TrophyKingOfDay))

	// Both losing equally means nobody holds the lantern alone either.
	assert.False(t, hasUnlock(unlocks, "alice", models.TrophyLantern))
	assert.False(t, hasUnlock(unlocks, "bob", models.TrophyLantern))
}

func TestDetectTrophies_DoubleKingAndGapReset(t *testing.T) {
	tournament := testTournament("t1")
	tournament.EndingMatchday = 4
	parts := []models.TournamentParticipant{
		participant("t1", "alice", detectorJoin),
		participant("t1", "bob", detectorJoin),
	}

	winDay := func(md, offset int) *MatchdayContext {
		matches := []models.Match{finishedMatch("m"+string(rune('0'+md)), "PL", md, kickoffAt(offset, 15), 2, 1)}
		preds := []models.Prediction{
			storedPrediction("alice", "t1", matches[0].ID, 2, 1),
			storedPrediction("bob", "t1", matches[0].ID, 0, 2),
		}
		return day(tournament, md, matches, preds, parts, "")
	}

	// Matchdays 1 and 2 complete, 3 is a gap, 4 complete.
	ctx := detectorContext(tournament, []string{"alice", "bob"},
		winDay(1, 0), winDay(2, 7), winDay(4, 21))
	unlocks := DetectTrophies(ctx)

	// Two consecutive crowns unlock double_king exactly once.
	doubles := unlocksOf(unlocks, "alice", models.TrophyDoubleKing)
	require.Len(t, doubles, 1)
	assert.Equal(t, kickoffAt(7, 15), doubles[0].UnlockedAt)
}

func TestDetectTrophies_LanternAndDownwardSpiral(t *testing.T) {
	tournament := testTournament("t1")
	parts := []models.TournamentParticipant{
		participant("t1", "alice", detectorJoin),
		participant("t1", "bob", detectorJoin),
	}

	loseDay := func(md, offset int) *MatchdayContext {
		id := "m" + string(rune('0'+md))
		matches := []models.Match{finishedMatch(id, "PL", md, kickoffAt(offset, 15), 2, 1)}
		preds := []models.Prediction{
			storedPrediction("alice", "t1", id, 2, 1),
			storedPrediction("bob", "t1", id, 0, 2),
		}
		return day(tournament, md, matches, preds, parts, "")
	}

	ctx := detectorContext(tournament, []string{"alice", "bob"}, loseDay(1, 0), loseDay(2, 7))
	unlocks := DetectTrophies(ctx)

	assert.True(t, hasUnlock(unlocks, "bob", models.TrophyLantern))
	assert.True(t, hasUnlock(unlocks, "bob", models.TrophyDownwardSpiral))
	assert.False(t, hasUnlock(unlocks, "alice", models.TrophyLantern))
}

func TestDetectTrophies_OpportunistNostradamusCursed(t *testing.T) {
	tournament := testTournament("t1")
	parts := []models.TournamentParticipant{
		participant("t1", "alice", detectorJoin),
		participant("t1", "bob", detectorJoin),
	}

	matches := []models.Match{
		finishedMatch("m1", "PL", 1, kickoffAt(0, 13), 2, 1),
		finishedMatch("m2", "PL", 1, kickoffAt(0, 15), 1, 0),
	}
	preds := []models.Prediction{
		storedPrediction("alice", "t1", "m1", 2, 1), // exact
		storedPrediction("alice", "t1", "m2", 1, 0), // exact
		storedPrediction("bob", "t1", "m1", 0, 2),   // wrong
		storedPrediction("bob", "t1", "m2", 0, 1),   // wrong
	}

	ctx := detectorContext(tournament, []string{"alice", "bob"}, day(tournament, 1, matches, preds, parts, ""))
	unlocks := DetectTrophies(ctx)

	assert.True(t, hasUnlock(unlocks, "alice", models.TrophyNostradamus))
	assert.True(t, hasUnlock(unlocks, "alice", models.TrophyOpportunist))
	assert.False(t, hasUnlock(unlocks, "alice", models.TrophyCursed))

	assert.True(t, hasUnlock(unlocks, "bob", models.TrophyCursed))
	assert.False(t, hasUnlock(unlocks, "bob", models.TrophyOpportunist))
}

func TestDetectTrophies_BonusTrophies(t *testing.T) {
	tournament := testTournament("t1")
	parts := []models.TournamentParticipant{participant("t1", "alice", detectorJoin)}

	matches := []models.Match{finishedMatch("m1", "PL", 1, kickoffAt(0, 15), 2, 1)}
	preds := []models.Prediction{storedPrediction("alice", "t1", "m1", 2, 1)}

	ctx := detectorContext(tournament, []string{"alice"}, day(tournament, 1, matches, preds, parts, "m1"))
	unlocks := DetectTrophies(ctx)

	assert.True(t, hasUnlock(unlocks, "alice", models.TrophyBonusProfiteer))
	assert.True(t, hasUnlock(unlocks, "alice", models.TrophyBonusOptimizer))
}

func TestDetectTrophies_CareerTrophiesOnEarliestMatch(t *testing.T) {
	tournament := testTournament("t1")
	parts := []models.TournamentParticipant{participant("t1", "alice", detectorJoin)}

	matches := []models.Match{
		finishedMatch("m1", "PL", 1, kickoffAt(0, 13), 2, 1),
		finishedMatch("m2", "PL", 1, kickoffAt(0, 15), 1, 1),
	}
	preds := []models.Prediction{
		storedPrediction("alice", "t1", "m1", 1, 0), // correct result only
		storedPrediction("alice", "t1", "m2", 1, 1), // exact
	}

	ctx := detectorContext(tournament, []string{"alice"}, day(tournament, 1, matches, preds, parts, ""))
	unlocks := DetectTrophies(ctx)

	correct := unlocksOf(unlocks, "alice", models.TrophyCorrectResult)
	require.Len(t, correct, 1)
	assert.Equal(t, kickoffAt(0, 13), correct[0].UnlockedAt)

	exact := unlocksOf(unlocks, "alice", models.TrophyExactScore)
	require.Len(t, exact, 1)
	assert.Equal(t, kickoffAt(0, 15), exact[0].UnlockedAt)
}

func TestDetectTrophies_TournamentScoped(t *testing.T) {
	tournament := testTournament("t1")
	tournament.Status = models.TournamentStatusFinished
	parts := []models.TournamentParticipant{
		participant("t1", "alice", detectorJoin),
		participant("t1", "bob", detectorJoin),
	}

	mkDay := func(md, offset int, aliceHome int) *MatchdayContext {
		id := "m" + string(rune('0'+md))
		matches := []models.Match{finishedMatch(id, "PL", md, kickoffAt(offset, 15), 2, 1)}
		preds := []models.Prediction{
			storedPrediction("alice", "t1", id, aliceHome, 1),
			storedPrediction("bob", "t1", id, 0, 2),
		}
		return day(tournament, md, matches, preds, parts, "")
	}

	// Alice exact on both matchdays, bob wrong on both.
	ctx := detectorContext(tournament, []string{"alice", "bob"}, mkDay(1, 0, 2), mkDay(2, 7, 2))
	unlocks := DetectTrophies(ctx)

	assert.True(t, hasUnlock(unlocks, "alice", models.TrophyUltraDominator))
	assert.True(t, hasUnlock(unlocks, "alice", models.TrophyTournamentWinner))
	assert.True(t, hasUnlock(unlocks, "bob", models.TrophyPoulidor))
	assert.True(t, hasUnlock(unlocks, "bob", models.TrophyAbyssal))

	// Only 2 participants: legend needs more than 10.
	assert.False(t, hasUnlock(unlocks, "alice", models.TrophyLegend))

	winner := unlocksOf(unlocks, "alice", models.TrophyTournamentWinner)
	require.Len(t, winner, 1)
	assert.Equal(t, kickoffAt(7, 15), winner[0].UnlockedAt)
}

func TestDetectTrophies_TiedWinnersGetNothing(t *testing.T) {
	tournament := testTournament("t1")
	tournament.Status = models.TournamentStatusFinished
	parts := []models.TournamentParticipant{
		participant("t1", "alice", detectorJoin),
		participant("t1", "bob", detectorJoin),
		participant("t1", "carol", detectorJoin),
	}

	mkDay := func(md, offset int) *MatchdayContext {
		id := "m" + string(rune('0'+md))
		matches := []models.Match{finishedMatch(id, "PL", md, kickoffAt(offset, 15), 2, 1)}
		preds := []models.Prediction{
			storedPrediction("alice", "t1", id, 2, 1), // exact
			storedPrediction("bob", "t1", id, 2, 1),   // exact
			storedPrediction("carol", "t1", id, 0, 2), // wrong
		}
		return day(tournament, md, matches, preds, parts, "")
	}

	ctx := detectorContext(tournament, []string{"alice", "bob", "carol"}, mkDay(1, 0), mkDay(2, 7))
	unlocks := DetectTrophies(ctx)

	// [10, 10, 5] pattern: tied leaders are not sole winners.
	assert.False(t, hasUnlock(unlocks, "alice", models.TrophyTournamentWinner))
	assert.False(t, hasUnlock(unlocks, "bob", models.TrophyTournamentWinner))
	// Carol is strictly last and alone there.
	assert.True(t, hasUnlock(unlocks, "carol", models.TrophyAbyssal))
}

func TestDetectTrophies_NoTournamentTrophiesWhileActive(t *testing.T) {
	tournament := testTournament("t1")
	parts := []models.TournamentParticipant{
		participant("t1", "alice", detectorJoin),
		participant("t1", "bob", detectorJoin),
	}

	mkDay := func(md, offset int) *MatchdayContext {
		id := "m" + string(rune('0'+md))
		matches := []models.Match{finishedMatch(id, "PL", md, kickoffAt(offset, 15), 2, 1)}
		preds := []models.Prediction{
			storedPrediction("alice", "t1", id, 2, 1),
			storedPrediction("bob", "t1", id, 0, 2),
		}
		return day(tournament, md, matches, preds, parts, "")
	}

	ctx := detectorContext(tournament, []string{"alice", "bob"}, mkDay(1, 0), mkDay(2, 7))
	unlocks := DetectTrophies(ctx)

	assert.True(t, hasUnlock(unlocks, "alice", models.TrophyKingOfDay))
	assert.False(t, hasUnlock(unlocks, "alice", models.TrophyTournamentWinner))
	assert.False(t, hasUnlock(unlocks, "alice", models.TrophyUltraDominator))
}

func TestDetectTrophies_HeldTrophiesNotReAwarded(t *testing.T) {
	tournament := testTournament("t1")
	parts := []models.TournamentParticipant{
		participant("t1", "alice", detectorJoin),
		participant("t1", "bob", detectorJoin),
	}

	matches := []models.Match{finishedMatch("m1", "PL", 1, kickoffAt(0, 15), 2, 1)}
	preds := []models.Prediction{
		storedPrediction("alice", "t1", "m1", 2, 1),
		storedPrediction("bob", "t1", "m1", 0, 2),
	}

	ctx := detectorContext(tournament, []string{"alice", "bob"}, day(tournament, 1, matches, preds, parts, ""))
	ctx.Existing["alice"][models.TrophyKingOfDay] = true
	ctx.Existing["alice"][models.TrophyCorrectResult] = true
	ctx.Existing["alice"][models.TrophyExactScore] = true

	unlocks := DetectTrophies(ctx)
	assert.False(t, hasUnlock(unlocks, "alice", models.TrophyKingOfDay))
	assert.False(t, hasUnlock(unlocks, "alice", models.TrophyExactScore))
}
