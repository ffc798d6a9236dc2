package services

import (
	"testing"
	"time"

	"prediction-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBonusFixtures(t *testing.T, svc *BonusService, tournament *models.Tournament, matchday, count int) {
	t.Helper()
	base := time.Date(2025, 8, 16, 13, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		m := scheduledMatch(
			"md"+string(rune('0'+matchday))+"-m"+string(rune('0'+i)),
			tournament.CompetitionID, matchday, base.Add(time.Duration(i*2)*time.Hour),
		)
		require.NoError(t, svc.DB.Create(&m).Error)
	}
}

func TestEnsureBonusMatch_PersistsFirstSelection(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBonusService(db)

	tournament := testTournament("t1")
	tournament.BonusMatchEnabled = true
	require.NoError(t, db.Create(tournament).Error)
	seedBonusFixtures(t, svc, tournament, 1, 5)

	first, err := svc.EnsureBonusMatch(tournament, 1)
	require.NoError(t, err)

	again, err := svc.EnsureBonusMatch(tournament, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.MatchID, again.MatchID)

	var count int64
	db.Model(&models.BonusMatch{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEnsureBonusMatch_SelectionSurvivesNewFixtures(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBonusService(db)

	tournament := testTournament("t1")
	tournament.BonusMatchEnabled = true
	require.NoError(t, db.Create(tournament).Error)
	seedBonusFixtures(t, svc, tournament, 1, 3)

	first, err := svc.EnsureBonusMatch(tournament, 1)
	require.NoError(t, err)

	// A rescheduled fixture landing on the matchday must not move the pin.
	late := scheduledMatch("late-arrival", tournament.CompetitionID, 1, time.Date(2025, 8, 17, 20, 0, 0, 0, time.UTC))
	require.NoError(t, db.Create(&late).Error)

	again, err := svc.EnsureBonusMatch(tournament, 1)
	require.NoError(t, err)
	assert.Equal(t, first.MatchID, again.MatchID)
}

func TestEnsureBonusMatch_NoFixtures(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBonusService(db)

	tournament := testTournament("t1")
	tournament.BonusMatchEnabled = true
	require.NoError(t, db.Create(tournament).Error)

	_, err := svc.EnsureBonusMatch(tournament, 1)
	assert.ErrorIs(t, err, ErrNoCandidateMatches)
}

func TestEnsureAllBonusMatches_SkipsEmptyMatchdays(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBonusService(db)

	tournament := testTournament("t1")
	tournament.BonusMatchEnabled = true
	require.NoError(t, db.Create(tournament).Error)
	seedBonusFixtures(t, svc, tournament, 1, 4)
	// Matchday 2 has no fixtures yet.

	selections, err := svc.EnsureAllBonusMatches(tournament)
	require.NoError(t, err)
	require.Len(t, selections, 1)
	assert.Equal(t, 1, selections[0].Matchday)
}

func TestEnsureAllBonusMatches_DisabledTournament(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBonusService(db)

	tournament := testTournament("t1")
	require.NoError(t, db.Create(tournament).Error)
	seedBonusFixtures(t, svc, tournament, 1, 4)

	selections, err := svc.EnsureAllBonusMatches(tournament)
	require.NoError(t, err)
	assert.Empty(t, selections)
}
