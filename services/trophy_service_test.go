package services

import (
	"encoding/json"
	"testing"
	"time"

	"prediction-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwardIfAbsent_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTrophyService(db)
	unlockedAt := time.Date(2025, 8, 16, 17, 0, 0, 0, time.UTC)

	awarded, err := svc.AwardIfAbsent("alice", models.TrophyKingOfDay, unlockedAt, nil)
	require.NoError(t, err)
	assert.True(t, awarded)

	// The second award of the same (user, type) is a silent no-op.
	awarded, err = svc.AwardIfAbsent("alice", models.TrophyKingOfDay, unlockedAt.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.False(t, awarded)

	var unlocks []models.TrophyUnlock
	require.NoError(t, db.Find(&unlocks).Error)
	require.Len(t, unlocks, 1)
	assert.Equal(t, unlockedAt, unlocks[0].UnlockedAt.UTC())
	assert.True(t, unlocks[0].IsNew)
}

func TestAwardIfAbsent_DifferentTypesCoexist(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTrophyService(db)
	unlockedAt := time.Now().UTC()

	awarded, err := svc.AwardIfAbsent("alice", models.TrophyKingOfDay, unlockedAt, nil)
	require.NoError(t, err)
	assert.True(t, awarded)

	awarded, err = svc.AwardIfAbsent("alice", models.TrophyLantern, unlockedAt, nil)
	require.NoError(t, err)
	assert.True(t, awarded)

	awarded, err = svc.AwardIfAbsent("bob", models.TrophyKingOfDay, unlockedAt, nil)
	require.NoError(t, err)
	assert.True(t, awarded)
}

func TestAwardIfAbsent_StoresTriggerSnapshot(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTrophyService(db)

	trigger := &models.TriggerMatch{
		HomeTeamName:       "Arsenal",
		AwayTeamName:       "Chelsea",
		HomeScore:          2,
		AwayScore:          1,
		PredictedHomeScore: 2,
		PredictedAwayScore: 1,
		KickoffAt:          time.Date(2025, 8, 16, 15, 0, 0, 0, time.UTC),
	}
	_, err := svc.AwardIfAbsent("alice", models.TrophyExactScore, trigger.KickoffAt, trigger)
	require.NoError(t, err)

	var unlock models.TrophyUnlock
	require.NoError(t, db.First(&unlock, "external_user_id = ?", "alice").Error)

	var stored models.TriggerMatch
	require.NoError(t, json.Unmarshal(unlock.TriggerMatch, &stored))
	assert.Equal(t, "Arsenal", stored.HomeTeamName)
	assert.Equal(t, 2, stored.PredictedHomeScore)
}

func TestAwardAll_CountsOnlyNew(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTrophyService(db)
	unlockedAt := time.Now().UTC()

	_, err := svc.AwardIfAbsent("alice", models.TrophyKingOfDay, unlockedAt, nil)
	require.NoError(t, err)

	newCount, err := svc.AwardAll([]Unlock{
		{ExternalUserID: "alice", TrophyType: models.TrophyKingOfDay, UnlockedAt: unlockedAt},
		{ExternalUserID: "alice", TrophyType: models.TrophyOpportunist, UnlockedAt: unlockedAt},
		{ExternalUserID: "bob", TrophyType: models.TrophyKingOfDay, UnlockedAt: unlockedAt},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, newCount)
}

func TestExistingTrophies(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTrophyService(db)
	unlockedAt := time.Now().UTC()

	_, err := svc.AwardIfAbsent("alice", models.TrophyKingOfDay, unlockedAt, nil)
	require.NoError(t, err)
	_, err = svc.AwardIfAbsent("alice", models.TrophyCursed, unlockedAt, nil)
	require.NoError(t, err)

	existing, err := svc.ExistingTrophies([]string{"alice", "bob"})
	require.NoError(t, err)
	assert.True(t, existing["alice"][models.TrophyKingOfDay])
	assert.True(t, existing["alice"][models.TrophyCursed])
	assert.Empty(t, existing["bob"])
}
