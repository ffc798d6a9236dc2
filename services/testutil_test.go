package services

import (
	"testing"
	"time"

	"prediction-league-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.BonusMatch{},
		&models.Match{},
		&models.Prediction{},
		&models.TrophyUnlock{},
		&models.MirroredUser{},
		&models.AdminSetting{},
	))
	return db
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// finishedMatch builds a scoreable fixture on the given matchday.
func finishedMatch(id, competitionID string, matchday int, kickoff time.Time, home, away int) models.Match {
	return models.Match{
		ID:            id,
		CompetitionID: competitionID,
		Matchday:      matchday,
		KickoffAt:     kickoff,
		Status:        models.MatchStatusFinished,
		HomeTeamName:  "Home " + id,
		AwayTeamName:  "Away " + id,
		HomeScore:     intPtr(home),
		AwayScore:     intPtr(away),
	}
}

func scheduledMatch(id, competitionID string, matchday int, kickoff time.Time) models.Match {
	return models.Match{
		ID:            id,
		CompetitionID: competitionID,
		Matchday:      matchday,
		KickoffAt:     kickoff,
		Status:        models.MatchStatusScheduled,
		HomeTeamName:  "Home " + id,
		AwayTeamName:  "Away " + id,
	}
}

func storedPrediction(userID, tournamentID, matchID string, home, away int) models.Prediction {
	return models.Prediction{
		ID:                 uuid.NewString(),
		ExternalUserID:     userID,
		TournamentID:       tournamentID,
		MatchID:            matchID,
		PredictedHomeScore: home,
		PredictedAwayScore: away,
	}
}

func testTournament(id string) *models.Tournament {
	return &models.Tournament{
		ID:               id,
		Slug:             "test-" + id,
		Name:             "Test " + id,
		CompetitionID:    "PL",
		Status:           models.TournamentStatusActive,
		StartingMatchday: 1,
		EndingMatchday:   2,
		StartTime:        time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func participant(tournamentID, userID string, joinedAt time.Time) models.TournamentParticipant {
	return models.TournamentParticipant{
		ID:             uuid.NewString(),
		TournamentID:   tournamentID,
		ExternalUserID: userID,
		JoinedAt:       joinedAt,
	}
}
