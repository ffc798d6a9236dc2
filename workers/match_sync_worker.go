package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"prediction-league-system/models"
	"prediction-league-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// providerMatch matches one fixture in the football-data API response.
type providerMatch struct {
	ID       int64     `json:"id"`
	UTCDate  time.Time `json:"utcDate"`
	Status   string    `json:"status"`
	Matchday int       `json:"matchday"`
	Stage    string    `json:"stage"`
	HomeTeam struct {
		Name  string  `json:"name"`
		Crest *string `json:"crest,omitempty"`
	} `json:"homeTeam"`
	AwayTeam struct {
		Name  string  `json:"name"`
		Crest *string `json:"crest,omitempty"`
	} `json:"awayTeam"`
	Score struct {
		Winner   *string `json:"winner,omitempty"`
		Duration string  `json:"duration"`
		FullTime struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"fullTime"`
		RegularTime struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"regularTime"`
	} `json:"score"`
}

type providerMatchesResponse struct {
	Matches []providerMatch `json:"matches"`
}

// MatchSyncWorker mirrors provider fixtures into the local matches table so
// scoring never needs a live provider call.
type MatchSyncWorker struct {
	db         *gorm.DB
	interval   time.Duration
	baseURL    string // e.g. "https://api.football-data.org"
	authToken  string
	httpClient *http.Client
}

func NewMatchSyncWorker(db *gorm.DB, providerBaseURL, providerToken string) *MatchSyncWorker {
	return &MatchSyncWorker{
		db:         db,
		interval:   5 * time.Minute,
		baseURL:    providerBaseURL,
		authToken:  providerToken,
		httpClient: utils.HTTPClient,
	}
}

func (w *MatchSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Match Sync Worker (football-data → matches)…")
	go w.run(ctx)
}

func (w *MatchSyncWorker) run(ctx context.Context) {
	if err := w.syncAll(ctx); err != nil {
		log.Printf("⚠️ Initial match sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncAll(ctx); err != nil {
				log.Printf("❌ Match sync failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Match Sync Worker stopped")
			return
		}
	}
}

// syncAll refreshes fixtures for every competition referenced by a tournament
// that is not over yet. Finished tournaments keep their already-mirrored rows.
func (w *MatchSyncWorker) syncAll(ctx context.Context) error {
	var competitionIDs []string
	err := w.db.Model(&models.Tournament{}).
		Where("status IN ?", []string{
			models.TournamentStatusPending,
			models.TournamentStatusWarmup,
			models.TournamentStatusActive,
		}).
		Distinct().
		Pluck("competition_id", &competitionIDs).Error
	if err != nil {
		return fmt.Errorf("failed to list competitions to sync: %w", err)
	}
	if len(competitionIDs) == 0 {
		return nil
	}

	var firstErr error
	for _, competitionID := range competitionIDs {
		if err := w.syncCompetition(ctx, competitionID); err != nil {
			log.Printf("[MATCH-SYNC] ❌ Competition %s sync failed: %v", competitionID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (w *MatchSyncWorker) syncCompetition(ctx context.Context, competitionID string) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid provider base URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath("v4", "competitions", competitionID, "matches")
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Auth-Token", w.authToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to provider failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("provider non-200 response for %s: %d — %s", competitionID, resp.StatusCode, string(body))
	}

	var response providerMatchesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}

	if len(response.Matches) == 0 {
		log.Printf("[MATCH-SYNC] ✅ No fixtures returned for competition %s", competitionID)
		return nil
	}

	var upsertCount, errorCount int
	for _, remote := range response.Matches {
		local := mapProviderMatch(competitionID, remote)
		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"matchday", "stage", "kickoff_at", "status",
				"home_team_name", "away_team_name", "home_team_crest", "away_team_crest",
				"home_score", "away_score", "home_score90", "away_score90", "winner_side",
				"updated_at",
			}),
		}).Create(&local).Error; err != nil {
			errorCount++
			log.Printf("[MATCH-SYNC] ⚠️ Failed to upsert match %s (%s vs %s): %v",
				local.ID, local.HomeTeamName, local.AwayTeamName, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[MATCH-SYNC] ✅ Competition %s: %d fixtures (%d upserted, %d errors)",
		competitionID, len(response.Matches), upsertCount, errorCount)
	return nil
}

// mapProviderMatch converts the provider payload to a local row. Predictions on
// knockout fixtures are graded on the 90-minute score, so extra-time results
// keep regularTime alongside fullTime.
func mapProviderMatch(competitionID string, remote providerMatch) models.Match {
	local := models.Match{
		ID:            strconv.FormatInt(remote.ID, 10),
		CompetitionID: competitionID,
		Matchday:      remote.Matchday,
		Stage:         remote.Stage,
		KickoffAt:     remote.UTCDate.UTC(),
		Status:        mapProviderStatus(remote.Status),
		HomeTeamName:  remote.HomeTeam.Name,
		AwayTeamName:  remote.AwayTeam.Name,
		HomeTeamCrest: remote.HomeTeam.Crest,
		AwayTeamCrest: remote.AwayTeam.Crest,
	}

	if local.Status == models.MatchStatusFinished || local.Status == models.MatchStatusInPlay {
		local.HomeScore = remote.Score.FullTime.Home
		local.AwayScore = remote.Score.FullTime.Away
	}
	if remote.Score.Duration != "" && remote.Score.Duration != "REGULAR" {
		local.HomeScore90 = remote.Score.RegularTime.Home
		local.AwayScore90 = remote.Score.RegularTime.Away
	}
	if remote.Score.Winner != nil {
		switch *remote.Score.Winner {
		case "HOME_TEAM":
			side := "home"
			local.WinnerSide = &side
		case "AWAY_TEAM":
			side := "away"
			local.WinnerSide = &side
		}
	}
	return local
}

func mapProviderStatus(status string) string {
	switch strings.ToUpper(status) {
	case "SCHEDULED", "TIMED":
		return models.MatchStatusScheduled
	case "IN_PLAY", "PAUSED", "LIVE":
		return models.MatchStatusInPlay
	case "FINISHED":
		return models.MatchStatusFinished
	default:
		return models.MatchStatusOther
	}
}
