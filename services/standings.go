package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"prediction-league-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Returned instead of partial rankings. "Not ready" means retry later, never
// "no result". Partial standings must not feed trophy detection.
var (
	ErrMatchdayNotFinished   = errors.New("matchday not fully finished")
	ErrTournamentNotFinished = errors.New("tournament range not fully finished")
)

// Knockout stages are graded on the 90-minute score.
var knockoutStages = map[string]bool{
	"PLAYOFFS":       true,
	"LAST_16":        true,
	"QUARTER_FINALS": true,
	"SEMI_FINALS":    true,
	"FINAL":          true,
}

// UserMatchdayStats aggregates one participant's graded predictions across
// one matchday.
type UserMatchdayStats struct {
	ExternalUserID string
	Points         int
	ExactScores    int
	CorrectResults int
	MatchesPlayed  int
	BonusCorrect   bool
	BonusExact     bool
}

// MatchdayMeta carries the tie information consumers need for trophy
// tie-breaking, plus the completion timestamp used as unlock time.
type MatchdayMeta struct {
	MaxPoints   int
	MinPoints   int
	UsersAtMax  int
	UsersAtMin  int
	CompletedAt time.Time // latest kickoff of the matchday's fixtures
}

// MatchdayComplete reports whether every fixture of the matchday is finished
// with scores. An empty matchday is not complete.
func MatchdayComplete(matches []models.Match) bool {
	if len(matches) == 0 {
		return false
	}
	for i := range matches {
		if !matches[i].IsFinished() {
			return false
		}
	}
	return true
}

// LatestKickoff returns the most recent kickoff among the given fixtures.
func LatestKickoff(matches []models.Match) time.Time {
	var latest time.Time
	for i := range matches {
		if matches[i].KickoffAt.After(latest) {
			latest = matches[i].KickoffAt
		}
	}
	return latest
}

// ComputeMatchdayStats grades every participant across one matchday's
// fixtures. Predictions resolve through ResolvePredictions; each graded
// prediction goes through CalculatePoints (or its knockout variant), the
// single source of truth for points.
//
// Defaults are only synthesized for fixtures a participant could have
// predicted (kickoff after they joined). A participant with no resolvable
// prediction at all gets no entry: still pending for them, not a zero.
func ComputeMatchdayStats(t *models.Tournament, matches []models.Match, predictions []models.Prediction, participants []models.TournamentParticipant, cfg ScoringConfig, bonusMatchID string, now time.Time) map[string]*UserMatchdayStats {
	matchByID := make(map[string]*models.Match, len(matches))
	for i := range matches {
		matchByID[matches[i].ID] = &matches[i]
	}

	stats := make(map[string]*UserMatchdayStats, len(participants))
	for _, participant := range participants {
		userID := participant.ExternalUserID
		predicted := make(map[string]bool)
		for i := range predictions {
			if predictions[i].ExternalUserID == userID {
				predicted[predictions[i].MatchID] = true
			}
		}
		eligible := make([]models.Match, 0, len(matches))
		for _, m := range matches {
			if predicted[m.ID] || !m.KickoffAt.Before(participant.JoinedAt) {
				eligible = append(eligible, m)
			}
		}

		resolved := ResolvePredictions(eligible, predictions, userID, now)
		if len(resolved) == 0 {
			continue
		}
		s := &UserMatchdayStats{ExternalUserID: userID}
		stats[userID] = s

		for _, ep := range resolved {
			m := matchByID[ep.MatchID]
			if m == nil || !m.IsFinished() {
				continue
			}

			isBonus := bonusMatchID != "" && m.ID == bonusMatchID
			realHome, realAway := *m.HomeScore, *m.AwayScore

			var result ScoreBreakdown
			if knockoutStages[m.Stage] {
				home90, away90 := m.Score90()
				winnerSide := ""
				if m.WinnerSide != nil {
					winnerSide = *m.WinnerSide
				}
				result = CalculateKnockoutPoints(
					ep.PredictedHomeScore, ep.PredictedAwayScore,
					home90, away90,
					ep.PredictedQualifier, winnerSide,
					cfg, isBonus, ep.IsDefault, t.QualifierBonusEnabled,
				)
			} else {
				result = CalculatePoints(
					ep.PredictedHomeScore, ep.PredictedAwayScore,
					realHome, realAway,
					cfg, isBonus, ep.IsDefault,
				)
			}

			s.Points += result.Points
			s.MatchesPlayed++
			if result.IsExactScore {
				s.ExactScores++
				if isBonus {
					s.BonusExact = true
				}
			}
			if result.IsCorrectResult {
				s.CorrectResults++
				if isBonus {
					s.BonusCorrect = true
				}
			}
		}
	}
	return stats
}

// ComputeMatchdayMeta derives the tie metadata from graded stats.
func ComputeMatchdayMeta(stats map[string]*UserMatchdayStats, matches []models.Match) MatchdayMeta {
	meta := MatchdayMeta{CompletedAt: LatestKickoff(matches)}
	first := true
	for _, s := range stats {
		if first {
			meta.MaxPoints, meta.MinPoints = s.Points, s.Points
			first = false
			continue
		}
		if s.Points > meta.MaxPoints {
			meta.MaxPoints = s.Points
		}
		if s.Points < meta.MinPoints {
			meta.MinPoints = s.Points
		}
	}
	for _, s := range stats {
		if s.Points == meta.MaxPoints {
			meta.UsersAtMax++
		}
		if s.Points == meta.MinPoints {
			meta.UsersAtMin++
		}
	}
	return meta
}

// RankStandings sorts rows by points, then exact scores, then correct
// results, all descending. Perfect ties share a rank. When a previous
// standing is supplied, each row also carries its rank movement.
func RankStandings(rows []models.PlayerStanding, previous []models.PlayerStanding) []models.PlayerStanding {
	ranked := make([]models.PlayerStanding, len(rows))
	copy(ranked, rows)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalPoints != ranked[j].TotalPoints {
			return ranked[i].TotalPoints > ranked[j].TotalPoints
		}
		if ranked[i].ExactScores != ranked[j].ExactScores {
			return ranked[i].ExactScores > ranked[j].ExactScores
		}
		return ranked[i].CorrectResults > ranked[j].CorrectResults
	})

	prevRanks := make(map[string]int, len(previous))
	for _, p := range previous {
		prevRanks[p.ExternalUserID] = p.Rank
	}

	currentRank := 1
	for i := range ranked {
		if i > 0 {
			prev := ranked[i-1]
			tied := ranked[i].TotalPoints == prev.TotalPoints &&
				ranked[i].ExactScores == prev.ExactScores &&
				ranked[i].CorrectResults == prev.CorrectResults
			if !tied {
				currentRank = i + 1
			}
		}
		ranked[i].Rank = currentRank

		if prevRank, ok := prevRanks[ranked[i].ExternalUserID]; ok {
			ranked[i].PreviousRank = prevRank
			switch {
			case currentRank < prevRank:
				ranked[i].RankChange = "up"
			case currentRank > prevRank:
				ranked[i].RankChange = "down"
			default:
				ranked[i].RankChange = "same"
			}
		}
	}
	return ranked
}

type StandingsService struct {
	DB *gorm.DB
}

func NewStandingsService(db *gorm.DB) *StandingsService {
	return &StandingsService{DB: db}
}

// LoadScoringConfig builds the immutable config for one tournament:
// tournament overrides first, then admin settings, then platform defaults.
func (s *StandingsService) LoadScoringConfig(t *models.Tournament) ScoringConfig {
	cfg := DefaultScoringConfig

	var settings []models.AdminSetting
	if err := s.DB.Where("setting_key IN ?", []string{
		models.SettingPointsExactScore,
		models.SettingPointsCorrectResult,
		models.SettingPointsIncorrectResult,
		models.SettingPointsDefaultPredictionDraw,
	}).Find(&settings).Error; err != nil {
		log.Printf("[STANDINGS] failed to load admin settings, using defaults: %v", err)
	}
	for _, setting := range settings {
		v, err := strconv.Atoi(setting.Value)
		if err != nil || v < 0 {
			continue
		}
		switch setting.Key {
		case models.SettingPointsExactScore:
			cfg.ExactScore = v
		case models.SettingPointsCorrectResult:
			cfg.CorrectResult = v
		case models.SettingPointsIncorrectResult:
			cfg.IncorrectResult = v
		case models.SettingPointsDefaultPredictionDraw:
			cfg.DefaultPredictionDraw = v
		}
	}

	if t.ScoringExactScore > 0 {
		cfg.ExactScore = t.ScoringExactScore
	}
	if t.ScoringCorrectResult > 0 {
		cfg.CorrectResult = t.ScoringCorrectResult
	}
	if t.ScoringIncorrectResult > 0 {
		cfg.IncorrectResult = t.ScoringIncorrectResult
	}
	if t.ScoringDefaultPredictionDraw > 0 {
		cfg.DefaultPredictionDraw = t.ScoringDefaultPredictionDraw
	}
	return cfg
}

// MatchdayData is everything needed to grade one matchday.
type MatchdayData struct {
	Matches      []models.Match
	Predictions  []models.Prediction
	Participants []models.TournamentParticipant
	BonusMatchID string
}

// LoadMatchdayData fetches the matchday's fixtures, stored predictions,
// participant list and bonus selection in one pass.
func (s *StandingsService) LoadMatchdayData(t *models.Tournament, matchday int) (*MatchdayData, error) {
	data := &MatchdayData{}

	if err := s.DB.Where("competition_id = ? AND matchday = ?", t.CompetitionID, matchday).
		Order("kickoff_at ASC").
		Find(&data.Matches).Error; err != nil {
		return nil, fmt.Errorf("load matches for matchday %d: %w", matchday, err)
	}

	matchIDs := make([]string, 0, len(data.Matches))
	for _, m := range data.Matches {
		matchIDs = append(matchIDs, m.ID)
	}
	if len(matchIDs) > 0 {
		if err := s.DB.Where("tournament_id = ? AND match_id IN ?", t.ID, matchIDs).
			Find(&data.Predictions).Error; err != nil {
			return nil, fmt.Errorf("load predictions for matchday %d: %w", matchday, err)
		}
	}

	if err := s.DB.Where("tournament_id = ?", t.ID).Find(&data.Participants).Error; err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}

	if t.BonusMatchEnabled {
		var bonus models.BonusMatch
		err := s.DB.Where("tournament_id = ? AND matchday = ?", t.ID, matchday).First(&bonus).Error
		if err == nil {
			data.BonusMatchID = bonus.MatchID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load bonus match for matchday %d: %w", matchday, err)
		}
	}

	return data, nil
}

// MatchdayStandings ranks every participant over one fully finished
// matchday. Returns ErrMatchdayNotFinished while any fixture is pending.
func (s *StandingsService) MatchdayStandings(t *models.Tournament, matchday int) ([]models.PlayerStanding, error) {
	data, err := s.LoadMatchdayData(t, matchday)
	if err != nil {
		return nil, err
	}
	if !MatchdayComplete(data.Matches) {
		return nil, ErrMatchdayNotFinished
	}

	cfg := s.LoadScoringConfig(t)
	stats := ComputeMatchdayStats(t, data.Matches, data.Predictions, data.Participants, cfg, data.BonusMatchID, time.Now().UTC())

	var previous []models.PlayerStanding
	if matchday > t.StartingMatchday {
		if prev, err := s.MatchdayStandings(t, matchday-1); err == nil {
			previous = prev
		}
	}

	rows := s.statsToRows(stats)
	return RankStandings(rows, previous), nil
}

// TournamentStandings sums every matchday of the tournament's range.
// Returns ErrTournamentNotFinished while any matchday is incomplete.
func (s *StandingsService) TournamentStandings(t *models.Tournament) ([]models.PlayerStanding, error) {
	cfg := s.LoadScoringConfig(t)
	totals := make(map[string]*UserMatchdayStats)

	for matchday := t.StartingMatchday; matchday <= t.EndingMatchday; matchday++ {
		data, err := s.LoadMatchdayData(t, matchday)
		if err != nil {
			return nil, err
		}
		if !MatchdayComplete(data.Matches) {
			return nil, ErrTournamentNotFinished
		}

		stats := ComputeMatchdayStats(t, data.Matches, data.Predictions, data.Participants, cfg, data.BonusMatchID, time.Now().UTC())
		for userID, st := range stats {
			total, ok := totals[userID]
			if !ok {
				total = &UserMatchdayStats{ExternalUserID: userID}
				totals[userID] = total
			}
			total.Points += st.Points
			total.ExactScores += st.ExactScores
			total.CorrectResults += st.CorrectResults
			total.MatchesPlayed += st.MatchesPlayed
		}
	}

	return RankStandings(s.statsToRows(totals), nil), nil
}

// statsToRows converts graded stats into standing rows with display names
// joined from the mirrored profile table.
func (s *StandingsService) statsToRows(stats map[string]*UserMatchdayStats) []models.PlayerStanding {
	userIDs := make([]string, 0, len(stats))
	for userID := range stats {
		userIDs = append(userIDs, userID)
	}

	users := make(map[string]models.MirroredUser, len(userIDs))
	if len(userIDs) > 0 {
		var mirrored []models.MirroredUser
		if err := s.DB.Where("external_user_id IN ?", userIDs).Find(&mirrored).Error; err != nil {
			log.Printf("[STANDINGS] failed to load mirrored users: %v", err)
		}
		for _, u := range mirrored {
			users[u.ExternalUserID] = u
		}
	}

	rows := make([]models.PlayerStanding, 0, len(stats))
	for userID, st := range stats {
		row := models.PlayerStanding{
			ExternalUserID: userID,
			TotalPoints:    st.Points,
			ExactScores:    st.ExactScores,
			CorrectResults: st.CorrectResults,
			MatchesPlayed:  st.MatchesPlayed,
		}
		if u, ok := users[userID]; ok {
			row.Username = u.Username
			row.Avatar = u.Avatar
		}
		rows = append(rows, row)
	}
	return rows
}

// GetStandings serves GET /tournaments/:id/standings[?matchday=N].
// Responds 409 while the requested window is not fully finished.
func (s *StandingsService) GetStandings(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}

	var (
		standings []models.PlayerStanding
		err       error
	)
	if matchdayStr := c.Query("matchday"); matchdayStr != "" {
		matchday, convErr := strconv.Atoi(matchdayStr)
		if convErr != nil || matchday < tournament.StartingMatchday || matchday > tournament.EndingMatchday {
			return c.Status(400).JSON(fiber.Map{"error": "matchday out of tournament range"})
		}
		standings, err = s.MatchdayStandings(&tournament, matchday)
	} else {
		standings, err = s.TournamentStandings(&tournament)
	}

	if errors.Is(err, ErrMatchdayNotFinished) || errors.Is(err, ErrTournamentNotFinished) {
		return c.Status(409).JSON(fiber.Map{"error": "standings not ready", "retry": true})
	}
	if err != nil {
		log.Printf("[STANDINGS] compute failed for tournament %s: %v", tournamentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to compute standings"})
	}

	return c.JSON(fiber.Map{"standings": standings})
}
