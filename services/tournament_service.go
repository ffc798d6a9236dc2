package services

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"prediction-league-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TournamentService struct {
	DB *gorm.DB
}

func NewTournamentService(db *gorm.DB) *TournamentService {
	return &TournamentService{DB: db}
}

var validStatusTransitions = map[string][]string{
	models.TournamentStatusDraft:   {models.TournamentStatusPending},
	models.TournamentStatusPending: {models.TournamentStatusWarmup, models.TournamentStatusActive},
	models.TournamentStatusWarmup:  {models.TournamentStatusActive},
	models.TournamentStatusActive:  {models.TournamentStatusFinished},
}

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	// --- Parse form values ---
	name := c.FormValue("name")
	competitionID := c.FormValue("competition_id")
	startingStr := c.FormValue("starting_matchday")
	endingStr := c.FormValue("ending_matchday")
	startTimeStr := c.FormValue("start_time")
	bonusMatchStr := c.FormValue("bonus_match_enabled")
	qualifierBonusStr := c.FormValue("qualifier_bonus_enabled")

	creatorID, _ := c.Locals("user_id").(string)

	// --- Validation ---
	if name == "" || competitionID == "" || startingStr == "" || endingStr == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name, competition_id, starting_matchday and ending_matchday are required"})
	}

	starting, err := strconv.Atoi(startingStr)
	if err != nil || starting < 1 {
		return c.Status(400).JSON(fiber.Map{"error": "starting_matchday must be a positive integer"})
	}
	ending, err := strconv.Atoi(endingStr)
	if err != nil || ending < starting {
		return c.Status(400).JSON(fiber.Map{"error": "ending_matchday must be >= starting_matchday"})
	}

	startTime := time.Now().UTC()
	if startTimeStr != "" {
		startTime, err = time.Parse(time.RFC3339, startTimeStr)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid start_time (use RFC3339)"})
		}
	}

	// Scoring overrides, all optional non-negative integers.
	parseScore := func(field string) (int, error) {
		v := c.FormValue(field)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, errors.New(field + " must be a non-negative integer")
		}
		return n, nil
	}
	exactScore, err := parseScore("scoring_exact_score")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	correctResult, err := parseScore("scoring_correct_result")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	incorrectResult, err := parseScore("scoring_incorrect_result")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	defaultDraw, err := parseScore("scoring_default_prediction_draw")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	tournament := models.Tournament{
		ID:                           uuid.NewString(),
		Slug:                         slug.Make(name) + "-" + uuid.NewString()[:8],
		Name:                         name,
		CompetitionID:                competitionID,
		CreatorID:                    creatorID,
		Status:                       models.TournamentStatusDraft,
		StartingMatchday:             starting,
		EndingMatchday:               ending,
		ScoringExactScore:            exactScore,
		ScoringCorrectResult:         correctResult,
		ScoringIncorrectResult:       incorrectResult,
		ScoringDefaultPredictionDraw: defaultDraw,
		BonusMatchEnabled:            strings.ToLower(bonusMatchStr) == "true",
		QualifierBonusEnabled:        strings.ToLower(qualifierBonusStr) == "true",
		StartTime:                    startTime,
	}

	if err := s.DB.Create(&tournament).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create tournament"})
	}

	return c.Status(201).JSON(tournament)
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var tournament models.Tournament
	query := s.DB.Where("id = ?", id)
	// Allow lookup by slug as well; external links use the slug.
	if _, err := uuid.Parse(id); err != nil {
		query = s.DB.Where("slug = ?", id)
	}
	if err := query.First(&tournament).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}

	s.DB.Model(&models.TournamentParticipant{}).
		Where("tournament_id = ?", tournament.ID).
		Count(&tournament.ParticipantsCount)

	return c.JSON(tournament)
}

func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	query := s.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&tournaments).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to list tournaments"})
	}
	return c.JSON(fiber.Map{"tournaments": tournaments})
}

func (s *TournamentService) UpdateTournamentStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return c.Status(400).JSON(fiber.Map{"error": "status is required"})
	}

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}

	allowed := false
	for _, next := range validStatusTransitions[tournament.Status] {
		if next == body.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		return c.Status(409).JSON(fiber.Map{
			"error": "invalid status transition from " + tournament.Status + " to " + body.Status,
		})
	}

	updates := map[string]interface{}{"status": body.Status}
	if body.Status == models.TournamentStatusFinished {
		now := time.Now().UTC()
		updates["end_time"] = &now
	}
	if err := s.DB.Model(&tournament).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to update status"})
	}

	return c.JSON(tournament)
}

func (s *TournamentService) JoinTournament(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}
	if tournament.Status == models.TournamentStatusFinished {
		return c.Status(409).JSON(fiber.Map{"error": "tournament already finished"})
	}

	participant := models.TournamentParticipant{
		ID:             uuid.NewString(),
		TournamentID:   tournament.ID,
		ExternalUserID: userID,
	}
	err := s.DB.Create(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(409).JSON(fiber.Map{"error": "already joined"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to join tournament"})
	}

	return c.Status(201).JSON(participant)
}

// SubmitPrediction upserts the caller's score for a match. Predictions lock
// at kickoff and never carry is_default; defaults only exist at read time.
func (s *TournamentService) SubmitPrediction(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	matchID := c.Params("match_id")
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	var body struct {
		HomeScore          *int    `json:"home_score"`
		AwayScore          *int    `json:"away_score"`
		PredictedQualifier *string `json:"predicted_qualifier,omitempty"`
	}
	if err := c.BodyParser(&body); err != nil || body.HomeScore == nil || body.AwayScore == nil {
		return c.Status(400).JSON(fiber.Map{"error": "home_score and away_score are required"})
	}
	if *body.HomeScore < 0 || *body.AwayScore < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "scores must be non-negative"})
	}
	if body.PredictedQualifier != nil && *body.PredictedQualifier != "home" && *body.PredictedQualifier != "away" {
		return c.Status(400).JSON(fiber.Map{"error": "predicted_qualifier must be 'home' or 'away'"})
	}

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}

	var isParticipant int64
	s.DB.Model(&models.TournamentParticipant{}).
		Where("tournament_id = ? AND external_user_id = ?", tournamentID, userID).
		Count(&isParticipant)
	if isParticipant == 0 {
		return c.Status(403).JSON(fiber.Map{"error": "not a participant of this tournament"})
	}

	var match models.Match
	if err := s.DB.First(&match, "id = ? AND competition_id = ?", matchID, tournament.CompetitionID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "match not found"})
	}
	if match.Matchday < tournament.StartingMatchday || match.Matchday > tournament.EndingMatchday {
		return c.Status(400).JSON(fiber.Map{"error": "match is outside the tournament's matchday range"})
	}
	if !time.Now().UTC().Before(match.KickoffAt) {
		return c.Status(409).JSON(fiber.Map{"error": "predictions are locked at kickoff"})
	}
	if body.PredictedQualifier != nil && !tournament.QualifierBonusEnabled {
		body.PredictedQualifier = nil
	}

	prediction := models.Prediction{
		ID:                 uuid.NewString(),
		ExternalUserID:     userID,
		TournamentID:       tournamentID,
		MatchID:            matchID,
		PredictedHomeScore: *body.HomeScore,
		PredictedAwayScore: *body.AwayScore,
		PredictedQualifier: body.PredictedQualifier,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "external_user_id"}, {Name: "tournament_id"}, {Name: "match_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"predicted_home_score", "predicted_away_score", "predicted_qualifier",
		}),
	}).Create(&prediction).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to save prediction"})
	}

	return c.JSON(prediction)
}

// GetMyPredictions lists the caller's stored predictions for a tournament.
func (s *TournamentService) GetMyPredictions(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	var predictions []models.Prediction
	if err := s.DB.
		Where("tournament_id = ? AND external_user_id = ?", tournamentID, userID).
		Find(&predictions).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to list predictions"})
	}
	return c.JSON(fiber.Map{"predictions": predictions})
}
