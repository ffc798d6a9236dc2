package services

import (
	"errors"
	"log"

	"prediction-league-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BonusService struct {
	DB *gorm.DB
}

func NewBonusService(db *gorm.DB) *BonusService {
	return &BonusService{DB: db}
}

// EnsureBonusMatch returns the persisted bonus selection for the matchday,
// creating it on first use. The stored row is immutable: even if fixtures
// later move in or out of the matchday, the selection stays, keeping past
// scoring stable. Concurrent first calls race harmlessly on the unique key.
func (s *BonusService) EnsureBonusMatch(t *models.Tournament, matchday int) (*models.BonusMatch, error) {
	var existing models.BonusMatch
	err := s.DB.Where("tournament_id = ? AND matchday = ?", t.ID, matchday).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var matches []models.Match
	if err := s.DB.Where("competition_id = ? AND matchday = ?", t.CompetitionID, matchday).
		Order("kickoff_at ASC, id ASC").
		Find(&matches).Error; err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, m.ID)
	}

	selected, err := SelectBonusMatch(t.ID, matchday, candidates)
	if err != nil {
		return nil, err
	}

	bonus := models.BonusMatch{
		ID:           uuid.NewString(),
		TournamentID: t.ID,
		Matchday:     matchday,
		MatchID:      selected,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tournament_id"}, {Name: "matchday"}},
		DoNothing: true,
	}).Create(&bonus).Error; err != nil {
		return nil, err
	}

	// Re-read so a lost insert race still returns the winning row.
	if err := s.DB.Where("tournament_id = ? AND matchday = ?", t.ID, matchday).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// EnsureAllBonusMatches lazily fills the tournament's whole matchday range.
// Matchdays with no fixtures yet are skipped and picked up on a later run.
func (s *BonusService) EnsureAllBonusMatches(t *models.Tournament) ([]models.BonusMatch, error) {
	if !t.BonusMatchEnabled {
		return nil, nil
	}

	var result []models.BonusMatch
	for matchday := t.StartingMatchday; matchday <= t.EndingMatchday; matchday++ {
		bonus, err := s.EnsureBonusMatch(t, matchday)
		if errors.Is(err, ErrNoCandidateMatches) {
			log.Printf("[BONUS] no fixtures yet for tournament %s matchday %d, skipping", t.ID, matchday)
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, *bonus)
	}
	return result, nil
}

// GetTournamentBonusMatches serves GET /tournaments/:id/bonus-matches.
func (s *BonusService) GetTournamentBonusMatches(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}

	if !tournament.BonusMatchEnabled {
		return c.JSON(fiber.Map{"bonus_matches": []models.BonusMatch{}})
	}

	bonusMatches, err := s.EnsureAllBonusMatches(&tournament)
	if err != nil {
		log.Printf("[BONUS] ensure failed for tournament %s: %v", tournamentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to resolve bonus matches"})
	}
	if bonusMatches == nil {
		bonusMatches = []models.BonusMatch{}
	}

	return c.JSON(fiber.Map{"bonus_matches": bonusMatches})
}
