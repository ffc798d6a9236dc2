package services

import (
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"prediction-league-system/models"
	"prediction-league-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TrophyService struct {
	DB *gorm.DB
}

func NewTrophyService(db *gorm.DB) *TrophyService {
	return &TrophyService{DB: db}
}

// AwardIfAbsent inserts an unlock keyed by (user, trophy type). On conflict
// it is a silent no-op: trophies are append-only facts, never re-awarded and
// never updated, so concurrent recomputations are safe. Returns whether a
// row was actually created.
func (s *TrophyService) AwardIfAbsent(externalUserID, trophyType string, unlockedAt time.Time, trigger *models.TriggerMatch) (bool, error) {
	unlock := models.TrophyUnlock{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		TrophyType:     trophyType,
		UnlockedAt:     unlockedAt,
		IsNew:          true,
	}
	if trigger != nil {
		payload, err := json.Marshal(trigger)
		if err != nil {
			return false, fmt.Errorf("marshal trigger match: %w", err)
		}
		unlock.TriggerMatch = payload
	}

	result := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "trophy_type"}},
		DoNothing: true,
	}).Create(&unlock)
	if result.Error != nil {
		return false, result.Error
	}

	awarded := result.RowsAffected > 0
	if awarded {
		log.Printf("[TROPHY] awarded %s to %s (unlocked %s)", trophyType, externalUserID, unlockedAt.Format(time.RFC3339))
	}
	return awarded, nil
}

// AwardAll persists a batch of detected unlocks, returning how many were new.
func (s *TrophyService) AwardAll(unlocks []Unlock) (int, error) {
	newCount := 0
	for _, u := range unlocks {
		awarded, err := s.AwardIfAbsent(u.ExternalUserID, u.TrophyType, u.UnlockedAt, u.Trigger)
		if err != nil {
			return newCount, err
		}
		if awarded {
			newCount++
		}
	}
	return newCount, nil
}

// ExistingTrophies loads each user's held trophy set.
func (s *TrophyService) ExistingTrophies(externalUserIDs []string) (map[string]map[string]bool, error) {
	existing := make(map[string]map[string]bool, len(externalUserIDs))
	for _, userID := range externalUserIDs {
		existing[userID] = make(map[string]bool)
	}
	if len(externalUserIDs) == 0 {
		return existing, nil
	}

	var unlocks []models.TrophyUnlock
	if err := s.DB.Where("external_user_id IN ?", externalUserIDs).Find(&unlocks).Error; err != nil {
		return nil, err
	}
	for _, u := range unlocks {
		if _, ok := existing[u.ExternalUserID]; ok {
			existing[u.ExternalUserID][u.TrophyType] = true
		}
	}
	return existing, nil
}

type trophyResponse struct {
	models.TrophyUnlock
	Info    models.TrophyInfo `json:"info"`
	IconURL string            `json:"icon_url"`
}

// GetUserTrophies serves GET /users/me/trophies.
func (s *TrophyService) GetUserTrophies(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	var unlocks []models.TrophyUnlock
	if err := s.DB.Where("external_user_id = ?", userID).
		Order("unlocked_at DESC").
		Find(&unlocks).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load trophies"})
	}

	hasNew := false
	trophies := make([]trophyResponse, 0, len(unlocks))
	for _, u := range unlocks {
		if u.IsNew {
			hasNew = true
		}
		trophies = append(trophies, trophyResponse{
			TrophyUnlock: u,
			Info:         models.GetTrophyInfo(u.TrophyType),
			IconURL:      utils.TrophyIconURL(u.TrophyType, ".png"),
		})
	}

	return c.JSON(fiber.Map{
		"trophies":        trophies,
		"has_new":         hasNew,
		"total_available": len(models.AllTrophyTypes),
	})
}

// MarkTrophiesSeen serves POST /users/me/trophies/seen. Clears is_new once
// the UI has played the unlock animation.
func (s *TrophyService) MarkTrophiesSeen(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	result := s.DB.Model(&models.TrophyUnlock{}).
		Where("external_user_id = ? AND is_new = ?", userID, true).
		Update("is_new", false)
	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to mark trophies seen"})
	}

	return c.JSON(fiber.Map{"cleared": result.RowsAffected})
}

// UploadTrophyIcon serves POST /admin/trophies/icons. Pushes a trophy icon
// asset to R2 and returns its public URL.
func (s *TrophyService) UploadTrophyIcon(c *fiber.Ctx) error {
	trophyType := c.FormValue("trophy_type")
	if trophyType == "" {
		return c.Status(400).JSON(fiber.Map{"error": "trophy_type is required"})
	}

	icon, err := c.FormFile("icon")
	if err != nil || icon.Size == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "icon file is required"})
	}

	ext := filepath.Ext(icon.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := fmt.Sprintf("trophy/%s%s", trophyType, ext)

	url, err := utils.UploadFileToR2(icon, key)
	if err != nil {
		log.Printf("[TROPHY] icon upload failed for %s: %v", trophyType, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to upload icon"})
	}

	return c.JSON(fiber.Map{"trophy_type": trophyType, "icon_url": url})
}
