package services

import (
	"context"
	"log"
	"sync"
	"time"

	"prediction-league-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RecomputeService re-derives standings and trophy unlocks whenever match
// results change. The work is idempotent batch recomputation, not live
// scoring: a second run over the same data awards nothing new.
type RecomputeService struct {
	DB        *gorm.DB
	Standings *StandingsService
	Bonus     *BonusService
	Trophies  *TrophyService
}

func NewRecomputeService(db *gorm.DB, standings *StandingsService, bonus *BonusService, trophies *TrophyService) *RecomputeService {
	return &RecomputeService{DB: db, Standings: standings, Bonus: bonus, Trophies: trophies}
}

// RecomputeAll processes every active or finished tournament. Tournaments
// share no mutable state, so they run in parallel; one tournament's failure
// never blocks the others.
func (s *RecomputeService) RecomputeAll(ctx context.Context) {
	var tournaments []models.Tournament
	if err := s.DB.Where("status IN ?", []string{
		models.TournamentStatusActive,
		models.TournamentStatusFinished,
	}).Find(&tournaments).Error; err != nil {
		log.Printf("[RECOMPUTE] failed to list tournaments: %v", err)
		return
	}

	var wg sync.WaitGroup
	for i := range tournaments {
		t := tournaments[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := s.RecomputeTournament(ctx, &t); err != nil {
				log.Printf("[RECOMPUTE] tournament %s (%s) failed: %v", t.Slug, t.ID, err)
			}
		}()
	}
	wg.Wait()
}

// RecomputeTournament rebuilds the tournament's graded matchday contexts and
// awards any newly satisfied trophies. Matchdays are walked in ascending
// order because the consecutive-day predicates depend on the prior day's
// leader and loser.
func (s *RecomputeService) RecomputeTournament(ctx context.Context, t *models.Tournament) error {
	if _, err := s.Bonus.EnsureAllBonusMatches(t); err != nil {
		return err
	}

	tctx, err := s.BuildTournamentContext(t)
	if err != nil {
		return err
	}

	unlocks := DetectTrophies(tctx)
	if len(unlocks) == 0 {
		return nil
	}

	newCount, err := s.Trophies.AwardAll(unlocks)
	if err != nil {
		return err
	}
	if newCount > 0 {
		log.Printf("[RECOMPUTE] tournament %s: %d new trophies awarded", t.Slug, newCount)
	}
	return nil
}

// BuildTournamentContext grades every finished matchday of the tournament's
// range. Incomplete matchdays are left out of the context entirely; trophy
// detection must never see partial data.
func (s *RecomputeService) BuildTournamentContext(t *models.Tournament) (*TournamentContext, error) {
	cfg := s.Standings.LoadScoringConfig(t)
	now := time.Now().UTC()

	tctx := &TournamentContext{
		Tournament: t,
		Days:       make(map[int]*MatchdayContext),
		Finished:   t.Status == models.TournamentStatusFinished,
	}

	for matchday := t.StartingMatchday; matchday <= t.EndingMatchday; matchday++ {
		data, err := s.Standings.LoadMatchdayData(t, matchday)
		if err != nil {
			return nil, err
		}
		if tctx.ParticipantIDs == nil {
			for _, p := range data.Participants {
				tctx.ParticipantIDs = append(tctx.ParticipantIDs, p.ExternalUserID)
			}
		}
		if !MatchdayComplete(data.Matches) {
			continue
		}

		stats := ComputeMatchdayStats(t, data.Matches, data.Predictions, data.Participants, cfg, data.BonusMatchID, now)
		tctx.Days[matchday] = &MatchdayContext{
			Matchday:     matchday,
			Matches:      data.Matches,
			Predictions:  data.Predictions,
			BonusMatchID: data.BonusMatchID,
			Stats:        stats,
			Meta:         ComputeMatchdayMeta(stats, data.Matches),
		}
	}

	existing, err := s.Trophies.ExistingTrophies(tctx.ParticipantIDs)
	if err != nil {
		return nil, err
	}
	tctx.Existing = existing
	return tctx, nil
}

// FinalizeEndedTournaments flips active tournaments to finished once every
// matchday in their range is complete.
func (s *RecomputeService) FinalizeEndedTournaments(ctx context.Context) {
	var tournaments []models.Tournament
	if err := s.DB.Where("status = ?", models.TournamentStatusActive).Find(&tournaments).Error; err != nil {
		log.Printf("[FINALIZE] failed to list active tournaments: %v", err)
		return
	}

	for i := range tournaments {
		if ctx.Err() != nil {
			return
		}
		t := &tournaments[i]

		complete := true
		for matchday := t.StartingMatchday; matchday <= t.EndingMatchday; matchday++ {
			data, err := s.Standings.LoadMatchdayData(t, matchday)
			if err != nil || !MatchdayComplete(data.Matches) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}

		now := time.Now().UTC()
		if err := s.DB.Model(t).Updates(map[string]interface{}{
			"status":   models.TournamentStatusFinished,
			"end_time": &now,
		}).Error; err != nil {
			log.Printf("[FINALIZE] failed to finish tournament %s: %v", t.Slug, err)
			continue
		}
		log.Printf("[FINALIZE] tournament %s marked finished", t.Slug)
	}
}

// TriggerRecompute serves POST /admin/recompute, a manual kick on the same
// scheduler takes.
func (s *RecomputeService) TriggerRecompute(c *fiber.Ctx) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10 * time.Minute)
		defer cancel()
		s.FinalizeEndedTournaments(ctx)
		s.RecomputeAll(ctx)
	}()
	return c.Status(202).JSON(fiber.Map{"status": "recompute scheduled"})
}
