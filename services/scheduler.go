// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRecomputeScheduler runs the periodic jobs that keep standings and
// trophies current: finalizing ended tournaments and recomputing trophy
// unlocks after the match sync worker pulls fresh results.
func (s *RecomputeService) StartRecomputeScheduler(ctx context.Context) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[Scheduler] failed to create scheduler: %v", err)
		return
	}
	sched.Start()

	if _, err := sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			s.FinalizeEndedTournaments(ctx)
			s.RecomputeAll(ctx)
		}),
	); err != nil {
		log.Printf("[Scheduler] failed to register recompute job: %v", err)
	}

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			log.Printf("[Scheduler] shutdown error: %v", err)
		}
	}()
}
