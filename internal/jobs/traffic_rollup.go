// Package jobs schedules background aggregation work.
package jobs

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/roadpulse/roadpulse-backend-go/internal/service"
)

// Window of raw samples each rollup pass covers. Overlapping windows are fine:
// the upsert replaces the previous rollup for a cell.
const rollupWindow = 7 * 24 * time.Hour

// Scheduler runs periodic jobs against the traffic store.
type Scheduler struct {
	cron    *cron.Cron
	traffic *service.TrafficService
}

// NewScheduler creates the job scheduler.
func NewScheduler(traffic *service.TrafficService) *Scheduler {
	return &Scheduler{cron: cron.New(), traffic: traffic}
}

// Start registers the traffic density rollup on the given cron spec and
// begins running it.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		cells, err := s.traffic.RollupDensity(rollupWindow)
		if err != nil {
			log.Printf("[Jobs] Traffic rollup failed: %v", err)
			return
		}
		log.Printf("[Jobs] Traffic rollup updated %d cells", cells)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[Jobs] Traffic rollup scheduled: %s", spec)
	return nil
}

// Stop halts the scheduler, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
