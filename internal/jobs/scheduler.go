// Package jobs runs the development backend's periodic maintenance.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"todoclient/internal/logging"
)

// Scheduler wraps a cron runner
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a scheduler with second precision
func NewScheduler(loc *time.Location) *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithLocation(loc), cron.WithSeconds())}
}

// Every registers job to run at a fixed interval. Each run gets its own timeout.
func (s *Scheduler) Every(name string, interval, timeout time.Duration, job func(context.Context) error) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := max(int(interval.Seconds()), 1)

	log := logging.Component("jobs").WithField("job", name)
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Job failed")
		}
	})
}

// Entries is the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
