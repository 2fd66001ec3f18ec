// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"go-intentflow/pkg/logger"
)

// Trimmer drops analytics entries older than maxAge.
type Trimmer interface {
	Trim(ctx context.Context, maxAge time.Duration) (int, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

func New() *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger.Agent("scheduler"),
	}
}

// ScheduleTrim runs t.Trim(retention) on schedule, a standard cron expression or descriptor
// such as "@hourly".
func (s *Scheduler) ScheduleTrim(schedule string, t Trimmer, retention time.Duration) error {
	_, err := s.cron.AddFunc(schedule, func() {
		n, err := t.Trim(context.Background(), retention)
		if err != nil {
			s.logger.Error().Err(err).Msg("analytics trim failed")
			return
		}
		s.logger.Debug().Int("removed", n).Msg("analytics trim finished")
	})
	if err != nil {
		return fmt.Errorf("schedule trim %q: %w", schedule, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
