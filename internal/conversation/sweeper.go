package conversation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically evicts idle transcripts from a Store.
type Sweeper struct {
	logger *slog.Logger
	cron   *cron.Cron
}

// NewSweeper schedules store.Sweep on the given cron spec
// (e.g. "@every 5m"). The schedule is validated up front.
func NewSweeper(log *slog.Logger, store *Store, schedule string) (*Sweeper, error) {
	if log == nil {
		log = slog.Default()
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		store.Sweep(time.Now())
	}); err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", schedule, err)
	}
	return &Sweeper{
		logger: log.With(slog.String("service", "conversation_sweeper")),
		cron:   c,
	}, nil
}

// Start begins the sweep schedule.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Debug("sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Debug("sweeper stopped")
}
