package scheduler

import (
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/goshlanguage/mate/internal/collector"
)

// Scheduler drives the collector's polling cycle. A cycle still in flight
// when the next trigger fires causes that trigger to be skipped, so cycles
// never overlap.
type Scheduler struct {
	cron      *cron.Cron
	collector *collector.Collector
}

func New(col *collector.Collector) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		collector: col,
	}
}

// Register adds the collect task under a cron spec, e.g. "@every 1h".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.collector.Update); err != nil {
		return errors.Wrapf(err, "register poll task %q", spec)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("scheduler started")
}

// Stop waits for no one: a cycle in flight finishes on its own goroutine.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info("scheduler stopped")
}

// RunNow executes one cycle immediately, used at startup so a fresh deploy
// doesn't wait a full interval for its first data.
func (s *Scheduler) RunNow() {
	s.collector.Update()
}
