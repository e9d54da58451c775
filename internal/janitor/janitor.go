// Package janitor sweeps the working image directory on a cron schedule.
// Sessions clean up after themselves; the sweep exists for files orphaned
// by crashes, which no session cleanup can reach.
package janitor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/embedforge/embedforge/internal/imagestore"
)

// Janitor periodically removes working-directory files older than MaxAge.
type Janitor struct {
	logger   *slog.Logger
	images   *imagestore.Store
	schedule string
	maxAge   time.Duration
	cron     *cron.Cron
}

func New(log *slog.Logger, images *imagestore.Store, schedule string, maxAge time.Duration) *Janitor {
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{
		logger:   log.With(slog.String("service", "janitor")),
		images:   images,
		schedule: schedule,
		maxAge:   maxAge,
	}
}

// Start validates the schedule and begins sweeping. The first sweep runs
// at the first scheduled tick, not at startup.
func (j *Janitor) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(j.schedule, j.sweep); err != nil {
		return fmt.Errorf("parse janitor schedule %q: %w", j.schedule, err)
	}
	c.Start()
	j.cron = c
	j.logger.Info("started",
		slog.String("schedule", j.schedule),
		slog.Duration("max_age", j.maxAge),
	)
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.logger.Info("stopped")
}

func (j *Janitor) sweep() {
	removed, err := j.images.SweepWorking(j.maxAge)
	if err != nil {
		j.logger.Error("sweep working images", slog.Any("error", err))
		return
	}
	if removed > 0 {
		j.logger.Info("swept orphaned images", slog.Int("removed", removed))
	}
}
