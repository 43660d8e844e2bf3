// Package janitor periodically deletes expired revocation entries and
// elapsed rate-limit windows.
package janitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/campusauth/pkg/observability"
	"github.com/platinummonkey/campusauth/pkg/storage"
)

// DefaultSchedule runs a prune every ten minutes.
const DefaultSchedule = "@every 10m"

// Janitor runs Prune on a set of stores on a cron schedule.
type Janitor struct {
	pruners  map[string]storage.Pruner
	schedule string
	logger   *observability.Logger
	metrics  *observability.Metrics
	now      func() time.Time

	cron *cron.Cron
}

// Option customizes a Janitor.
type Option func(*Janitor)

// WithClock overrides the prune cutoff time source.
func WithClock(now func() time.Time) Option {
	return func(j *Janitor) { j.now = now }
}

// WithMetrics records prune outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(j *Janitor) { j.metrics = m }
}

// New creates a janitor over pruners, keyed by the kind reported in logs and
// metrics. An empty schedule means DefaultSchedule.
func New(pruners map[string]storage.Pruner, schedule string, logger *observability.Logger, opts ...Option) *Janitor {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	j := &Janitor{
		pruners:  pruners,
		schedule: schedule,
		logger:   logger.WithField("component", "janitor"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start schedules the prune job. It returns an error for an invalid schedule.
func (j *Janitor) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(j.schedule, j.run); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", j.schedule, err)
	}
	j.cron = c
	c.Start()
	j.logger.WithField("schedule", j.schedule).Info("janitor started")
	return nil
}

// Run starts the janitor and blocks until ctx is done, then waits for a
// running job to finish.
func (j *Janitor) Run(ctx context.Context) error {
	if err := j.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	j.Stop()
	return nil
}

// Stop halts scheduling and waits for an in-flight job.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.logger.Info("janitor stopped")
}

func (j *Janitor) run() {
	defer observability.RecoverPanic(j.logger, "janitor")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.WithError(err).Warn("prune finished with errors")
	}
}

// RunOnce prunes every store once with the current time as cutoff and
// returns the removed count per kind. A failing store does not stop the
// others; the first error is returned.
func (j *Janitor) RunOnce(ctx context.Context) (map[string]int64, error) {
	cutoff := j.now()
	removed := make(map[string]int64, len(j.pruners))

	kinds := make([]string, 0, len(j.pruners))
	for kind := range j.pruners {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var firstErr error
	for _, kind := range kinds {
		n, err := j.pruners[kind].Prune(ctx, cutoff)
		j.metrics.RecordPrune(kind, n, err)
		if err != nil {
			j.logger.WithError(err).WithField("kind", kind).Error("prune failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("prune %s: %w", kind, err)
			}
			continue
		}
		removed[kind] = n
		j.logger.WithFields(map[string]interface{}{
			"kind":    kind,
			"removed": n,
		}).Debug("pruned expired entries")
	}
	return removed, firstErr
}
