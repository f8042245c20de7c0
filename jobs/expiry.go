// Package jobs holds the background work scheduled by the server process.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// ProductionSchedule fires at the top of every hour.
	ProductionSchedule = "0 * * * *"
	// DevelopmentSchedule fires every minute.
	DevelopmentSchedule = "* * * * *"

	runTimeout = 30 * time.Second
)

// Sweeper performs one expiry transition and reports how many resources it flagged.
type Sweeper interface {
	MarkExpired(ctx context.Context) (int64, error)
}

// ScheduleFor returns the cron expression used when none is configured.
func ScheduleFor(production bool) string {
	if production {
		return ProductionSchedule
	}
	return DevelopmentSchedule
}

// ExpiryJob periodically flags resources whose expiration time has passed.
type ExpiryJob struct {
	sweeper  Sweeper
	logger   *zap.Logger
	cron     *cron.Cron
	schedule string
}

// NewExpiryJob parses schedule and registers the sweep. The job does not run until Start.
func NewExpiryJob(s Sweeper, schedule string, logger *zap.Logger) (*ExpiryJob, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &ExpiryJob{
		sweeper:  s,
		logger:   logger.Named("expiry"),
		cron:     cron.New(cron.WithLocation(time.UTC)),
		schedule: schedule,
	}
	if _, err := j.cron.AddFunc(schedule, j.Run); err != nil {
		return nil, fmt.Errorf("schedule expiry job %q: %w", schedule, err)
	}
	return j, nil
}

// Start launches the scheduler in its own goroutine.
func (j *ExpiryJob) Start() {
	j.logger.Info("expiry job started", zap.String("schedule", j.schedule))
	j.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish or ctx to end.
func (j *ExpiryJob) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.logger.Warn("expiry job did not finish before shutdown")
	}
}

// Run performs a single sweep. Failures and panics are logged, never returned.
func (j *ExpiryJob) Run() {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("expiry sweep panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	n, err := j.sweeper.MarkExpired(ctx)
	if err != nil {
		j.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		j.logger.Info("resources marked expired", zap.Int64("count", n), zap.Duration("took", time.Since(start)))
	} else {
		j.logger.Debug("expiry sweep found nothing", zap.Duration("took", time.Since(start)))
	}
}
