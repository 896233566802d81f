package scheduler

import (
	"context"
	"time"

	"github.com/riverqueue/river"
)

type DailyTickArgs struct{}

func (DailyTickArgs) Kind() string { return "daily_tick" }

type CleanupArgs struct{}

func (CleanupArgs) Kind() string { return "cleanup" }

// DailyTickWorker runs the allowance/auto-task/daily-quiz pass. River
// schedules it once per day; the per-day grant claims make an extra run a
// no-op.
type DailyTickWorker struct {
	river.WorkerDefaults[DailyTickArgs]
	scheduler *Service
}

func NewDailyTickWorker(s *Service) *DailyTickWorker {
	return &DailyTickWorker{scheduler: s}
}

func (w *DailyTickWorker) Work(ctx context.Context, job *river.Job[DailyTickArgs]) error {
	return w.scheduler.RunDailyTick(ctx, time.Now())
}

// CleanupWorker expires stale units and prunes closed recurring rules.
type CleanupWorker struct {
	river.WorkerDefaults[CleanupArgs]
	scheduler *Service
}

func NewCleanupWorker(s *Service) *CleanupWorker {
	return &CleanupWorker{scheduler: s}
}

func (w *CleanupWorker) Work(ctx context.Context, job *river.Job[CleanupArgs]) error {
	return w.scheduler.Cleanup(ctx, time.Now())
}
