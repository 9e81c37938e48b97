package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	JobRecurring      = "recurring"
	JobBudgetAlerts   = "budget-alerts"
	JobMonthlyReports = "monthly-reports"
)

// Job is one scheduled task
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Schedule binds a job to its tick interval
type Schedule struct {
	Job      Job
	Interval time.Duration
}

// Scheduler runs each job on its own ticker, once immediately at start
type Scheduler struct {
	schedules []Schedule

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewScheduler(schedules ...Schedule) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	zap.L().Info("Starting job scheduler", zap.Int("jobs", len(s.schedules)))

	var wg sync.WaitGroup
	for _, schedule := range s.schedules {
		wg.Add(1)
		go func(sc Schedule) {
			defer wg.Done()
			s.loop(ctx, sc)
		}(schedule)

		zap.L().Info("Job scheduled",
			zap.String("job", schedule.Job.Name()),
			zap.Duration("interval", schedule.Interval))
	}

	go func() {
		wg.Wait()
		close(s.doneChan)
	}()
}

// Stop signals every loop and waits for in-flight runs to finish
func (s *Scheduler) Stop() {
	zap.L().Info("Stopping job scheduler")
	close(s.stopChan)
	<-s.doneChan
	zap.L().Info("Job scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, schedule Schedule) {
	ticker := time.NewTicker(schedule.Interval)
	defer ticker.Stop()

	RunJob(ctx, schedule.Job)

	for {
		select {
		case <-ticker.C:
			RunJob(ctx, schedule.Job)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunJob runs one job and logs its outcome
func RunJob(ctx context.Context, job Job) error {
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		zap.L().Error("Job run failed",
			zap.String("job", job.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}
	zap.L().Info("Job run finished",
		zap.String("job", job.Name()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
