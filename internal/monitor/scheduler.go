package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

// Job is one periodic unit of work, usually a screen poller.
type Job interface {
	// Name identifies the job in logs and metrics.
	Name() string

	// Interval is the period between runs.
	Interval() time.Duration

	// Run performs one poll. Errors are logged by the scheduler; a job that
	// fails keeps its schedule.
	Run(ctx context.Context) error
}

// Task is a scheduled job.
type Task struct {
	Job      Job
	Interval time.Duration
}

// Scheduler runs jobs on independent tickers, each bound to the
// scheduler's context.
type Scheduler struct {
	tasks   []*Task
	logger  *slog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewScheduler creates a new scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger.With("component", "scheduler"),
	}
}

// Add registers a job using its own interval.
func (s *Scheduler) Add(job Job) {
	s.AddTask(&Task{Job: job, Interval: job.Interval()})
}

// AddTask registers a task. Tasks added after Start are not run.
func (s *Scheduler) AddTask(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
	s.logger.Info("task added", "name", t.Job.Name(), "interval", t.Interval)
}

// Len returns the number of registered tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Start runs every task once immediately and then on its ticker. Runs do
// not wait for each other: a slow poll never delays the next tick.
// A scheduler starts only once.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return types.ErrStopped
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)

	for _, t := range s.tasks {
		s.wg.Add(1)
		go func(t *Task) {
			defer s.wg.Done()
			s.loop(ctx, t)
		}(t)
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context, t *Task) {
	interval := t.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.spawn(ctx, t)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.spawn(ctx, t)
		}
	}
}

func (s *Scheduler) spawn(ctx context.Context, t *Task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := t.Job.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("task failed", "name", t.Job.Name(), "error", err)
		}
	}()
}

// Stop cancels every task and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}
