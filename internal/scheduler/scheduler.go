package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrUnknownJob     = errors.New("unknown job")
	ErrJobRunning     = errors.New("job already running")
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
	// SkipInitialRun leaves the job out of Options.RunOnStart.
	SkipInitialRun bool
}

type Options struct {
	// RunOnStart executes every job once as soon as the scheduler starts.
	RunOnStart bool
	Now        func() time.Time
	// Observe is told about every finished run; err is nil on success.
	Observe func(job string, err error)
}

type Scheduler struct {
	jobs   map[string]*scheduledJob // job name -> job
	order  []string
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	runOnStart bool
	now        func() time.Time
	observe    func(job string, err error)
	lg         *zap.SugaredLogger
}

type scheduledJob struct {
	Job

	mu       sync.Mutex
	running  bool
	runs     int
	failures int
	lastRun  *time.Time
	lastErr  string
	duration time.Duration
}

type JobStatus struct {
	Name         string        `json:"name"`
	Interval     string        `json:"interval"`
	Running      bool          `json:"running"`
	Runs         int           `json:"runs"`
	Failures     int           `json:"failures"`
	LastRun      *time.Time    `json:"lastRun,omitempty"`
	LastError    string        `json:"lastError,omitempty"`
	LastDuration time.Duration `json:"lastDurationNs"`
}

type Status struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

func New(lg *zap.SugaredLogger, opts Options) *Scheduler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		jobs:       make(map[string]*scheduledJob),
		runOnStart: opts.RunOnStart,
		now:        now,
		observe:    opts.Observe,
		lg:         lg,
	}
}

// Add registers a job. Jobs must be added before Start.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run func")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return ErrAlreadyStarted
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}
	s.jobs[job.Name] = &scheduledJob{Job: job}
	s.order = append(s.order, job.Name)
	return nil
}

// Start launches one ticker goroutine per job. The jobs stop when ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, name := range s.order {
		job := s.jobs[name]
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if s.runOnStart && !job.SkipInitialRun {
				s.execute(s.ctx, job)
			}
			s.runJob(s.ctx, job)
		}()
	}

	s.lg.Infow("scheduler started", "jobs", len(s.order), "run_on_start", s.runOnStart)
	return nil
}

// Stop cancels every job and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.lg.Infow("scheduler stopped")
}

// RunNow executes a job immediately, outside its ticker. A job that is
// already running is not started twice.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) runJob(ctx context.Context, job *scheduledJob) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job *scheduledJob) error {
	job.mu.Lock()
	if job.running {
		job.mu.Unlock()
		s.lg.Warnw("skipping overlapping job run", "job", job.Name)
		return ErrJobRunning
	}
	job.running = true
	job.mu.Unlock()

	start := s.now()
	err := s.safeRun(ctx, job)
	elapsed := time.Since(start)

	job.mu.Lock()
	job.running = false
	job.runs++
	job.lastRun = &start
	job.duration = elapsed
	job.lastErr = ""
	if err != nil {
		job.failures++
		job.lastErr = err.Error()
	}
	job.mu.Unlock()

	if s.observe != nil {
		s.observe(job.Name, err)
	}
	if err != nil {
		s.lg.Errorw("job failed", "job", job.Name, "duration", elapsed, "err", err)
	} else {
		s.lg.Infow("job finished", "job", job.Name, "duration", elapsed)
	}
	return err
}

func (s *Scheduler) safeRun(ctx context.Context, job *scheduledJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}

// Status returns current scheduler status
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Running: s.ctx != nil && s.ctx.Err() == nil,
		Jobs:    make([]JobStatus, 0, len(s.order)),
	}
	for _, name := range s.order {
		job := s.jobs[name]
		job.mu.Lock()
		status.Jobs = append(status.Jobs, JobStatus{
			Name:         job.Name,
			Interval:     job.Interval.String(),
			Running:      job.running,
			Runs:         job.runs,
			Failures:     job.failures,
			LastRun:      job.lastRun,
			LastError:    job.lastErr,
			LastDuration: job.duration,
		})
		job.mu.Unlock()
	}
	return status
}
