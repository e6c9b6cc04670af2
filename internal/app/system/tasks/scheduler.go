// Package tasks runs background jobs on wall-clock schedules.
//
// Several app instances may run the same scheduler. Each run belongs to a
// slot, the scheduled time it was due. Before running, a job claims its
// slot in the job_locks collection, so each slot runs on exactly one
// instance even when the instances' timers fire at different moments.
package tasks

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dalemusser/ridehub/internal/app/system/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Schedule computes the next run time strictly after t.
type Schedule interface {
	Next(t time.Time) time.Time
	String() string
}

type every time.Duration

// Every runs at fixed intervals aligned to wall-clock multiples of d, so
// all instances agree on the slots.
func Every(d time.Duration) Schedule { return every(d) }

func (e every) Next(t time.Time) time.Time {
	return t.UTC().Truncate(time.Duration(e)).Add(time.Duration(e))
}

func (e every) String() string { return "every " + time.Duration(e).String() }

type dailyAt struct{ hour, minute int }

// DailyAt runs once a day at hour:minute UTC.
func DailyAt(hour, minute int) Schedule { return dailyAt{hour: hour, minute: minute} }

func (d dailyAt) Next(t time.Time) time.Time {
	t = t.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), d.hour, d.minute, 0, 0, time.UTC)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d dailyAt) String() string { return fmt.Sprintf("daily at %02d:%02d UTC", d.hour, d.minute) }

// Job is one named unit of background work.
type Job struct {
	Name     string
	Schedule Schedule
	// Timeout bounds one run; zero means the lease TTL.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Locker is the lease store, implemented by joblockstore.Store. TryAcquire
// must refuse a slot that is not later than the last slot claimed.
type Locker interface {
	TryAcquire(ctx context.Context, name, owner string, slot time.Time, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, owner string) error
}

// Scheduler owns the job goroutines.
type Scheduler struct {
	locks   Locker
	owner   string
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
	jobs    []Job

	now func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler builds a scheduler. leaseTTL should exceed the longest run.
func NewScheduler(locks Locker, leaseTTL time.Duration, logger *zap.Logger, m *metrics.Metrics) *Scheduler {
	host, _ := os.Hostname()
	return &Scheduler{
		locks:   locks,
		owner:   fmt.Sprintf("%s-%s", host, uuid.New().String()[:8]),
		ttl:     leaseTTL,
		log:     logger,
		metrics: m,
		now:     time.Now,
	}
}

// Add registers a job. Call before Start.
func (s *Scheduler) Add(j Job) { s.jobs = append(s.jobs, j) }

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []Job { return append([]Job(nil), s.jobs...) }

// Start launches one loop per job.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
		s.log.Info("scheduled job", zap.String("job", j.Name), zap.String("schedule", j.Schedule.String()))
	}
}

// Stop cancels every loop and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	defer s.wg.Done()
	for {
		now := s.now()
		due := j.Schedule.Next(now)
		timer := time.NewTimer(due.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			_, _ = s.RunOnce(ctx, j, due)
		}
	}
}

// RunOnce claims slot for j and runs it. It reports whether this instance
// ran the job. A slot already claimed, here or on another instance, is
// skipped.
func (s *Scheduler) RunOnce(ctx context.Context, j Job, slot time.Time) (bool, error) {
	got, err := s.locks.TryAcquire(ctx, j.Name, s.owner, slot.UTC().Truncate(time.Millisecond), s.ttl)
	if err != nil {
		s.log.Error("job lease failed", zap.String("job", j.Name), zap.Error(err))
		s.metrics.JobRun(j.Name, "error")
		return false, err
	}
	if !got {
		s.log.Debug("job slot taken", zap.String("job", j.Name), zap.Time("slot", slot))
		s.metrics.JobRun(j.Name, "locked")
		return false, nil
	}
	defer func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.locks.Release(relCtx, j.Name, s.owner); err != nil {
			s.log.Warn("job lease release failed", zap.String("job", j.Name), zap.Error(err))
		}
	}()

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = s.ttl
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := s.now()
	err = safeRun(runCtx, j)
	if err != nil {
		s.log.Error("job failed", zap.String("job", j.Name), zap.Error(err))
		s.metrics.JobRun(j.Name, "error")
		return true, err
	}
	s.log.Info("job finished", zap.String("job", j.Name), zap.Duration("took", s.now().Sub(start)))
	s.metrics.JobRun(j.Name, "ok")
	return true, nil
}

func safeRun(ctx context.Context, j Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Name, r)
		}
	}()
	return j.Run(ctx)
}
