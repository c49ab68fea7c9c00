package broadcast

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inspira/dailyquote/internal/config"
	"github.com/inspira/dailyquote/internal/pkg/runlock"
)

// Scheduler fires the broadcast dispatcher once per day at a configured UTC
// time. A run lock ensures that only one server instance dispatches even
// when several are running.
type Scheduler struct {
	dispatcher *Dispatcher
	lock       runlock.Lock
	hour       int
	minute     int

	totalRuns   int64
	totalSent   int64
	totalFailed int64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool

	now func() time.Time
}

// NewScheduler creates a daily broadcast scheduler.
func NewScheduler(dispatcher *Dispatcher, lock runlock.Lock, cfg config.BroadcastConfig) *Scheduler {
	return &Scheduler{
		dispatcher: dispatcher,
		lock:       lock,
		hour:       cfg.HourUTC,
		minute:     cfg.MinuteUTC,
		now:        time.Now,
	}
}

// Start begins the scheduler background goroutine.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	log.Printf("[scheduler] starting, daily fire time %02d:%02d UTC", s.hour, s.minute)
	s.wg.Add(1)
	go s.loop()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	log.Printf("[scheduler] stopped. runs=%d sent=%d failed=%d",
		atomic.LoadInt64(&s.totalRuns),
		atomic.LoadInt64(&s.totalSent),
		atomic.LoadInt64(&s.totalFailed))
}

// IsRunning reports whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Stats returns lifetime counters for the health endpoint.
func (s *Scheduler) Stats() map[string]int64 {
	return map[string]int64{
		"total_runs":   atomic.LoadInt64(&s.totalRuns),
		"total_sent":   atomic.LoadInt64(&s.totalSent),
		"total_failed": atomic.LoadInt64(&s.totalFailed),
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		wait := s.untilNextFire(s.now())
		log.Printf("[scheduler] next broadcast in %s", wait.Round(time.Second))

		select {
		case <-time.After(wait):
			s.fire()
		case <-s.ctx.Done():
			return
		}
	}
}

// untilNextFire returns the duration until the next HH:MM UTC occurrence.
func (s *Scheduler) untilNextFire(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (s *Scheduler) fire() {
	ok, err := s.lock.Acquire(s.ctx)
	if err != nil {
		log.Printf("[scheduler] run lock error: %v", err)
		return
	}
	if !ok {
		log.Printf("[scheduler] another instance holds today's run lock, skipping")
		return
	}

	summary, err := s.dispatcher.Run(s.ctx)
	atomic.AddInt64(&s.totalRuns, 1)
	if err != nil {
		log.Printf("[scheduler] broadcast run failed: %v", err)
		// Free today's lock so another instance can retry the run.
		if rerr := s.lock.Release(context.Background()); rerr != nil {
			log.Printf("[scheduler] run lock release error: %v", rerr)
		}
		return
	}

	// Keep the lock after success. The dated key stops a skewed second
	// instance from re-broadcasting the same day.
	atomic.AddInt64(&s.totalSent, int64(summary.Sent))
	atomic.AddInt64(&s.totalFailed, int64(summary.Failed))
}
