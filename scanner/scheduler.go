package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ExpiryScheduler runs every rule once per tick on a fixed interval. It is
// meant to be the only scheduler working on a store.
type ExpiryScheduler struct {
	sweeper  *Sweeper
	rules    []Rule
	interval time.Duration
	log      logrus.FieldLogger

	mu     sync.Mutex
	last   []SweepStats
	report func([]SweepStats)
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewExpiryScheduler(sweeper *Sweeper, interval time.Duration, rules ...Rule) *ExpiryScheduler {
	return &ExpiryScheduler{
		sweeper:  sweeper,
		rules:    rules,
		interval: interval,
		log:      sweeper.log,
	}
}

// Tick sweeps all rules concurrently and returns their stats in rule order.
func (s *ExpiryScheduler) Tick(ctx context.Context) []SweepStats {
	stats := make([]SweepStats, len(s.rules))
	var g errgroup.Group
	for i, rule := range s.rules {
		i, rule := i, rule
		g.Go(func() error {
			stats[i] = s.sweeper.Sweep(ctx, rule)
			return nil
		})
	}
	_ = g.Wait()

	for _, st := range stats {
		if st.Expired > 0 || len(st.Errors) > 0 {
			s.log.WithFields(logrus.Fields{
				"rule":     st.Rule,
				"expired":  st.Expired,
				"reversed": st.Reversed,
				"failed":   st.Failed,
				"errors":   len(st.Errors),
			}).Info("Expiry sweep finished")
		}
	}

	s.mu.Lock()
	s.last = stats
	report := s.report
	s.mu.Unlock()
	if report != nil {
		report(stats)
	}
	return stats
}

// OnTick registers fn to receive the stats of every tick.
func (s *ExpiryScheduler) OnTick(fn func([]SweepStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = fn
}

// Start ticks once immediately and then every interval until Stop is
// called or ctx ends. Starting a running scheduler does nothing.
func (s *ExpiryScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Tick(ctx)
		for {
			select {
			case <-ticker.C:
				s.Tick(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	s.log.WithField("interval", s.interval).Info("Expiry scheduler started")
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info("Expiry scheduler stopped")
}

// LastRun returns the stats of the most recent tick, or nil before the first.
func (s *ExpiryScheduler) LastRun() []SweepStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SweepStats(nil), s.last...)
}
