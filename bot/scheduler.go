package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"modlog-bot/model"
	"modlog-bot/scanner"
	"modlog-bot/utils"
)

// Scheduler owns the background work of the bot: the expiry sweeps and
// the status server.
type Scheduler struct {
	bot    *Bot
	expiry *scanner.ExpiryScheduler
	status *StatusServer

	mu      sync.Mutex
	failing map[string]bool // rule name -> last sweep had errors
}

// NewScheduler wires the expiry sweeps to the bot's store, enforcer and
// notifiers.
func NewScheduler(b *Bot, notifier model.Notifier) *Scheduler {
	sweeper := scanner.NewSweeper(b.Store,
		scanner.WithNotifier(notifier),
		scanner.WithMetrics(b.Metrics),
		scanner.WithEnforceTimeout(b.Config.EnforceTimeout),
	)
	s := &Scheduler{
		bot: b,
		expiry: scanner.NewExpiryScheduler(sweeper, b.Config.SweepInterval,
			scanner.BanExpiry(b.Enforcer),
			scanner.MuteExpiry(b.Enforcer),
		),
	}
	s.expiry.OnTick(s.reportSweeps)
	if b.Config.MetricsAddr != "" {
		s.status = NewStatusServer(b.Config.MetricsAddr, NewStatusRouter(b.Registry, s.expiry.LastRun))
	}
	return s
}

// Start begins all scheduled tasks.
func (s *Scheduler) Start(ctx context.Context) {
	s.expiry.Start(ctx)
	if s.status != nil {
		s.status.Start()
	}
}

// Stop terminates all scheduled tasks gracefully.
func (s *Scheduler) Stop() {
	utils.Log.Info("Stopping scheduler...")
	s.expiry.Stop()
	if s.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.status.Shutdown(ctx); err != nil {
			utils.Log.WithError(err).Warn("Status server shutdown")
		}
	}
	utils.Log.Info("Scheduler stopped.")
}

// reportSweeps posts a warning to the log channel when a rule starts
// failing. A rule that keeps failing is not reported again until it has
// had a clean sweep.
func (s *Scheduler) reportSweeps(stats []scanner.SweepStats) {
	s.mu.Lock()
	warnings := sweepWarnings(s.failing, stats)
	s.failing = failingRules(stats)
	s.mu.Unlock()

	for _, w := range warnings {
		if err := utils.LogWarn(s.bot.Session, s.bot.Config.LogChannelID, "Expiry", "Sweep", w); err != nil {
			utils.Log.WithError(err).Debug("Could not post sweep warning")
		}
	}
}

func failingRules(stats []scanner.SweepStats) map[string]bool {
	failing := make(map[string]bool, len(stats))
	for _, st := range stats {
		failing[st.Rule] = len(st.Errors) > 0
	}
	return failing
}

func sweepWarnings(failing map[string]bool, stats []scanner.SweepStats) []string {
	var warnings []string
	for _, st := range stats {
		if len(st.Errors) == 0 || failing[st.Rule] {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s sweep: %d of %d expired case(s) could not be reversed, %d error(s). First: %v",
			st.Rule, st.Failed, st.Expired, len(st.Errors), st.Errors[0]))
	}
	return warnings
}
