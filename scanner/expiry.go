package scanner

import (
	"context"
	"fmt"
	"time"

	"modlog-bot/metrics"
	"modlog-bot/model"
	"modlog-bot/utils"
	"modlog-bot/utils/database/cases"

	"github.com/sirupsen/logrus"
)

// Rule reverses one kind of temporary punishment once its end time passes.
type Rule struct {
	Name     string
	Active   model.Action
	Reversed model.Action
	Reverse  func(ctx context.Context, guildID, userID string) error
}

// BanExpiry lifts temporary bans.
func BanExpiry(e model.Enforcer) Rule {
	return Rule{Name: "unban", Active: model.ActionBanned, Reversed: model.ActionUnbanned, Reverse: e.Unban}
}

// MuteExpiry lifts temporary mutes.
func MuteExpiry(e model.Enforcer) Rule {
	return Rule{Name: "unmute", Active: model.ActionMuted, Reversed: model.ActionUnmuted, Reverse: e.Unmute}
}

// EnforcementError records a reversal the platform refused. The case stays
// in its active state and is retried on the next sweep.
type EnforcementError struct {
	Rule    string
	GuildID string
	CaseID  int
	Err     error
}

func (e *EnforcementError) Error() string {
	return fmt.Sprintf("%s of case #%d in guild %s failed: %v", e.Rule, e.CaseID, e.GuildID, e.Err)
}

func (e *EnforcementError) Unwrap() error { return e.Err }

// SweepStats summarises one sweep of one rule.
type SweepStats struct {
	Rule     string
	Started  time.Time
	Took     time.Duration
	Guilds   int
	Scanned  int
	Expired  int
	Reversed int
	Failed   int
	Errors   []error
}

// Sweeper scans every guild's cases and reverses the expired ones.
type Sweeper struct {
	store          cases.Store
	notifier       model.Notifier
	metrics        *metrics.Metrics
	log            logrus.FieldLogger
	now            func() time.Time
	enforceTimeout time.Duration
}

type SweeperOption func(*Sweeper)

func WithNotifier(n model.Notifier) SweeperOption {
	return func(s *Sweeper) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

func WithLogger(log logrus.FieldLogger) SweeperOption {
	return func(s *Sweeper) { s.log = log }
}

func WithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.now = now }
}

// WithEnforceTimeout bounds each individual reversal call.
func WithEnforceTimeout(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.enforceTimeout = d }
}

func NewSweeper(store cases.Store, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		store:          store,
		log:            utils.Log,
		now:            time.Now,
		enforceTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep runs rule over all stored cases once. Failures are isolated to the
// case or guild they happen in; the sweep always carries on.
func (s *Sweeper) Sweep(ctx context.Context, rule Rule) (stats SweepStats) {
	stats = SweepStats{Rule: rule.Name, Started: s.now()}
	begin := time.Now()
	defer func() {
		stats.Took = time.Since(begin)
		s.metrics.ObserveSweep(rule.Name, stats.Took.Seconds())
	}()

	guilds, err := s.store.ListGuilds(ctx)
	if err != nil {
		s.log.WithField("rule", rule.Name).WithError(err).Error("Failed to list guilds for expiry sweep")
		stats.Errors = append(stats.Errors, err)
		return stats
	}

	now := stats.Started
	for _, guildID := range guilds {
		if ctx.Err() != nil {
			break
		}
		stats.Guilds++

		// A partially readable guild still gets its readable cases swept.
		records, err := s.store.List(ctx, guildID)
		if err != nil {
			s.log.WithFields(logrus.Fields{"rule": rule.Name, "guild_id": guildID}).WithError(err).Error("Failed to list cases")
			stats.Errors = append(stats.Errors, err)
		}

		for _, c := range records {
			stats.Scanned++
			if c.Action != rule.Active || c.EndTime == nil || !c.Expired(now) {
				continue
			}
			stats.Expired++
			if err := s.reverse(ctx, rule, c); err != nil {
				stats.Failed++
				stats.Errors = append(stats.Errors, err)
				continue
			}
			stats.Reversed++
		}
	}
	return stats
}

func (s *Sweeper) reverse(ctx context.Context, rule Rule, c model.Case) error {
	log := s.log.WithFields(logrus.Fields{
		"rule":     rule.Name,
		"guild_id": c.GuildID,
		"case_id":  c.CaseID,
		"user_id":  c.SubjectID,
	})

	if err := s.enforce(ctx, rule, c); err != nil {
		s.metrics.IncrementReversalFailures(rule.Name, "enforce")
		log.WithError(err).Warn("Reversal failed, will retry next sweep")
		return &EnforcementError{Rule: rule.Name, GuildID: c.GuildID, CaseID: c.CaseID, Err: err}
	}

	updated, err := s.store.Update(ctx, c.GuildID, c.CaseID, func(stored *model.Case) error {
		stored.Action = rule.Reversed
		return nil
	})
	if err != nil {
		s.metrics.IncrementReversalFailures(rule.Name, "store")
		log.WithError(err).Error("Reversed on the platform but failed to update the case")
		return err
	}
	s.metrics.IncrementCasesReversed(rule.Name)
	log.Info("Expired punishment reversed")

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, model.CaseEvent{Kind: model.EventExpired, Case: updated}); err != nil {
			s.metrics.IncrementNotifyFailures()
			log.WithError(err).Warn("Expiry notification failed")
		}
	}
	return nil
}

// enforce calls the reversal with its own timeout so one stuck call cannot
// hold up the rest of the sweep.
func (s *Sweeper) enforce(ctx context.Context, rule Rule, c model.Case) error {
	ctx, cancel := context.WithTimeout(ctx, s.enforceTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in %s: %v", rule.Name, r)
			}
		}()
		done <- rule.Reverse(ctx, c.GuildID, c.SubjectID)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
