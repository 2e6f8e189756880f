// Package moderation records disciplinary actions as cases and manages the
// stored cases afterwards. It never talks to the chat platform itself: the
// command layer enforces first and then records here.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"modlog-bot/metrics"
	"modlog-bot/model"
	"modlog-bot/utils"
	"modlog-bot/utils/database/cases"

	"github.com/sirupsen/logrus"
)

// ErrInvalidRequest is returned when a record request is missing data.
var ErrInvalidRequest = errors.New("invalid record request")

// Request describes one punishment event to record.
type Request struct {
	GuildID     string
	SubjectID   string
	ModeratorID string
	Action      model.Action
	Reason      string
	// Duration of a temporary action. Zero means permanent or instantaneous
	// and leaves the case without an end time.
	Duration time.Duration
	// Appealable is free text; empty stores model.NotApplicable.
	Appealable string
}

func (r Request) validate() error {
	var missing []string
	if r.GuildID == "" {
		missing = append(missing, "guild")
	}
	if r.SubjectID == "" {
		missing = append(missing, "subject")
	}
	if r.ModeratorID == "" {
		missing = append(missing, "moderator")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if _, ok := model.ParseAction(string(r.Action)); !ok {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, r.Action)
	}
	if r.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidRequest)
	}
	return nil
}

// Delivery is the best-effort outcome of notifying about a case. It never
// affects whether the case itself was written.
type Delivery struct {
	Err error
}

func (d Delivery) Delivered() bool { return d.Err == nil }

// Entry is a recorded case plus how its notification went.
type Entry struct {
	Case         model.Case
	Notification Delivery
}

// Ledger builds, persists and looks up cases.
type Ledger struct {
	store    cases.Store
	alloc    cases.Allocator
	notifier model.Notifier
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Ledger)

// WithAllocator replaces the default count-based id allocator.
func WithAllocator(a cases.Allocator) Option {
	return func(l *Ledger) { l.alloc = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Ledger) { l.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger over store. notifier may be nil.
func NewLedger(store cases.Store, notifier model.Notifier, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		alloc:    cases.CountAllocator{Store: store},
		notifier: notifier,
		log:      utils.Log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record writes a new case for req and notifies about it.
func (l *Ledger) Record(ctx context.Context, req Request) (Entry, error) {
	if err := req.validate(); err != nil {
		return Entry{}, err
	}

	caseID, err := l.alloc.Allocate(ctx, req.GuildID)
	if err != nil {
		return Entry{}, fmt.Errorf("allocating case id: %w", err)
	}

	now := l.now().UTC()
	appealable := req.Appealable
	if appealable == "" {
		appealable = model.NotApplicable
	}
	c := model.Case{
		GuildID:     req.GuildID,
		CaseID:      caseID,
		Action:      req.Action,
		ModeratorID: req.ModeratorID,
		SubjectID:   req.SubjectID,
		Reason:      req.Reason,
		Duration:    utils.FormatDuration(req.Duration),
		Appealable:  appealable,
		Timestamp:   now.Format(model.TimestampLayout),
	}
	if req.Duration > 0 {
		end := now.Add(req.Duration)
		c.EndTime = &end
	}

	if err := l.store.Create(ctx, c); err != nil {
		return Entry{}, err
	}
	l.metrics.IncrementCasesRecorded(string(c.Action))
	l.log.WithFields(logrus.Fields{
		"guild_id": c.GuildID,
		"case_id":  c.CaseID,
		"action":   c.Action,
		"user_id":  c.SubjectID,
	}).Info("Case recorded")

	return Entry{Case: c, Notification: l.notify(ctx, model.EventRecorded, c)}, nil
}

func (l *Ledger) notify(ctx context.Context, kind model.EventKind, c model.Case) Delivery {
	if l.notifier == nil {
		return Delivery{}
	}
	err := l.notifier.Notify(ctx, model.CaseEvent{Kind: kind, Case: c})
	if err != nil {
		l.metrics.IncrementNotifyFailures()
		l.log.WithFields(logrus.Fields{
			"guild_id": c.GuildID,
			"case_id":  c.CaseID,
		}).WithError(err).Warn("Case notification failed")
	}
	return Delivery{Err: err}
}

// View returns a single case.
func (l *Ledger) View(ctx context.Context, guildID string, caseID int) (model.Case, error) {
	return l.store.Read(ctx, guildID, caseID)
}

// History returns every case of subjectID in the guild, oldest id first.
// Unreadable records are skipped and reported in the error.
func (l *Ledger) History(ctx context.Context, guildID, subjectID string) ([]model.Case, error) {
	records, err := l.store.List(ctx, guildID)
	var history []model.Case
	for _, c := range records {
		if c.SubjectID == subjectID {
			history = append(history, c)
		}
	}
	sort.Slice(history, func(i, j int) bool { return history[i].CaseID < history[j].CaseID })
	return history, err
}

// Edit changes one field of a stored case. Only model.EditableFields are
// accepted.
func (l *Ledger) Edit(ctx context.Context, guildID string, caseID int, field, value string) (model.Case, error) {
	c, err := l.store.Update(ctx, guildID, caseID, func(c *model.Case) error {
		return c.SetField(field, value)
	})
	if err != nil {
		return model.Case{}, err
	}
	l.log.WithFields(logrus.Fields{
		"guild_id": guildID,
		"case_id":  caseID,
		"field":    field,
	}).Info("Case edited")
	return c, nil
}

// Delete removes a case. Ids of other cases are left as they are.
func (l *Ledger) Delete(ctx context.Context, guildID string, caseID int) error {
	if err := l.store.Delete(ctx, guildID, caseID); err != nil {
		return err
	}
	l.log.WithFields(logrus.Fields{
		"guild_id": guildID,
		"case_id":  caseID,
	}).Info("Case deleted")
	return nil
}

// Stats counts the cases each moderator opened since the given time, based
// on the case timestamps. Cases whose timestamp no longer parses are skipped.
func (l *Ledger) Stats(ctx context.Context, guildID string, since time.Time) (map[string]int, error) {
	records, err := l.store.List(ctx, guildID)
	stats := make(map[string]int)
	for _, c := range records {
		created, perr := time.ParseInLocation(model.TimestampLayout, c.Timestamp, time.UTC)
		if perr != nil || created.Before(since.Truncate(time.Minute)) {
			continue
		}
		stats[c.ModeratorID]++
	}
	return stats, err
}
