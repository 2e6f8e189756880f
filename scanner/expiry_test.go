package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"modlog-bot/model"
	"modlog-bot/moderation"
	"modlog-bot/utils"
	"modlog-bot/utils/database/cases"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEnforcer struct {
	mock.Mock
}

func (m *mockEnforcer) Unban(ctx context.Context, guildID, userID string) error {
	return m.Called(guildID, userID).Error(0)
}

func (m *mockEnforcer) Unmute(ctx context.Context, guildID, userID string) error {
	return m.Called(guildID, userID).Error(0)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.CaseEvent
}

func (n *recordingNotifier) Notify(ctx context.Context, event model.CaseEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var epoch = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) cases.Store {
	t.Helper()
	store, err := cases.OpenFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func newSweeper(store cases.Store, clk *clock, opts ...SweeperOption) *Sweeper {
	opts = append([]SweeperOption{
		WithClock(clk.Now),
		WithLogger(utils.DiscardLogger()),
	}, opts...)
	return NewSweeper(store, opts...)
}

func putCase(t *testing.T, store cases.Store, guildID string, caseID int, action model.Action, end *time.Time) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), model.Case{
		GuildID:     guildID,
		CaseID:      caseID,
		Action:      action,
		ModeratorID: "7",
		SubjectID:   "42",
		Reason:      "test",
		Duration:    model.NotApplicable,
		Appealable:  model.NotApplicable,
		Timestamp:   epoch.Format(model.TimestampLayout),
		EndTime:     end,
	}))
}

func actionOf(t *testing.T, store cases.Store, guildID string, caseID int) model.Action {
	t.Helper()
	c, err := store.Read(context.Background(), guildID, caseID)
	require.NoError(t, err)
	return c.Action
}

func at(t time.Time) *time.Time { return &t }

func TestSweep_ReversesExpiredMuteOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	clk := &clock{now: epoch}
	putCase(t, store, "1", 1, model.ActionMuted, at(epoch.Add(-time.Minute)))

	enforcer := &mockEnforcer{}
	enforcer.On("Unmute", "1", "42").Return(nil)
	notifier := &recordingNotifier{}
	sweeper := newSweeper(store, clk, WithNotifier(notifier))

	stats := sweeper.Sweep(ctx, MuteExpiry(enforcer))
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 1, stats.Reversed)
	assert.Equal(t, model.ActionUnmuted, actionOf(t, store, "1", 1))

	stats = sweeper.Sweep(ctx, MuteExpiry(enforcer))
	assert.Zero(t, stats.Expired, "a reversed case is terminal")
	enforcer.AssertNumberOfCalls(t, "Unmute", 1)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, model.EventExpired, notifier.events[0].Kind)
	assert.Equal(t, model.ActionUnmuted, notifier.events[0].Case.Action)
}

func TestSweep_LeavesUnexpiredAndOtherCasesAlone(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	clk := &clock{now: epoch}

	putCase(t, store, "1", 1, model.ActionBanned, at(epoch.Add(time.Hour))) // future
	putCase(t, store, "1", 2, model.ActionBanned, at(epoch))                 // exactly now
	putCase(t, store, "1", 3, model.ActionBanned, nil)                       // permanent
	putCase(t, store, "1", 4, model.ActionWarned, at(epoch.Add(-time.Hour))) // not a ban
	putCase(t, store, "1", 5, model.ActionMuted, at(epoch.Add(-time.Hour)))  // other rule

	enforcer := &mockEnforcer{}
	stats := newSweeper(store, clk).Sweep(ctx, BanExpiry(enforcer))

	assert.Equal(t, 5, stats.Scanned)
	assert.Zero(t, stats.Expired)
	enforcer.AssertNotCalled(t, "Unban", mock.Anything, mock.Anything)
	assert.Equal(t, model.ActionBanned, actionOf(t, store, "1", 1))
	assert.Equal(t, model.ActionBanned, actionOf(t, store, "1", 2))
	assert.Equal(t, model.ActionMuted, actionOf(t, store, "1", 5))
}

func TestSweep_EnforcementFailureLeavesCasePending(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	clk := &clock{now: epoch}
	putCase(t, store, "1", 1, model.ActionBanned, at(epoch.Add(-time.Minute)))

	enforcer := &mockEnforcer{}
	enforcer.On("Unban", "1", "42").Return(errors.New("missing permissions")).Once()
	enforcer.On("Unban", "1", "42").Return(nil).Once()
	sweeper := newSweeper(store, clk)

	stats := sweeper.Sweep(ctx, BanExpiry(enforcer))
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Errors, 1)
	var enfErr *EnforcementError
	assert.ErrorAs(t, stats.Errors[0], &enfErr)
	assert.Equal(t, model.ActionBanned, actionOf(t, store, "1", 1))

	stats = sweeper.Sweep(ctx, BanExpiry(enforcer))
	assert.Equal(t, 1, stats.Reversed)
	assert.Equal(t, model.ActionUnbanned, actionOf(t, store, "1", 1))
	enforcer.AssertExpectations(t)
}

func TestSweep_SubjectNotFoundIsRetried(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	clk := &clock{now: epoch}
	putCase(t, store, "1", 1, model.ActionMuted, at(epoch.Add(-time.Minute)))

	enforcer := &mockEnforcer{}
	enforcer.On("Unmute", "1", "42").Return(model.ErrSubjectNotFound)

	stats := newSweeper(store, clk).Sweep(ctx, MuteExpiry(enforcer))
	assert.Equal(t, 1, stats.Failed)
	assert.ErrorIs(t, stats.Errors[0], model.ErrSubjectNotFound)
	assert.Equal(t, model.ActionMuted, actionOf(t, store, "1", 1))
}

func TestSweep_OneFailureDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	clk := &clock{now: epoch}
	past := at(epoch.Add(-time.Minute))
	putCase(t, store, "1", 1, model.ActionBanned, past)
	putCase(t, store, "1", 2, model.ActionBanned, past)
	putCase(t, store, "2", 1, model.ActionBanned, past)

	calls := 0
	rule := Rule{
		Name:     "unban",
		Active:   model.ActionBanned,
		Reversed: model.ActionUnbanned,
		Reverse: func(ctx context.Context, guildID, userID string) error {
			calls++
			if guildID == "1" && calls == 1 {
				panic("gateway exploded")
			}
			return nil
		},
	}

	stats := newSweeper(store, clk).Sweep(ctx, rule)
	assert.Equal(t, 2, stats.Guilds)
	assert.Equal(t, 3, stats.Expired)
	assert.Equal(t, 2, stats.Reversed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, model.ActionBanned, actionOf(t, store, "1", 1))
	assert.Equal(t, model.ActionUnbanned, actionOf(t, store, "1", 2))
	assert.Equal(t, model.ActionUnbanned, actionOf(t, store, "2", 1))
}

func TestSweep_StuckCallTimesOut(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	clk := &clock{now: epoch}
	past := at(epoch.Add(-time.Minute))
	putCase(t, store, "1", 1, model.ActionMuted, past)
	putCase(t, store, "1", 2, model.ActionMuted, past)

	release := make(chan struct{})
	defer close(release)
	var first atomic.Bool
	first.Store(true)
	stuck := Rule{
		Name:     "unmute",
		Active:   model.ActionMuted,
		Reversed: model.ActionUnmuted,
		Reverse: func(ctx context.Context, guildID, userID string) error {
			if first.CompareAndSwap(true, false) {
				<-release // ignores ctx, like a hung HTTP call
			}
			return nil
		},
	}

	start := time.Now()
	stats := newSweeper(store, clk, WithEnforceTimeout(20*time.Millisecond)).Sweep(ctx, stuck)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, stats.Failed)
	assert.ErrorIs(t, stats.Errors[0], context.DeadlineExceeded)
	assert.Equal(t, 1, stats.Reversed)
	assert.Equal(t, model.ActionUnmuted, actionOf(t, store, "1", 2))
}

func TestExpiryScheduler_TickRunsBothRules(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	clk := &clock{now: epoch}
	past := at(epoch.Add(-time.Minute))
	putCase(t, store, "1", 1, model.ActionBanned, past)
	putCase(t, store, "1", 2, model.ActionMuted, past)

	enforcer := &mockEnforcer{}
	enforcer.On("Unban", "1", "42").Return(nil).Once()
	enforcer.On("Unmute", "1", "42").Return(nil).Once()

	sched := NewExpiryScheduler(newSweeper(store, clk), time.Minute, BanExpiry(enforcer), MuteExpiry(enforcer))
	assert.Nil(t, sched.LastRun())

	stats := sched.Tick(ctx)
	require.Len(t, stats, 2)
	assert.Equal(t, "unban", stats[0].Rule)
	assert.Equal(t, 1, stats[0].Reversed)
	assert.Equal(t, "unmute", stats[1].Rule)
	assert.Equal(t, 1, stats[1].Reversed)
	assert.Equal(t, stats, sched.LastRun())
	enforcer.AssertExpectations(t)
}

func TestExpiryScheduler_StartTicksImmediatelyAndStops(t *testing.T) {
	store := newStore(t)
	clk := &clock{now: epoch}
	putCase(t, store, "1", 1, model.ActionMuted, at(epoch.Add(-time.Minute)))

	enforcer := &mockEnforcer{}
	enforcer.On("Unmute", "1", "42").Return(nil)

	sched := NewExpiryScheduler(newSweeper(store, clk), time.Hour, MuteExpiry(enforcer))
	sched.Start(context.Background())
	assert.Eventually(t, func() bool {
		return len(sched.LastRun()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	sched.Stop()

	assert.Equal(t, model.ActionUnmuted, actionOf(t, store, "1", 1))
}

// Recording a one-hour mute, moving past its end and ticking once flips the
// case to Unmuted with exactly one Unmute call.
func TestScenario_MuteRecordedThenExpired(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	clk := &clock{now: epoch}
	ledger := moderation.NewLedger(store, nil,
		moderation.WithClock(clk.Now),
		moderation.WithLogger(utils.DiscardLogger()))

	d, err := utils.ParseDuration("1h")
	require.NoError(t, err)
	entry, err := ledger.Record(ctx, moderation.Request{
		GuildID: "1", SubjectID: "42", ModeratorID: "7",
		Action: model.ActionMuted, Reason: "spam", Duration: d,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Case.CaseID)
	assert.Equal(t, "1 Hour(s)", entry.Case.Duration)
	require.NotNil(t, entry.Case.EndTime)
	assert.True(t, entry.Case.EndTime.Equal(epoch.Add(time.Hour)))

	enforcer := &mockEnforcer{}
	enforcer.On("Unmute", "1", "42").Return(nil)
	sched := NewExpiryScheduler(newSweeper(store, clk), time.Minute, BanExpiry(enforcer), MuteExpiry(enforcer))

	sched.Tick(ctx)
	enforcer.AssertNotCalled(t, "Unmute", "1", "42")

	clk.Advance(time.Hour + time.Second)
	sched.Tick(ctx)
	sched.Tick(ctx)

	assert.Equal(t, model.ActionUnmuted, actionOf(t, store, "1", 1))
	enforcer.AssertNumberOfCalls(t, "Unmute", 1)
	enforcer.AssertNotCalled(t, "Unban", mock.Anything, mock.Anything)
}

func TestSweep_LiftsLegacyCaseFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := cases.OpenFileStore(root)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "1", "case_1.json"), []byte(`{
    "action": "Banned",
    "moderator": 111,
    "member": 222,
    "reason": "raid",
    "duration": "1 Day(s)",
    "appealable": "yes",
    "timestamp": "10/15/2026 11:00 AM",
    "end_time": "2026-10-16T11:00:00.500000"
}`), 0644))

	enforcer := &mockEnforcer{}
	enforcer.On("Unban", "1", "222").Return(nil).Once()

	stats := newSweeper(store, &clock{now: epoch}).Sweep(ctx, BanExpiry(enforcer))
	assert.Empty(t, stats.Errors)
	assert.Equal(t, 1, stats.Reversed)
	assert.Equal(t, model.ActionUnbanned, actionOf(t, store, "1", 1))
	enforcer.AssertExpectations(t)
}

func TestExpiryScheduler_StartTwiceRunsOneLoop(t *testing.T) {
	store := newStore(t)
	clk := &clock{now: epoch}

	var ticks atomic.Int32
	sched := NewExpiryScheduler(newSweeper(store, clk), time.Hour, MuteExpiry(&mockEnforcer{}))
	sched.OnTick(func([]SweepStats) { ticks.Add(1) })

	sched.Start(context.Background())
	sched.Start(context.Background())
	assert.Eventually(t, func() bool { return ticks.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	sched.Stop()

	assert.Equal(t, int32(1), ticks.Load(), "a second Start must not add a ticker loop")

	// Stopped schedulers can be started again.
	sched.Start(context.Background())
	assert.Eventually(t, func() bool { return ticks.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	sched.Stop()
}

func TestExpiryScheduler_OnTickReceivesStats(t *testing.T) {
	store := newStore(t)
	clk := &clock{now: epoch}
	putCase(t, store, "1", 1, model.ActionMuted, at(epoch.Add(-time.Minute)))

	enforcer := &mockEnforcer{}
	enforcer.On("Unmute", "1", "42").Return(errors.New("missing permissions"))

	var got []SweepStats
	sched := NewExpiryScheduler(newSweeper(store, clk), time.Minute, MuteExpiry(enforcer))
	sched.OnTick(func(stats []SweepStats) { got = stats })

	sched.Tick(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "unmute", got[0].Rule)
	assert.Equal(t, 1, got[0].Failed)
}
