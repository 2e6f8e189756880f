package punish

import (
	"context"
	"errors"
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

type mockPunisher struct {
	mock.Mock
}

func (m *mockPunisher) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	return m.Called(guildID, userID, reason, deleteDays).Error(0)
}

func (m *mockPunisher) Unban(ctx context.Context, guildID, userID string) error {
	return m.Called(guildID, userID).Error(0)
}

func (m *mockPunisher) Kick(ctx context.Context, guildID, userID, reason string) error {
	return m.Called(guildID, userID, reason).Error(0)
}

func (m *mockPunisher) Mute(ctx context.Context, guildID, userID string, until time.Time) error {
	return m.Called(guildID, userID, until).Error(0)
}

func (m *mockPunisher) Unmute(ctx context.Context, guildID, userID string) error {
	return m.Called(guildID, userID).Error(0)
}

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

var inv = Invocation{GuildID: "1", ModeratorID: "7", UserID: "42"}

func setup(t *testing.T) (*Actions, *mockPunisher, cases.Store) {
	t.Helper()
	store, err := cases.OpenFileStore(t.TempDir())
	require.NoError(t, err)
	ledger := moderation.NewLedger(store, nil,
		moderation.WithClock(func() time.Time { return fixedNow }),
		moderation.WithLogger(utils.DiscardLogger()))
	p := &mockPunisher{}
	a := NewActions(ledger, p)
	a.now = func() time.Time { return fixedNow }
	return a, p, store
}

func readCase(t *testing.T, store cases.Store, id int) model.Case {
	t.Helper()
	c, err := store.Read(context.Background(), "1", id)
	require.NoError(t, err)
	return c
}

func TestParseBanDuration(t *testing.T) {
	for _, perm := range []string{"perm", "PERM", "Permanent", " permanent "} {
		d, err := ParseBanDuration(perm)
		require.NoError(t, err, perm)
		assert.Zero(t, d)
	}
	d, err := ParseBanDuration("1d")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, d)

	for _, bad := range []string{"", "forever", "0d", "1y"} {
		_, err := ParseBanDuration(bad)
		assert.ErrorIs(t, err, ErrInvalidDuration, bad)
	}
}

func TestActions_Warn(t *testing.T) {
	a, p, store := setup(t)

	reply, err := a.Warn(context.Background(), inv, "spam")
	require.NoError(t, err)
	assert.Equal(t, "✅ <@42> has been warned. (Case #1)", reply)

	c := readCase(t, store, 1)
	assert.Equal(t, model.ActionWarned, c.Action)
	assert.Nil(t, c.EndTime)
	p.AssertExpectations(t)
}

func TestActions_MuteEnforcesThenRecords(t *testing.T) {
	a, p, store := setup(t)
	p.On("Mute", "1", "42", fixedNow.Add(time.Hour)).Return(nil)

	reply, err := a.Mute(context.Background(), inv, "1h", "spam")
	require.NoError(t, err)
	assert.Equal(t, "🔇 <@42> muted for 1 Hour(s) (Case #1)", reply)

	c := readCase(t, store, 1)
	assert.Equal(t, model.ActionMuted, c.Action)
	assert.Equal(t, "1 Hour(s)", c.Duration)
	require.NotNil(t, c.EndTime)
	assert.True(t, c.EndTime.Equal(fixedNow.Add(time.Hour)))
	p.AssertExpectations(t)
}

func TestActions_MuteRejectsBadDurations(t *testing.T) {
	a, p, store := setup(t)

	_, err := a.Mute(context.Background(), inv, "soon", "spam")
	assert.ErrorIs(t, err, ErrInvalidDuration)
	_, err = a.Mute(context.Background(), inv, "0m", "spam")
	assert.ErrorIs(t, err, ErrInvalidDuration)
	_, err = a.Mute(context.Background(), inv, "5w", "spam")
	assert.ErrorIs(t, err, ErrTimeoutTooLong)

	p.AssertNotCalled(t, "Mute", mock.Anything, mock.Anything, mock.Anything)
	n, err := store.NextID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "nothing recorded")
}

func TestActions_EnforcementFailureRecordsNothing(t *testing.T) {
	a, p, store := setup(t)
	p.On("Kick", "1", "42", "spam").Return(model.ErrSubjectNotFound)

	_, err := a.Kick(context.Background(), inv, "spam")
	assert.ErrorIs(t, err, model.ErrSubjectNotFound)

	_, err = store.Read(context.Background(), "1", 1)
	assert.ErrorIs(t, err, cases.ErrNotFound)
}

func TestActions_BanTemporaryAndPermanent(t *testing.T) {
	a, p, store := setup(t)
	p.On("Ban", "1", "42", "raid", 0).Return(nil)

	_, err := a.Ban(context.Background(), inv, "1w", "raid", "Yes")
	require.NoError(t, err)
	_, err = a.Ban(context.Background(), inv, "perm", "raid", "")
	require.NoError(t, err)

	temp := readCase(t, store, 1)
	assert.Equal(t, "1 Week(s)", temp.Duration)
	assert.Equal(t, "Yes", temp.Appealable)
	require.NotNil(t, temp.EndTime)
	assert.True(t, temp.EndTime.Equal(fixedNow.Add(7*24*time.Hour)))

	perm := readCase(t, store, 2)
	assert.Equal(t, model.NotApplicable, perm.Duration)
	assert.Equal(t, model.NotApplicable, perm.Appealable)
	assert.Nil(t, perm.EndTime)
}

func TestActions_Softban(t *testing.T) {
	a, p, store := setup(t)
	p.On("Ban", "1", "42", "spam", softbanDeleteDays).Return(nil)
	p.On("Unban", "1", "42").Return(nil)

	reply, err := a.Softban(context.Background(), inv, "spam")
	require.NoError(t, err)
	assert.Equal(t, "🚫 <@42> was softbanned. (Case #1)", reply)
	assert.Equal(t, model.ActionSoftbanned, readCase(t, store, 1).Action)
	p.AssertExpectations(t)
}

func TestActions_SoftbanUnbanFails(t *testing.T) {
	a, p, store := setup(t)
	p.On("Ban", "1", "42", "spam", softbanDeleteDays).Return(nil)
	p.On("Unban", "1", "42").Return(errors.New("rate limited"))

	_, err := a.Softban(context.Background(), inv, "spam")
	assert.ErrorContains(t, err, "lift the ban by hand")
	_, err = store.Read(context.Background(), "1", 1)
	assert.ErrorIs(t, err, cases.ErrNotFound)
}

func TestActions_UnmuteAndUnban(t *testing.T) {
	a, p, store := setup(t)
	p.On("Unmute", "1", "42").Return(nil)
	p.On("Unban", "1", "42").Return(nil)

	_, err := a.Unmute(context.Background(), inv, "served")
	require.NoError(t, err)
	_, err = a.Unban(context.Background(), inv, "appeal")
	require.NoError(t, err)

	assert.Equal(t, model.ActionUnmuted, readCase(t, store, 1).Action)
	assert.Equal(t, model.ActionUnbanned, readCase(t, store, 2).Action)
}

func TestActions_BusyMember(t *testing.T) {
	a, _, _ := setup(t)
	busy := Invocation{GuildID: "1", ModeratorID: "7", UserID: "busy"}
	require.True(t, utils.AcquireActionLock(busy.GuildID, busy.UserID))
	defer utils.ReleaseActionLock(busy.GuildID, busy.UserID)

	_, err := a.Warn(context.Background(), busy, "spam")
	assert.ErrorIs(t, err, ErrBusy)
}
