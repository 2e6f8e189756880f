// Package punish implements the moderation slash commands. Each action
// is enforced on Discord first and recorded as a case only if that worked.
package punish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"modlog-bot/model"
	"modlog-bot/moderation"
	"modlog-bot/utils"
)

// maxTimeout is the longest timeout Discord accepts.
const maxTimeout = 28 * 24 * time.Hour

// softbanDeleteDays is how much message history a softban removes.
const softbanDeleteDays = 1

var (
	ErrInvalidDuration = errors.New("invalid duration format")
	ErrTimeoutTooLong  = errors.New("timeouts are limited to 4 Week(s)")
	ErrBusy            = errors.New("another moderator is acting on this member")
)

// Punisher applies actions on the chat platform.
type Punisher interface {
	Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	Unban(ctx context.Context, guildID, userID string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	Mute(ctx context.Context, guildID, userID string, until time.Time) error
	Unmute(ctx context.Context, guildID, userID string) error
}

// Invocation identifies who acts on whom and where.
type Invocation struct {
	GuildID     string
	ModeratorID string
	UserID      string
}

// Actions runs the moderation commands against a ledger.
type Actions struct {
	ledger   *moderation.Ledger
	punisher Punisher
	now      func() time.Time
}

func NewActions(ledger *moderation.Ledger, punisher Punisher) *Actions {
	return &Actions{ledger: ledger, punisher: punisher, now: time.Now}
}

// ParseBanDuration accepts a duration token or perm/permanent. Zero means
// permanent.
func ParseBanDuration(s string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "perm", "permanent":
		return 0, nil
	}
	d, err := utils.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, ErrInvalidDuration
	}
	return d, nil
}

func parseMuteDuration(s string) (time.Duration, error) {
	d, err := utils.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, ErrInvalidDuration
	}
	if d > maxTimeout {
		return 0, ErrTimeoutTooLong
	}
	return d, nil
}

// record runs detached from ctx's deadline: once the platform action went
// through, its case must be written.
func (a *Actions) record(ctx context.Context, inv Invocation, action model.Action, reason string, d time.Duration, appealable string) (string, error) {
	entry, err := a.ledger.Record(context.WithoutCancel(ctx), moderation.Request{
		GuildID:     inv.GuildID,
		SubjectID:   inv.UserID,
		ModeratorID: inv.ModeratorID,
		Action:      action,
		Reason:      reason,
		Duration:    d,
		Appealable:  appealable,
	})
	if err != nil {
		return "", fmt.Errorf("action applied but the case could not be saved: %w", err)
	}
	suffix := fmt.Sprintf(" (Case #%d)", entry.Case.CaseID)
	if !entry.Notification.Delivered() {
		suffix += " ⚠️ mod-log notification failed"
	}
	return suffix, nil
}

// locked runs fn while holding the per-member action lock.
func locked(inv Invocation, fn func() (string, error)) (string, error) {
	if !utils.AcquireActionLock(inv.GuildID, inv.UserID) {
		return "", ErrBusy
	}
	defer utils.ReleaseActionLock(inv.GuildID, inv.UserID)
	return fn()
}

func (a *Actions) Warn(ctx context.Context, inv Invocation, reason string) (string, error) {
	return locked(inv, func() (string, error) {
		suffix, err := a.record(ctx, inv, model.ActionWarned, reason, 0, "")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ <@%s> has been warned.%s", inv.UserID, suffix), nil
	})
}

func (a *Actions) Mute(ctx context.Context, inv Invocation, duration, reason string) (string, error) {
	d, err := parseMuteDuration(duration)
	if err != nil {
		return "", err
	}
	return locked(inv, func() (string, error) {
		if err := a.punisher.Mute(ctx, inv.GuildID, inv.UserID, a.now().Add(d)); err != nil {
			return "", err
		}
		suffix, err := a.record(ctx, inv, model.ActionMuted, reason, d, "")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("🔇 <@%s> muted for %s%s", inv.UserID, utils.FormatDuration(d), suffix), nil
	})
}

func (a *Actions) Unmute(ctx context.Context, inv Invocation, reason string) (string, error) {
	return locked(inv, func() (string, error) {
		if err := a.punisher.Unmute(ctx, inv.GuildID, inv.UserID); err != nil {
			return "", err
		}
		suffix, err := a.record(ctx, inv, model.ActionUnmuted, reason, 0, "")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ <@%s> has been unmuted.%s", inv.UserID, suffix), nil
	})
}

func (a *Actions) Kick(ctx context.Context, inv Invocation, reason string) (string, error) {
	return locked(inv, func() (string, error) {
		if err := a.punisher.Kick(ctx, inv.GuildID, inv.UserID, reason); err != nil {
			return "", err
		}
		suffix, err := a.record(ctx, inv, model.ActionKicked, reason, 0, "")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("👢 <@%s> has been kicked.%s", inv.UserID, suffix), nil
	})
}

// Ban records a permanent ban when duration is perm/permanent, otherwise a
// temporary one the expiry sweep will lift.
func (a *Actions) Ban(ctx context.Context, inv Invocation, duration, reason, appealable string) (string, error) {
	d, err := ParseBanDuration(duration)
	if err != nil {
		return "", err
	}
	return locked(inv, func() (string, error) {
		if err := a.punisher.Ban(ctx, inv.GuildID, inv.UserID, reason, 0); err != nil {
			return "", err
		}
		suffix, err := a.record(ctx, inv, model.ActionBanned, reason, d, appealable)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("🔨 <@%s> has been banned.%s", inv.UserID, suffix), nil
	})
}

func (a *Actions) Unban(ctx context.Context, inv Invocation, reason string) (string, error) {
	return locked(inv, func() (string, error) {
		if err := a.punisher.Unban(ctx, inv.GuildID, inv.UserID); err != nil {
			return "", err
		}
		suffix, err := a.record(ctx, inv, model.ActionUnbanned, reason, 0, "")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ <@%s> has been unbanned.%s", inv.UserID, suffix), nil
	})
}

// Softban bans to purge recent messages and lifts the ban right away.
func (a *Actions) Softban(ctx context.Context, inv Invocation, reason string) (string, error) {
	return locked(inv, func() (string, error) {
		if err := a.punisher.Ban(ctx, inv.GuildID, inv.UserID, reason, softbanDeleteDays); err != nil {
			return "", err
		}
		if err := a.punisher.Unban(ctx, inv.GuildID, inv.UserID); err != nil {
			return "", fmt.Errorf("banned but not unbanned, lift the ban by hand: %w", err)
		}
		suffix, err := a.record(ctx, inv, model.ActionSoftbanned, reason, 0, "")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("🚫 <@%s> was softbanned.%s", inv.UserID, suffix), nil
	})
}
