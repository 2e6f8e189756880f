package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"modlog-bot/model"

	"github.com/bwmarrin/discordgo"
)

// Enforcer carries out punishments through the Discord REST API.
type Enforcer struct {
	session *discordgo.Session
}

func NewEnforcer(s *discordgo.Session) *Enforcer {
	return &Enforcer{session: s}
}

// apiCode returns the Discord JSON error code carried by err, or 0.
func apiCode(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code
	}
	return 0
}

// Ban bans userID and removes deleteDays of their messages.
func (e *Enforcer) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	if err := e.session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("banning %s in guild %s: %w", userID, guildID, err)
	}
	return nil
}

// Unban lifts a ban. A ban that no longer exists counts as lifted.
func (e *Enforcer) Unban(ctx context.Context, guildID, userID string) error {
	err := e.session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))
	if err == nil || apiCode(err) == discordgo.ErrCodeUnknownBan {
		return nil
	}
	return fmt.Errorf("unbanning %s in guild %s: %w", userID, guildID, err)
}

func (e *Enforcer) Kick(ctx context.Context, guildID, userID, reason string) error {
	if err := e.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx)); err != nil {
		if apiCode(err) == discordgo.ErrCodeUnknownMember {
			return model.ErrSubjectNotFound
		}
		return fmt.Errorf("kicking %s in guild %s: %w", userID, guildID, err)
	}
	return nil
}

// Mute puts the member in timeout until the given time.
func (e *Enforcer) Mute(ctx context.Context, guildID, userID string, until time.Time) error {
	if err := e.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx)); err != nil {
		if apiCode(err) == discordgo.ErrCodeUnknownMember {
			return model.ErrSubjectNotFound
		}
		return fmt.Errorf("muting %s in guild %s: %w", userID, guildID, err)
	}
	return nil
}

// Unmute clears the member's timeout. A member who left the guild cannot
// be unmuted; the caller gets ErrSubjectNotFound and may retry later.
func (e *Enforcer) Unmute(ctx context.Context, guildID, userID string) error {
	if err := e.session.GuildMemberTimeout(guildID, userID, nil, discordgo.WithContext(ctx)); err != nil {
		if apiCode(err) == discordgo.ErrCodeUnknownMember {
			return model.ErrSubjectNotFound
		}
		return fmt.Errorf("unmuting %s in guild %s: %w", userID, guildID, err)
	}
	return nil
}
