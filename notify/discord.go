package notify

import (
	"context"
	"fmt"

	"modlog-bot/model"
	"modlog-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// Discord posts case events to each guild's mod-log channel and tells the
// punished user by DM.
type Discord struct {
	session     *discordgo.Session
	channelName string
	log         logrus.FieldLogger
}

func NewDiscord(s *discordgo.Session, channelName string) *Discord {
	return &Discord{session: s, channelName: channelName, log: utils.Log}
}

// Notify never fails because of the DM; users with closed DMs are normal.
func (d *Discord) Notify(ctx context.Context, event model.CaseEvent) error {
	if d.session == nil {
		return nil
	}
	c := event.Case
	withCtx := discordgo.WithContext(ctx)
	log := d.log.WithFields(logrus.Fields{"guild_id": c.GuildID, "case_id": c.CaseID})

	if event.Kind == model.EventRecorded {
		if err := utils.SendPrivateMessage(d.session, c.SubjectID, SubjectMessage(c), withCtx); err != nil {
			log.WithError(err).Debug("Could not DM punished user")
		}
	}

	channelID, err := d.modLogChannel(c.GuildID, withCtx)
	if err != nil {
		return err
	}
	if channelID == "" {
		log.Debugf("No #%s channel, skipping mod-log entry", d.channelName)
		return nil
	}

	switch event.Kind {
	case model.EventRecorded:
		_, err = d.session.ChannelMessageSendEmbed(channelID, CaseEmbed(c), withCtx)
	case model.EventExpired:
		_, err = d.session.ChannelMessageSend(channelID, ExpiryMessage(c), withCtx)
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}
	if err != nil {
		return fmt.Errorf("posting to mod-log in guild %s: %w", c.GuildID, err)
	}
	return nil
}

// modLogChannel returns "" when the guild has no channel of that name.
func (d *Discord) modLogChannel(guildID string, options ...discordgo.RequestOption) (string, error) {
	var channels []*discordgo.Channel
	if d.session.State != nil {
		if g, err := d.session.State.Guild(guildID); err == nil {
			channels = g.Channels
		}
	}
	if channels == nil {
		var err error
		channels, err = d.session.GuildChannels(guildID, options...)
		if err != nil {
			return "", fmt.Errorf("listing channels of guild %s: %w", guildID, err)
		}
	}
	return findTextChannel(channels, d.channelName), nil
}

func findTextChannel(channels []*discordgo.Channel, name string) string {
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == name {
			return ch.ID
		}
	}
	return ""
}

// CaseEmbed is the mod-log entry for a freshly recorded case.
func CaseEmbed(c model.Case) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Member", Value: fmt.Sprintf("<@%s> (%s)", c.SubjectID, c.SubjectID), Inline: true},
		{Name: "Moderator", Value: fmt.Sprintf("<@%s> (%s)", c.ModeratorID, c.ModeratorID), Inline: true},
		{Name: "Duration", Value: c.Duration, Inline: true},
		{Name: "Reason", Value: c.Reason, Inline: true},
	}
	if c.Appealable != "" && c.Appealable != model.NotApplicable {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Appealable", Value: c.Appealable, Inline: true})
	}
	return &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("%s | Case #%d", c.Action, c.CaseID),
		Color:  utils.ColorOrange,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{Text: c.Timestamp},
	}
}

// SubjectMessage is the DM the punished user receives.
func SubjectMessage(c model.Case) string {
	return fmt.Sprintf("Dear <@%s>, you have been **%s** for **%s**.\nDuration: **%s**\nCase No: **#%d**. Contact staff if needed.",
		c.SubjectID, c.Action, c.Reason, c.Duration, c.CaseID)
}

// ExpiryMessage announces an automatic reversal.
func ExpiryMessage(c model.Case) string {
	switch c.Action {
	case model.ActionUnbanned:
		return fmt.Sprintf("✅ User <@%s> was automatically unbanned. Case updated.", c.SubjectID)
	case model.ActionUnmuted:
		return fmt.Sprintf("✅ <@%s> was automatically unmuted. Case updated.", c.SubjectID)
	default:
		return fmt.Sprintf("✅ Case #%d for <@%s> is now %s.", c.CaseID, c.SubjectID, c.Action)
	}
}
