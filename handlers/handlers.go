package handlers

import (
	"fmt"
	"runtime/debug"

	"modlog-bot/bot"
	"modlog-bot/handlers/punish"
	"modlog-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

func Register(b *bot.Bot) {
	h := punish.NewHandler(b.Ledger, b.Enforcer, b.Config.EnforceTimeout)
	b.CommandHandlers = commandHandlers(b, h)
	addHandlers(b, h)
}

func commandHandlers(b *bot.Bot, h *punish.Handler) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"warn":            h.Warn,
		"mute":            h.Mute,
		"unmute":          h.Unmute,
		"kick":            h.Kick,
		"ban":             h.Ban,
		"unban":           h.Unban,
		"softban":         h.Softban,
		"user-moderation": h.UserModeration,
		"view-case":       h.ViewCase,
		"edit-case":       h.EditCase,
		"delete-case":     h.DeleteCase,
		"mod-stats":       h.ModStats,
		"modlog-status": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			SystemInfoHandler(s, i, b)
		},
	}
}

func addHandlers(b *bot.Bot, h *punish.Handler) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		utils.Log.Infof("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})
	b.Session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		// Fires for every guild on connect and again on each new join.
		if g.Unavailable {
			return
		}
		b.RefreshCommands(g.ID)
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			dispatch(b, s, i)
		case discordgo.InteractionMessageComponent:
			if !utils.IsStaff(i.Member, b.Config.StaffRoleIDs) {
				utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
				return
			}
			h.HistoryPageButton(s, i)
		}
	})
}

func dispatch(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	h, ok := b.CommandHandlers[name]
	if !ok {
		return
	}
	if i.GuildID == "" {
		utils.SendErrorResponse(s, i, "This command can only be used in a server.")
		return
	}
	if !utils.IsStaff(i.Member, b.Config.StaffRoleIDs) {
		utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			utils.Log.WithFields(logrus.Fields{
				"command":  name,
				"guild_id": i.GuildID,
			}).Errorf("Command handler panicked: %v\n%s", r, debug.Stack())
			if err := utils.LogError(s, b.Config.LogChannelID, "Commands", name, fmt.Sprintf("panic: %v", r)); err != nil {
				utils.Log.WithError(err).Warn("Failed to send log channel message")
			}
		}
	}()
	h(s, i)
}
