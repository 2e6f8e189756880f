package commands

import (
	"modlog-bot/commands/defs"

	"github.com/bwmarrin/discordgo"
)

// GenerateCommands returns the commands registered in every guild.
func GenerateCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Warn,
		defs.Mute,
		defs.Unmute,
		defs.Kick,
		defs.Ban,
		defs.Unban,
		defs.Softban,
		defs.UserModeration,
		defs.ViewCase,
		defs.EditCase,
		defs.DeleteCase,
		defs.ModStats,
		defs.ModlogStatus,
	}
}
