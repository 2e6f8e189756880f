package defs

import (
	"modlog-bot/model"

	"github.com/bwmarrin/discordgo"
)

var moderatePermission int64 = discordgo.PermissionModerateMembers

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason",
		Required:    true,
	}
}

func caseIDOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "case_id",
		Description: description,
		Required:    true,
		MinValue:    &minCaseID,
	}
}

var minCaseID float64 = 1

var Warn = &discordgo.ApplicationCommand{
	Name:                     "warn",
	Description:              "Warn a user",
	DefaultMemberPermissions: &moderatePermission,
	Options:                  []*discordgo.ApplicationCommandOption{userOption("User to warn"), reasonOption()},
}

var Mute = &discordgo.ApplicationCommand{
	Name:                     "mute",
	Description:              "Timeout a user",
	DefaultMemberPermissions: &moderatePermission,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to mute"),
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "duration",
			Description: "Duration (e.g. 10m, 1h, 1d)",
			Required:    true,
		},
		reasonOption(),
	},
}

var Unmute = &discordgo.ApplicationCommand{
	Name:                     "unmute",
	Description:              "Remove timeout",
	DefaultMemberPermissions: &moderatePermission,
	Options:                  []*discordgo.ApplicationCommandOption{userOption("User to unmute"), reasonOption()},
}

var Kick = &discordgo.ApplicationCommand{
	Name:                     "kick",
	Description:              "Kick a user",
	DefaultMemberPermissions: &moderatePermission,
	Options:                  []*discordgo.ApplicationCommandOption{userOption("User to kick"), reasonOption()},
}

var Ban = &discordgo.ApplicationCommand{
	Name:                     "ban",
	Description:              "Ban a user",
	DefaultMemberPermissions: &moderatePermission,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to ban"),
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "duration",
			Description: "Duration (e.g. 1d, 1w) or perm",
			Required:    true,
		},
		reasonOption(),
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "appealable",
			Description: "Can the user appeal?",
			Required:    false,
		},
	},
}

var Unban = &discordgo.ApplicationCommand{
	Name:                     "unban",
	Description:              "Unban a user",
	DefaultMemberPermissions: &moderatePermission,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "user_id",
			Description: "User ID to unban",
			Required:    true,
		},
		reasonOption(),
	},
}

var Softban = &discordgo.ApplicationCommand{
	Name:                     "softban",
	Description:              "Ban and unban to delete messages",
	DefaultMemberPermissions: &moderatePermission,
	Options:                  []*discordgo.ApplicationCommandOption{userOption("User to softban"), reasonOption()},
}

var UserModeration = &discordgo.ApplicationCommand{
	Name:                     "user-moderation",
	Description:              "View moderation history of a user",
	DefaultMemberPermissions: &moderatePermission,
	Options:                  []*discordgo.ApplicationCommandOption{userOption("User to lookup")},
}

var ViewCase = &discordgo.ApplicationCommand{
	Name:                     "view-case",
	Description:              "View a specific case",
	DefaultMemberPermissions: &moderatePermission,
	Options:                  []*discordgo.ApplicationCommandOption{caseIDOption("Case number to view")},
}

var EditCase = &discordgo.ApplicationCommand{
	Name:                     "edit-case",
	Description:              "Edit a mod case",
	DefaultMemberPermissions: &moderatePermission,
	Options: []*discordgo.ApplicationCommandOption{
		caseIDOption("Case number"),
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "field",
			Description: "Field to edit",
			Required:    true,
			Choices:     fieldChoices(),
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "value",
			Description: "New value",
			Required:    true,
		},
	},
}

func fieldChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(model.EditableFields))
	for _, f := range model.EditableFields {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: f, Value: f})
	}
	return choices
}

var DeleteCase = &discordgo.ApplicationCommand{
	Name:                     "delete-case",
	Description:              "Delete a mod case",
	DefaultMemberPermissions: &moderatePermission,
	Options:                  []*discordgo.ApplicationCommandOption{caseIDOption("Case number to delete")},
}

var ModStats = &discordgo.ApplicationCommand{
	Name:                     "mod-stats",
	Description:              "Cases per moderator",
	DefaultMemberPermissions: &moderatePermission,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "window",
			Description: "Look back this far (e.g. 1d, 1w). Default 1d",
			Required:    false,
		},
	},
}

var ModlogStatus = &discordgo.ApplicationCommand{
	Name:                     "modlog-status",
	Description:              "Host and expiry scheduler status",
	DefaultMemberPermissions: &moderatePermission,
}
