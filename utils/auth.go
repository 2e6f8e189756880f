package utils

import "github.com/bwmarrin/discordgo"

// contains checks if a slice of strings contains an element.
func contains(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// IsStaff reports whether the invoking member may use moderation commands:
// either they hold one of the staff roles or they are a guild administrator.
func IsStaff(member *discordgo.Member, staffRoleIDs []string) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, roleID := range member.Roles {
		if contains(staffRoleIDs, roleID) {
			return true
		}
	}
	return false
}
