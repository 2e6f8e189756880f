package utils

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// SendPrivateMessage sends a direct message to a user.
func SendPrivateMessage(s *discordgo.Session, userID, message string, options ...discordgo.RequestOption) error {
	channel, err := s.UserChannelCreate(userID, options...)
	if err != nil {
		return fmt.Errorf("creating private channel with user %s: %w", userID, err)
	}
	if _, err := s.ChannelMessageSend(channel.ID, message, options...); err != nil {
		return fmt.Errorf("sending private message to user %s: %w", userID, err)
	}
	return nil
}
