package bot

import (
	"context"
	"fmt"

	"modlog-bot/utils"
)

// Run connects to Discord and keeps the expiry scheduler running until ctx
// ends. Commands are registered per guild as GuildCreate events arrive.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("opening connection: %w", err)
	}

	b.scheduler.Start(ctx)

	utils.Log.Info("Bot is now running. Press CTRL-C to exit.")
	if err := utils.LogInfo(b.Session, b.Config.LogChannelID, "System", "Startup", "Bot has started successfully."); err != nil {
		utils.Log.WithError(err).Warn("Failed to send startup log")
	}
	<-ctx.Done()
	return nil
}
