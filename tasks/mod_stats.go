package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"modlog-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// StatsSource counts cases per moderator since a point in time.
type StatsSource interface {
	Stats(ctx context.Context, guildID string, since time.Time) (map[string]int, error)
}

// GenerateModStatsEmbed ranks moderators by the cases they opened in the
// window ending at now. Counts that come back alongside a read error are
// still shown, with a footer saying they may be incomplete.
func GenerateModStatsEmbed(ctx context.Context, src StatsSource, guildID string, window time.Duration, now time.Time) (*discordgo.MessageEmbed, error) {
	stats, err := src.Stats(ctx, guildID, now.Add(-window))
	if err != nil && stats == nil {
		return nil, fmt.Errorf("failed to get moderator stats for guild %s: %w", guildID, err)
	}
	var footer *discordgo.MessageEmbedFooter
	if err != nil {
		utils.Log.WithError(err).WithField("guild_id", guildID).Warn("Moderator stats built from partially readable cases")
		footer = &discordgo.MessageEmbedFooter{Text: "Some cases could not be read; counts may be incomplete."}
	}

	total := 0
	moderators := make([]string, 0, len(stats))
	for id, n := range stats {
		moderators = append(moderators, id)
		total += n
	}
	sort.Slice(moderators, func(i, j int) bool {
		if stats[moderators[i]] != stats[moderators[j]] {
			return stats[moderators[i]] > stats[moderators[j]]
		}
		return moderators[i] < moderators[j]
	})

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("### Cases in the last %s\n", utils.FormatDuration(window)))
	builder.WriteString(fmt.Sprintf("**Total: %d**\n\n", total))
	if len(moderators) == 0 {
		builder.WriteString("No cases in this window.")
	}
	for i, id := range moderators {
		builder.WriteString(fmt.Sprintf("%d. <@%s>: %d\n", i+1, id, stats[id]))
	}

	return &discordgo.MessageEmbed{
		Title:       "Moderator Stats",
		Description: builder.String(),
		Timestamp:   now.Format(time.RFC3339),
		Color:       utils.ColorGreen,
		Footer:      footer,
	}, nil
}
