package punish

import (
	"fmt"
	"time"

	"modlog-bot/model"
	"modlog-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// historyPageSize keeps a history page well under Discord's 25 field limit.
const historyPageSize = 10

// historyPrefix is the custom ID prefix of the history page buttons.
const historyPrefix = "history"

// HistoryPage renders one page of a member's cases, oldest first, and the
// buttons to move between pages.
func HistoryPage(userID, userLabel string, history []model.Case, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	start, end, pages := utils.PageBounds(len(history), historyPageSize, page)
	page = start/historyPageSize + 1

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Moderation History for %s", userLabel),
		Color: utils.ColorBlue,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d・%d cases", page, pages, len(history)),
		},
	}
	for _, c := range history[start:end] {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Case %d", c.CaseID),
			Value: fmt.Sprintf("**%s** - %s - %s", c.Action, c.Reason, c.Timestamp),
		})
	}
	return embed, utils.CreatePaginationComponents(page, pages, historyPrefix, userID)
}

// CaseEmbed shows every stored field of a case.
func CaseEmbed(c model.Case) *discordgo.MessageEmbed {
	field := func(name, value string) *discordgo.MessageEmbedField {
		if value == "" {
			value = model.NotApplicable
		}
		return &discordgo.MessageEmbedField{Name: name, Value: value}
	}
	fields := []*discordgo.MessageEmbedField{
		field("Action", string(c.Action)),
		field("Moderator", c.ModeratorID),
		field("Member", c.SubjectID),
		field("Reason", c.Reason),
		field("Duration", c.Duration),
		field("Appealable", c.Appealable),
		field("Timestamp", c.Timestamp),
	}
	if c.EndTime != nil {
		fields = append(fields, field("End_time", c.EndTime.UTC().Format(time.RFC3339)))
	}
	return &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("📁 Case #%d", c.CaseID),
		Color:  utils.ColorBlue,
		Fields: fields,
	}
}
