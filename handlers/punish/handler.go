package punish

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"modlog-bot/model"
	"modlog-bot/moderation"
	"modlog-bot/tasks"
	"modlog-bot/utils"
	"modlog-bot/utils/database/cases"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// defaultStatsWindow is the mod-stats window when none is given.
const defaultStatsWindow = 24 * time.Hour

// Handler turns slash command interactions into ledger and enforcement
// calls.
type Handler struct {
	actions *Actions
	ledger  *moderation.Ledger
	timeout time.Duration
}

func NewHandler(ledger *moderation.Ledger, punisher Punisher, timeout time.Duration) *Handler {
	return &Handler{actions: NewActions(ledger, punisher), ledger: ledger, timeout: timeout}
}

type actionFunc func(ctx context.Context, inv Invocation, opts optionMap) (string, error)

// runAction defers the response, runs fn and edits in the outcome.
func (h *Handler) runAction(s *discordgo.Session, i *discordgo.InteractionCreate, verb, userOption string, fn actionFunc) {
	opts := parseOptions(i)
	inv := Invocation{GuildID: i.GuildID, ModeratorID: invoker(i).ID, UserID: opts.UserID(userOption)}
	if userOption == "user_id" {
		inv.UserID = opts.String(userOption)
		if _, err := strconv.ParseUint(inv.UserID, 10, 64); err != nil {
			utils.SendErrorResponse(s, i, "Invalid user ID.")
			return
		}
	}

	if err := utils.DeferResponse(s, i, false); err != nil {
		utils.Log.WithError(err).Error("Failed to defer interaction")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	reply, err := fn(ctx, inv, opts)
	if err != nil {
		utils.Log.WithFields(logrus.Fields{
			"guild_id":     inv.GuildID,
			"user_id":      inv.UserID,
			"moderator_id": inv.ModeratorID,
			"command":      verb,
		}).WithError(err).Warn("Moderation command failed")
		if errors.Is(err, ErrInvalidDuration) {
			utils.SendFollowUpError(s, i.Interaction, "Invalid duration format.")
			return
		}
		utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("Failed to %s: %v", verb, err))
		return
	}
	utils.SendFollowUp(s, i.Interaction, reply)
}

func (h *Handler) Warn(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.runAction(s, i, "warn", "user", func(ctx context.Context, inv Invocation, o optionMap) (string, error) {
		return h.actions.Warn(ctx, inv, o.String("reason"))
	})
}

func (h *Handler) Mute(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.runAction(s, i, "mute", "user", func(ctx context.Context, inv Invocation, o optionMap) (string, error) {
		return h.actions.Mute(ctx, inv, o.String("duration"), o.String("reason"))
	})
}

func (h *Handler) Unmute(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.runAction(s, i, "unmute", "user", func(ctx context.Context, inv Invocation, o optionMap) (string, error) {
		return h.actions.Unmute(ctx, inv, o.String("reason"))
	})
}

func (h *Handler) Kick(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.runAction(s, i, "kick", "user", func(ctx context.Context, inv Invocation, o optionMap) (string, error) {
		return h.actions.Kick(ctx, inv, o.String("reason"))
	})
}

func (h *Handler) Ban(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.runAction(s, i, "ban", "user", func(ctx context.Context, inv Invocation, o optionMap) (string, error) {
		return h.actions.Ban(ctx, inv, o.String("duration"), o.String("reason"), o.String("appealable"))
	})
}

func (h *Handler) Unban(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.runAction(s, i, "unban", "user_id", func(ctx context.Context, inv Invocation, o optionMap) (string, error) {
		return h.actions.Unban(ctx, inv, o.String("reason"))
	})
}

func (h *Handler) Softban(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.runAction(s, i, "softban", "user", func(ctx context.Context, inv Invocation, o optionMap) (string, error) {
		return h.actions.Softban(ctx, inv, o.String("reason"))
	})
}

func (h *Handler) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.timeout)
}

// UserModeration shows the first page of a member's case history.
func (h *Handler) UserModeration(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := resolvedUser(i, parseOptions(i).UserID("user"))
	label := user.Username
	if label == "" {
		label = user.ID
	}

	history, err := h.history(i.GuildID, user.ID)
	if len(history) == 0 {
		if err != nil {
			utils.SendErrorResponse(s, i, "Failed to load cases.")
			return
		}
		utils.SendErrorResponse(s, i, "No moderation cases found for this user.")
		return
	}

	embed, components := HistoryPage(user.ID, label, history, 1)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
	if err != nil {
		utils.Log.WithError(err).Error("Error sending history")
	}
}

// HistoryPageButton handles the Previous/Next buttons of a history
// message. It reports false if the component is not one of them.
func (h *Handler) HistoryPageButton(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	page, args, ok := utils.ParsePaginationID(i.MessageComponentData().CustomID, historyPrefix)
	if !ok || len(args) != 1 {
		return false
	}
	userID := args[0]

	history, err := h.history(i.GuildID, userID)
	if len(history) == 0 && err != nil {
		utils.SendErrorResponse(s, i, "Failed to load cases.")
		return true
	}

	label := userID
	if i.Message != nil && len(i.Message.Embeds) > 0 {
		label = strings.TrimPrefix(i.Message.Embeds[0].Title, "Moderation History for ")
	}
	embed, components := HistoryPage(userID, label, history, page)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
	if err != nil {
		utils.Log.WithError(err).Error("Error updating history page")
	}
	return true
}

// history loads a member's cases. A partial list is still returned when
// some records could not be read.
func (h *Handler) history(guildID, userID string) ([]model.Case, error) {
	ctx, cancel := h.context()
	defer cancel()
	history, err := h.ledger.History(ctx, guildID, userID)
	if err != nil {
		utils.Log.WithField("guild_id", guildID).WithError(err).Warn("Some cases could not be read")
	}
	return history, err
}

func (h *Handler) ViewCase(s *discordgo.Session, i *discordgo.InteractionCreate) {
	caseID := parseOptions(i).Int("case_id")

	ctx, cancel := h.context()
	defer cancel()
	c, err := h.ledger.View(ctx, i.GuildID, caseID)
	if err != nil {
		if !errors.Is(err, cases.ErrNotFound) {
			utils.Log.WithField("guild_id", i.GuildID).WithError(err).Error("Failed to load case")
		}
		utils.SendErrorResponse(s, i, "Failed to load case.")
		return
	}
	utils.SendEmbedResponse(s, i, true, CaseEmbed(c))
}

func (h *Handler) EditCase(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := parseOptions(i)
	caseID := opts.Int("case_id")

	ctx, cancel := h.context()
	defer cancel()
	if _, err := h.ledger.Edit(ctx, i.GuildID, caseID, opts.String("field"), opts.String("value")); err != nil {
		utils.Log.WithField("guild_id", i.GuildID).WithField("case_id", caseID).WithError(err).Warn("Case edit rejected")
		utils.SendErrorResponse(s, i, fmt.Sprintf("Failed to edit case: %v", err))
		return
	}
	utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ Case #%d updated.", caseID))
}

func (h *Handler) DeleteCase(s *discordgo.Session, i *discordgo.InteractionCreate) {
	caseID := parseOptions(i).Int("case_id")

	ctx, cancel := h.context()
	defer cancel()
	if err := h.ledger.Delete(ctx, i.GuildID, caseID); err != nil {
		utils.SendErrorResponse(s, i, "Failed to delete case.")
		return
	}
	utils.SendSimpleResponse(s, i, fmt.Sprintf("🗑️ Case #%d deleted.", caseID))
}

// ModStats ranks moderators by cases opened in the requested window.
func (h *Handler) ModStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	window := defaultStatsWindow
	if raw := parseOptions(i).String("window"); raw != "" {
		d, err := utils.ParseDuration(raw)
		if err != nil || d <= 0 {
			utils.SendErrorResponse(s, i, "Invalid duration format.")
			return
		}
		window = d
	}

	ctx, cancel := h.context()
	defer cancel()
	embed, err := tasks.GenerateModStatsEmbed(ctx, h.ledger, i.GuildID, window, time.Now().UTC())
	if err != nil {
		utils.Log.WithField("guild_id", i.GuildID).WithError(err).Error("Failed to build moderator stats")
		utils.SendErrorResponse(s, i, "Failed to load moderator stats.")
		return
	}
	utils.SendEmbedResponse(s, i, true, embed)
}
