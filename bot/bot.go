package bot

import (
	"context"
	"fmt"

	"modlog-bot/commands"
	"modlog-bot/metrics"
	"modlog-bot/model"
	"modlog-bot/moderation"
	"modlog-bot/notify"
	"modlog-bot/scanner"
	"modlog-bot/utils"
	"modlog-bot/utils/database/cases"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Bot struct {
	Session            *discordgo.Session
	Config             *model.Config
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	Store    cases.Store
	Ledger   *moderation.Ledger
	Enforcer *Enforcer
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	scheduler *Scheduler
	redis     *notify.Redis
}

func New(ctx context.Context, cfg *model.Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	store, err := cases.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening case store: %w", err)
	}
	alloc, err := cases.NewAllocator(cfg.CaseIDAllocation, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	b := &Bot{
		Session:  dg,
		Config:   cfg,
		Store:    store,
		Enforcer: NewEnforcer(dg),
		Metrics:  m,
		Registry: reg,
	}

	notifiers := notify.Multi{notify.NewDiscord(dg, cfg.ModLogChannelName)}
	if cfg.RedisURL != "" {
		b.redis, err = notify.DialRedis(ctx, cfg.RedisURL, cfg.RedisChannel)
		if err != nil {
			store.Close()
			return nil, err
		}
		notifiers = append(notifiers, b.redis)
	}

	b.Ledger = moderation.NewLedger(store, notifiers,
		moderation.WithAllocator(alloc),
		moderation.WithMetrics(m),
	)
	b.scheduler = NewScheduler(b, notifiers)
	return b, nil
}

// LastSweep returns the stats of the most recent expiry tick.
func (b *Bot) LastSweep() []scanner.SweepStats {
	return b.scheduler.expiry.LastRun()
}

func (b *Bot) Close() {
	utils.Log.Info("Gracefully shutting down.")
	b.scheduler.Stop()

	if err := b.Session.Close(); err != nil {
		utils.Log.WithError(err).Warn("Error closing Discord session")
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			utils.Log.WithError(err).Warn("Error closing redis client")
		}
	}
	if err := b.Store.Close(); err != nil {
		utils.Log.WithError(err).Warn("Error closing case store")
	}
}

// RefreshCommands overwrites the moderation commands of one guild.
func (b *Bot) RefreshCommands(guildID string) {
	cmds := commands.GenerateCommands()
	utils.Log.WithField("guild_id", guildID).Infof("Registering %d commands", len(cmds))
	if _, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, guildID, cmds); err != nil {
		utils.Log.WithField("guild_id", guildID).WithError(err).Error("Cannot update commands")
	}
}
