package emberbot

import (
	"context"
	"time"

	"log/slog"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"

	"github.com/emberworks/emberbot/emberbot/achievements"
	"github.com/emberworks/emberbot/emberbot/configcache"
	"github.com/emberworks/emberbot/emberbot/database"
	"github.com/emberworks/emberbot/emberbot/database/repositories"
	"github.com/emberworks/emberbot/emberbot/rewards"
	"github.com/emberworks/emberbot/emberbot/utils"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

type Bot struct {
	Cfg     Config
	Client  bot.Client
	Version string
	Commit  string

	DB              *database.DB
	UserRepo        *repositories.UserRepository
	EventRepo       *repositories.EventRepository
	AchievementRepo *repositories.AchievementRepository
	ConfigRepo      *repositories.ConfigRepository

	Cache     *configcache.Cache
	Tracker   *rewards.Tracker
	Engine    *achievements.Engine
	Pipeline  *rewards.Pipeline
	Processes *utils.BackgroundProcessManager
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(
			gateway.IntentGuilds,
			gateway.IntentGuildMessages,
			gateway.IntentGuildMessageReactions,
			gateway.IntentGuildVoiceStates,
			gateway.IntentGuildMembers,
			gateway.IntentMessageContent,
		)),
		bot.WithCacheConfigOpts(cache.WithCaches(
			cache.FlagGuilds,
			cache.FlagChannels,
			cache.FlagMessages,
		)),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Ember is now ready",
		slog.String("type", "sys"),
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("the community grow"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}
