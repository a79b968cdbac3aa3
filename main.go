package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/emberworks/emberbot/emberbot"
	"github.com/emberworks/emberbot/emberbot/achievements"
	"github.com/emberworks/emberbot/emberbot/commands"
	"github.com/emberworks/emberbot/emberbot/configcache"
	"github.com/emberworks/emberbot/emberbot/database"
	"github.com/emberworks/emberbot/emberbot/database/repositories"
	"github.com/emberworks/emberbot/emberbot/handlers"
	"github.com/emberworks/emberbot/emberbot/jobs"
	"github.com/emberworks/emberbot/emberbot/logger"
	"github.com/emberworks/emberbot/emberbot/rewards"
	"github.com/emberworks/emberbot/emberbot/utils"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler()))

	slog.Info("Starting Ember community bot",
		slog.String("type", "sys"),
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := emberbot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("type", "db"),
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	b := emberbot.New(*cfg, version, commit)
	b.DB = db
	b.UserRepo = repositories.NewUserRepository(db.BunDB())
	b.EventRepo = repositories.NewEventRepository(db.BunDB())
	b.AchievementRepo = repositories.NewAchievementRepository(db.BunDB())
	b.ConfigRepo = repositories.NewConfigRepository(db.BunDB())

	listener := configcache.NewListener(db.GetPool())
	b.Cache = configcache.New(b.ConfigRepo, listener)
	if err := b.Cache.Start(ctx); err != nil {
		slog.Error("Failed to start configuration cache", slog.Any("error", err))
		os.Exit(-1)
	}
	defer b.Cache.Stop()

	b.Tracker = rewards.NewTracker()
	b.Engine = achievements.NewEngine(b.AchievementRepo)
	b.Pipeline = rewards.NewPipeline(
		b.Cache, b.Tracker, b.Engine,
		b.EventRepo, b.UserRepo,
		cfg.Pipeline.Workers, cfg.Pipeline.StorageTimeout(),
	)

	gatewayHandler := handlers.NewGatewayHandler(b.Pipeline)

	b.Processes = utils.NewBackgroundProcessManager()
	reconcileEvery, retentionEvery, sweepEvery, rolloverEvery := cfg.Jobs.Intervals()

	reconciler := jobs.NewReconciler(b.EventRepo, b.Cache)
	b.Processes.StartPeriodic("reconciliation", "recomputes aggregate counters from the event lake",
		reconcileEvery, func(ctx context.Context) {
			if _, err := reconciler.Run(ctx); err != nil {
				slog.Error("Reconciliation run failed", slog.Any("error", err))
			}
		})

	retention := jobs.NewRetention(b.EventRepo, b.Cache)
	b.Processes.StartPeriodic("retention", "prunes aged lake rows in batches",
		retentionEvery, func(ctx context.Context) {
			if _, err := retention.Run(ctx); err != nil {
				slog.Error("Retention run failed", slog.Any("error", err))
			}
		})

	rollover := jobs.NewSeasonRollover(b.ConfigRepo, b.UserRepo, b.Cache)
	b.Processes.StartPeriodic("season-rollover", "resets seasonal stars when the season setting advances",
		rolloverEvery, func(ctx context.Context) {
			if _, err := rollover.Run(ctx); err != nil {
				slog.Error("Season rollover check failed", slog.Any("error", err))
			}
		})

	b.Processes.StartPeriodic("antigaming-sweep", "evicts expired anti-gaming windows",
		sweepEvery, func(ctx context.Context) {
			trackerCfg := rewards.ConfigFromSnapshot(b.Cache.Snapshot()).Tracker
			removed := b.Tracker.Sweep(time.Now(), trackerCfg)
			if removed > 0 {
				slog.Debug("Anti-gaming sweep complete",
					slog.String("type", "sys"),
					slog.Int("removed", removed))
			}
		})

	b.Processes.StartProcess("voice-ticker", "emits per-minute voice presence events",
		gatewayHandler.RunVoiceTicker)

	h := handler.New()
	h.Command("/award/xp", commands.AwardXPHandler(b))
	h.Command("/award/achievement", commands.AwardAchievementHandler(b))
	h.Command("/profile", commands.ProfileHandler(b))

	listeners := append(gatewayHandler.Listeners(), h, bot.NewListenerFunc(b.OnReady))
	if err = b.SetupBot(listeners...); err != nil {
		slog.Error("Failed to setup bot", slog.Any("error", err))
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands", slog.Any("error", err))
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s

	slog.Info("Shutting down...")
	if err := b.Processes.Shutdown(15 * time.Second); err != nil {
		slog.Warn("Background processes did not stop cleanly", slog.Any("error", err))
	}
}
