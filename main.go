package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giveaway-bot/internal/actions"
	"giveaway-bot/internal/config"
	"giveaway-bot/internal/giveaway"
	"giveaway-bot/internal/locales"
	"giveaway-bot/internal/monitor"
	"giveaway-bot/internal/notify"
	"giveaway-bot/internal/state"
	"giveaway-bot/internal/twitter"

	sentry "github.com/getsentry/sentry-go"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:   "giveaway-bot",
		Usage:  "enter low-competition giveaways found on the X timeline",
		Action: runBot,
		Flags:  runFlags,
	}
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "poll the timeline and participate in eligible giveaways",
			Flags:  runFlags,
			Action: runBot,
		},
		{
			Name:   "check-auth",
			Usage:  "verify the configured credentials and exit",
			Action: runCheckAuth,
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

var runFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "once",
		Usage: "run a single polling cycle and exit",
	},
	&cli.BoolFlag{
		Name:    "dry-run",
		Usage:   "evaluate posts and log decisions without liking, retweeting or replying",
		EnvVars: []string{"DRY_RUN"},
	},
}

func runBot(cctx *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cctx.Bool("dry-run") {
		cfg.DryRun = true
	}

	logger, closeLog, err := configLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	if err := locales.Init(cfg.Language); err != nil {
		return fmt.Errorf("failed to load locales: %w", err)
	}
	localizer := locales.NewLocalizer(cfg.Language)

	if err := initSentry(cfg); err != nil {
		return err
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := twitter.NewClient(credentials(cfg), cfg.APIBaseURL)
	me, err := client.Me(ctx)
	if err != nil {
		sentry.CaptureException(err)
		return fmt.Errorf("authentication failed: %w", err)
	}
	logger.Info("authenticated", "username", me.Username, "user_id", me.ID)

	filter, err := giveaway.NewFilter(cfg.EngagementThreshold)
	if err != nil {
		return err
	}

	executor, err := actions.NewExecutor(client, actions.Settings{
		TaggedUsers: cfg.TaggedUsers,
		Templates:   cfg.ReplyTemplates,
		Delay:       cfg.ActionDelay,
		Backoff:     cfg.RateLimitBackoff,
		Seed:        cfg.RandomSeed,
		DryRun:      cfg.DryRun,
		Localizer:   localizer,
	}, logger)
	if err != nil {
		return err
	}

	marker := state.NewMarker(cfg.SinceIDFile)
	if _, err := marker.Load(); err != nil {
		logger.Warn("ignoring unreadable marker, starting from the newest posts", "error", err)
	}

	notifier, err := newNotifier(ctx, cfg, localizer, logger)
	if err != nil {
		return err
	}

	loop := monitor.NewLoop(
		client,
		filter,
		executor,
		state.NewDailyCounter(cfg.MaxDailyEntries, nil),
		marker,
		notifier,
		monitor.Settings{
			Query:            cfg.SearchQuery,
			PerFetch:         cfg.TweetsPerFetch,
			PollInterval:     cfg.PollInterval,
			RateLimitBackoff: cfg.RateLimitBackoff,
		},
		logger,
	)

	if cctx.Bool("once") {
		stats, err := loop.RunOnce(ctx)
		if err != nil {
			return err
		}
		logger.Info("single cycle complete", "fetched", stats.Fetched, "eligible", stats.Eligible, "entered", stats.Entered)
		return nil
	}

	if cfg.DryRun {
		logger.Warn("dry run enabled, no actions will be performed")
	}
	if err := loop.Run(ctx); err != nil {
		return err
	}
	logger.Info("bot shutdown complete")
	return nil
}

func runCheckAuth(cctx *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	for _, w := range cfg.Warnings {
		log.Printf("Warning: %s", w)
	}

	client := twitter.NewClient(credentials(cfg), cfg.APIBaseURL)
	me, err := client.Me(cctx.Context)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	fmt.Printf("Authenticated as @%s (%s)\n", me.Username, me.Name)
	fmt.Printf("Followers: %d, following: %d\n", me.FollowersCount, me.FollowingCount)

	if cfg.NotificationsEnabled() {
		bot, err := notify.NewTelegramBot(cfg.TelegramBotToken)
		if err != nil {
			return err
		}
		tgMe, err := notify.NewTelegram(bot, cfg.TelegramChatID, nil, nil).Check(cctx.Context)
		if err != nil {
			return err
		}
		fmt.Printf("Telegram notifier: @%s\n", tgMe.Username)
	}
	return nil
}

func credentials(cfg *config.Config) twitter.Credentials {
	return twitter.Credentials{
		APIKey:            cfg.APIKey,
		APISecret:         cfg.APISecret,
		AccessToken:       cfg.AccessToken,
		AccessTokenSecret: cfg.AccessTokenSecret,
		BearerToken:       cfg.BearerToken,
	}
}

func initSentry(cfg *config.Config) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	return nil
}

func newNotifier(ctx context.Context, cfg *config.Config, localizer *i18n.Localizer, logger *slog.Logger) (notify.Notifier, error) {
	if !cfg.NotificationsEnabled() {
		return notify.Nop{}, nil
	}
	bot, err := notify.NewTelegramBot(cfg.TelegramBotToken)
	if err != nil {
		sentry.CaptureException(err)
		return nil, err
	}
	tg := notify.NewTelegram(bot, cfg.TelegramChatID, localizer, logger)
	if me, err := tg.Check(ctx); err != nil {
		logger.Warn("telegram check failed, notifications may not be delivered", "error", err)
	} else {
		logger.Info("telegram notifications enabled", "bot", me.Username, "chat_id", cfg.TelegramChatID)
	}
	return tg, nil
}
