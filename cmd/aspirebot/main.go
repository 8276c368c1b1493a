package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"aspirebot/internal/access"
	"aspirebot/internal/backend"
	"aspirebot/internal/cache"
	"aspirebot/internal/chat/telegram"
	"aspirebot/internal/cli"
	"aspirebot/internal/config"
	"aspirebot/internal/conversation"
	"aspirebot/internal/core"
	applog "aspirebot/internal/log"
	"aspirebot/internal/ratelimit"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "aspirebot",
	Short: "Telegram bot that records transactions in an Aspire budget sheet",
	Long: `aspirebot walks a Telegram user through filling in a transaction
(date, outflow, inflow, category, account, memo) and appends it as a row
to the Transactions sheet of an Aspire budget spreadsheet.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Load .env file for local development (ignore errors in production/docker)
		cli.LoadEnvFile()
	},
	RunE: runBot,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./config.toml or ~/.config/aspirebot/config.toml)")
	rootCmd.AddCommand(newCatalogCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBot(_ *cobra.Command, _ []string) error {
	cfg, err := cli.LoadAndValidateConfig(cfgFile, false)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.Log, applog.ComponentApp)
	logger.Info("Starting aspirebot",
		"mode", cfg.Telegram.Mode,
		"backend", cfg.Backend.Type,
		"restrict_access", cfg.Telegram.RestrictAccess)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(startCtx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	catalog, err := conversation.LoadCatalog(startCtx, res.Backend)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("Catalog loaded",
		"groups", len(catalog.Categories.Groups()),
		"categories", catalog.Categories.Len(),
		"accounts", len(catalog.Accounts))

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	logger.Info("Authorized on Telegram", "bot", bot.Self.UserName)

	machine := conversation.NewMachine(catalog, telegram.NewTransport(bot), res.Backend, conversation.Options{
		Currency: core.NewCurrency(cfg.Bot.CurrencySymbol),
		Location: loc,
		Logger:   logger.WithComponent(applog.ComponentConversation),
	})

	sessions := cache.NewLRUCache[int64, conversation.Session](cfg.Bot.MaxSessions, cfg.Bot.SessionTTL)
	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	cacheManager.Register(sessions)
	cacheManager.StartCleanup(5 * time.Minute)

	opts := []conversation.DispatcherOption{
		conversation.WithPolicy(access.New(cfg.Telegram.RestrictAccess, cfg.Telegram.Users)),
		conversation.WithLogger(logger.WithComponent(applog.ComponentDispatch)),
	}
	var limiter *ratelimit.Limiter
	if cfg.Bot.RateLimitPerMinute > 0 {
		limiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.Bot.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		})
		opts = append(opts, conversation.WithRateLimiter(limiter))
	}
	dispatcher := conversation.NewDispatcher(machine, sessions, opts...)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func() {
		cacheManager.Stop()
		if limiter != nil {
			limiter.Stop()
		}
	})

	tgLogger := logger.WithComponent(applog.ComponentTelegram).Logger
	switch cfg.Telegram.Mode {
	case config.ModeWebhook:
		server, err := telegram.NewWebhookServer(bot, cfg.Telegram.WebhookURL, cfg.Telegram.ListenAddr, dispatcher, tgLogger)
		if err != nil {
			return err
		}
		err = server.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	default:
		// Drop a webhook left over from a previous deployment; polling fails while one is set.
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn("Failed to delete webhook", "error", err)
		}
		err := telegram.NewPoller(bot, dispatcher, cfg.Telegram.PollTimeout, tgLogger).Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	cli.WaitForShutdown(ctx, done)
	return nil
}
