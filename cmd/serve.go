package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/moyoez/batchshare/api"
	"github.com/moyoez/batchshare/api/notifyhub"
	"github.com/moyoez/batchshare/bot"
	"github.com/moyoez/batchshare/notify"
	"github.com/moyoez/batchshare/session"
	"github.com/moyoez/batchshare/storage"
	"github.com/moyoez/batchshare/subscription"
	"github.com/moyoez/batchshare/tool"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the local HTTP API",
		Example: `  # Run with ./config.yaml
  batchshare serve

  # Production logging, custom config
  batchshare serve --log prod --config /etc/batchshare/config.yaml`,
	}
	cfg := tool.BindFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		tool.InitLogger()
		tool.SetLogMode(cfg.Log)

		appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
		if err != nil {
			return err
		}
		if cfg.UseHTTPAddr != "" {
			appCfg.HTTPAddr = cfg.UseHTTPAddr
		}
		if len(appCfg.AdminIDs) == 0 {
			tool.DefaultLogger.Warn("No admin ids configured, nobody can create batches")
		}

		db, err := storage.Connect(appCfg.DatabaseDSN)
		if err != nil {
			return err
		}
		repo := storage.NewCachedRepository(storage.NewRepository(db), storage.DefaultCacheTTL)

		ctx := cmd.Context()
		sessions := session.NewStore()
		ids, err := repo.ListIDs(ctx)
		if err != nil {
			return err
		}
		sessions.Reserve(ids...)
		tool.DefaultLogger.Infof("Loaded %d existing batch ids", len(ids))

		hub := notifyhub.New()
		socketPath := appCfg.NotifySocket
		if cfg.SkipNotify {
			socketPath = ""
		}
		notifier := notify.New(hub, socketPath)

		tg, err := bot.NewTelegram(appCfg.BotToken, appCfg.DBChannelID, appCfg.RateLimitPerSec, appCfg.PollTimeout)
		if err != nil {
			return err
		}
		gate := subscription.NewGate(tg, appCfg.ForceSubChannels)
		dispatcher := bot.NewDispatcher(tg, sessions, repo, gate, notifier, bot.Options{
			Admins:        appCfg.AdminIDs,
			BotName:       appCfg.BotName,
			Version:       appCfg.Version,
			ChannelLink:   appCfg.ChannelLink,
			DeveloperLink: appCfg.DeveloperLink,
		})

		apiServer := api.NewServer(appCfg.HTTPAddr, repo, sessions, hub, tg.BotUsername)
		serverErr := make(chan error, 1)
		go func() {
			if err := apiServer.Start(); err != nil {
				serverErr <- err
			}
		}()

		botErr := make(chan error, 1)
		go func() {
			botErr <- tg.Run(ctx, dispatcher.Handle)
		}()
		tool.DefaultLogger.Infof("%s is running", appCfg.BotName)

		select {
		case <-ctx.Done():
		case err = <-serverErr:
			tool.DefaultLogger.Errorf("API server failed: %v", err)
		case err = <-botErr:
			if err != nil {
				tool.DefaultLogger.Errorf("Update loop failed: %v", err)
			}
		}

		tool.DefaultLogger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := apiServer.Shutdown(shutdownCtx); shutdownErr != nil {
			tool.DefaultLogger.Errorf("Server shutdown failed: %v", shutdownErr)
		}
		return err
	}

	return cmd
}
