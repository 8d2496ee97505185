package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/snaprelay/snaprelay/internal/channel"
	"github.com/snaprelay/snaprelay/internal/channel/discord"
	"github.com/snaprelay/snaprelay/internal/config"
	"github.com/snaprelay/snaprelay/internal/gyazo"
	"github.com/snaprelay/snaprelay/internal/handlers"
	"github.com/snaprelay/snaprelay/internal/logger"
	"github.com/snaprelay/snaprelay/internal/relay"
	"github.com/snaprelay/snaprelay/internal/server"
	"github.com/snaprelay/snaprelay/internal/transfer"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDownloader,
			provideGyazoClient,
			provideDiscordAdapter,
			provideRelayService,
			provideServer,
		),
		fx.Invoke(
			startBridge,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDownloader(log *slog.Logger, cfg config.Config) *transfer.Downloader {
	return transfer.NewDownloader(log, cfg.Staging.Timeout(), cfg.Staging.MaxBytes)
}

func provideGyazoClient(log *slog.Logger, cfg config.Config) *gyazo.Client {
	return gyazo.NewClient(log, cfg.Gyazo.UploadURL, cfg.Gyazo.AccessToken, cfg.Gyazo.Timeout())
}

func provideDiscordAdapter(log *slog.Logger, cfg config.Config) (*discord.Adapter, error) {
	return discord.NewAdapter(log, cfg.Discord.BotToken)
}

func provideRelayService(log *slog.Logger, cfg config.Config, downloader *transfer.Downloader, client *gyazo.Client, adapter *discord.Adapter) *relay.Service {
	opts := relay.Options{
		StagingDir:      cfg.Staging.Dir,
		TargetChannelID: cfg.Discord.ChannelID,
	}
	return relay.NewService(log, opts, downloader, client, adapter)
}

func provideServer(log *slog.Logger, cfg config.Config) *server.Server {
	return server.New(log, cfg.Server.Addr, handlers.NewPingHandler(log))
}

func startBridge(lc fx.Lifecycle, log *slog.Logger, adapter *discord.Adapter, svc *relay.Service) {
	ctx, cancel := context.WithCancel(context.Background())
	var conn channel.Connection
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			c, err := adapter.Connect(ctx, svc.HandleMessage)
			if err != nil {
				cancel()
				return err
			}
			conn = c
			log.Info("bridge started")
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if conn == nil {
				return nil
			}
			return conn.Stop(stopCtx)
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
