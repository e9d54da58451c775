package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/embedforge/embedforge/internal/bot"
	"github.com/embedforge/embedforge/internal/config"
	"github.com/embedforge/embedforge/internal/handlers"
	"github.com/embedforge/embedforge/internal/imagestore"
	"github.com/embedforge/embedforge/internal/intake"
	"github.com/embedforge/embedforge/internal/janitor"
	"github.com/embedforge/embedforge/internal/logger"
	"github.com/embedforge/embedforge/internal/platform/discord"
	"github.com/embedforge/embedforge/internal/server"
	"github.com/embedforge/embedforge/internal/store"
	"github.com/embedforge/embedforge/internal/store/providers/memory"
	"github.com/embedforge/embedforge/internal/store/providers/postgres"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideImageStore,
			provideEmbedStore,
			provideGateway,
			discord.NewClient,
			provideDownloader,
			provideIntakeService,
			provideBot,
			provideJanitor,
			handlers.NewPingHandler,
			handlers.NewEmbedsHandler,
			provideServer,
		),
		fx.Invoke(
			startBot,
			startJanitor,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	return logger.New(cfg.Log)
}

func provideImageStore(log *slog.Logger, cfg config.Config) (*imagestore.Store, error) {
	return imagestore.New(log, cfg.Data.Root)
}

func provideEmbedStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (store.EmbedStore, error) {
	if !cfg.Postgres.Enabled {
		log.Warn("postgres disabled, embeds are stored in memory only")
		return memory.New(), nil
	}
	pg, err := postgres.New(context.Background(), log, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { pg.Close(); return nil },
	})
	return pg, nil
}

func provideGateway(cfg config.Config) (*discordgo.Session, error) {
	gateway, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return gateway, nil
}

func provideDownloader() *discord.Downloader {
	return discord.NewDownloader()
}

func provideIntakeService(log *slog.Logger, client *discord.Client, downloader *discord.Downloader, images *imagestore.Store, cfg config.Config) *intake.Service {
	return intake.NewService(log, client, client, downloader, images, intake.Config{
		AttemptTimeout: cfg.Intake.AttemptTimeout,
		SessionTimeout: cfg.Intake.SessionTimeout,
		MaxImageBytes:  cfg.Intake.MaxImageBytes,
	})
}

func provideBot(log *slog.Logger, gateway *discordgo.Session, client *discord.Client, intakeSvc *intake.Service, images *imagestore.Store, embeds store.EmbedStore, cfg config.Config) *bot.Bot {
	return bot.New(log, gateway, client, intakeSvc, images, embeds, cfg)
}

func provideJanitor(log *slog.Logger, images *imagestore.Store, cfg config.Config) *janitor.Janitor {
	return janitor.New(log, images, cfg.Janitor.Schedule, cfg.Janitor.MaxAge)
}

func provideServer(cfg config.Config, pingHandler *handlers.PingHandler, embedsHandler *handlers.EmbedsHandler) *server.Server {
	return server.NewServer(cfg.Admin.Addr, cfg.Admin.Token, pingHandler, embedsHandler)
}

func startBot(lc fx.Lifecycle, b *bot.Bot) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return b.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return b.Stop(ctx) },
	})
}

func startJanitor(lc fx.Lifecycle, j *janitor.Janitor) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return j.Start() },
		OnStop:  func(context.Context) error { j.Stop(); return nil },
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	if !cfg.Admin.Enabled {
		log.Info("admin api disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("admin server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server stop: %w", err)
			}
			return nil
		},
	})
}
