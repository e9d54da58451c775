// Package bot glues the gateway to the editing core: it registers the
// manage-embed command, routes each invocation into its own session, and
// closes every session on shutdown.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/embedforge/embedforge/internal/config"
	"github.com/embedforge/embedforge/internal/imagestore"
	"github.com/embedforge/embedforge/internal/intake"
	"github.com/embedforge/embedforge/internal/platform/discord"
	"github.com/embedforge/embedforge/internal/session"
	"github.com/embedforge/embedforge/internal/store"
)

const commandName = "manage-embed"

// Bot owns the gateway connection and the set of live edit sessions.
type Bot struct {
	logger  *slog.Logger
	gateway *discordgo.Session
	client  *discord.Client
	intake  *intake.Service
	images  *imagestore.Store
	embeds  store.EmbedStore
	cfg     config.Config

	removeHandler func()
	command       *discordgo.ApplicationCommand

	mu       sync.Mutex
	baseCtx  context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
}

func New(
	log *slog.Logger,
	gateway *discordgo.Session,
	client *discord.Client,
	intakeSvc *intake.Service,
	images *imagestore.Store,
	embeds store.EmbedStore,
	cfg config.Config,
) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		logger:  log.With(slog.String("service", "bot")),
		gateway: gateway,
		client:  client,
		intake:  intakeSvc,
		images:  images,
		embeds:  embeds,
		cfg:     cfg,
	}
}

// Start opens the gateway and registers the slash command. Registration is
// guild-scoped when guild_id is configured, global otherwise.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	b.baseCtx, b.cancel = context.WithCancel(context.Background())
	b.mu.Unlock()

	b.gateway.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	b.removeHandler = b.gateway.AddHandler(b.onInteraction)

	if err := b.gateway.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}

	appID := b.cfg.Discord.AppID
	if appID == "" && b.gateway.State != nil && b.gateway.State.User != nil {
		appID = b.gateway.State.User.ID
	}

	cmd, err := b.gateway.ApplicationCommandCreate(appID, b.cfg.Discord.GuildID, &discordgo.ApplicationCommand{
		Name:        commandName,
		Description: "Create, modify, or delete a stored embed",
	}, discordgo.WithContext(ctx))
	if err != nil {
		_ = b.gateway.Close()
		return fmt.Errorf("register %s command: %w", commandName, err)
	}
	b.command = cmd

	b.logger.Info("started",
		slog.String("command", commandName),
		slog.String("guild_id", b.cfg.Discord.GuildID),
	)
	return nil
}

// Stop closes every running session, removes the command, and shuts the
// gateway down. It waits for sessions until ctx runs out.
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("sessions still running at shutdown deadline")
	}

	if b.removeHandler != nil {
		b.removeHandler()
	}
	if b.command != nil {
		appID := b.command.ApplicationID
		if err := b.gateway.ApplicationCommandDelete(appID, b.cfg.Discord.GuildID, b.command.ID); err != nil {
			b.logger.Warn("deregister command", slog.Any("error", err))
		}
	}
	if err := b.gateway.Close(); err != nil {
		return fmt.Errorf("close gateway: %w", err)
	}
	b.logger.Info("stopped")
	return nil
}

func (b *Bot) onInteraction(_ *discordgo.Session, ev *discordgo.InteractionCreate) {
	if ev.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if ev.ApplicationCommandData().Name != commandName {
		return
	}

	i := discord.Wrap(ev)
	b.mu.Lock()
	baseCtx := b.baseCtx
	b.mu.Unlock()
	if baseCtx == nil || baseCtx.Err() != nil {
		return
	}

	b.sessions.Add(1)
	go func() {
		defer b.sessions.Done()
		if err := b.client.Notify(baseCtx, i, "Embed session opened."); err != nil {
			b.logger.Warn("acknowledge command", slog.Any("error", err))
		}

		s := session.New(
			b.logger,
			b.client,
			b.client,
			b.intake,
			b.images,
			b.embeds,
			session.Config{
				IdleTimeout:   b.cfg.Intake.SessionTimeout,
				PromptTimeout: b.cfg.Intake.AttemptTimeout,
			},
			i.ChannelID(),
			i.UserID(),
		)
		b.logger.Info("session opened",
			slog.String("user_id", i.UserID()),
			slog.String("channel_id", i.ChannelID()),
		)
		if err := s.Run(baseCtx); err != nil {
			b.logger.Error("session failed", slog.String("user_id", i.UserID()), slog.Any("error", err))
			return
		}
		b.logger.Info("session closed", slog.String("user_id", i.UserID()))
	}()
}
