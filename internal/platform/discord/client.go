// Package discord binds the platform interfaces to discordgo. One Client
// serves every session; waits are implemented with removable gateway
// handlers bridged onto channels.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bwmarrin/discordgo"

	"github.com/embedforge/embedforge/internal/embed"
	"github.com/embedforge/embedforge/internal/platform"
)

// Client implements platform.Messenger and platform.Prompter on a shared
// gateway session.
type Client struct {
	logger  *slog.Logger
	session *discordgo.Session
}

func NewClient(log *slog.Logger, session *discordgo.Session) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		logger:  log.With(slog.String("adapter", "discord")),
		session: session,
	}
}

// interaction adapts a discordgo interaction to the opaque handle the core
// passes around.
type interaction struct {
	ic *discordgo.InteractionCreate
}

func (i interaction) UserID() string {
	if i.ic.Member != nil && i.ic.Member.User != nil {
		return i.ic.Member.User.ID
	}
	if i.ic.User != nil {
		return i.ic.User.ID
	}
	return ""
}

func (i interaction) ChannelID() string { return i.ic.ChannelID }

// Wrap exposes a gateway interaction as a platform handle. The bot's
// command router uses it to hand the initiating interaction to a session.
func Wrap(ic *discordgo.InteractionCreate) platform.Interaction {
	return interaction{ic: ic}
}

func unwrap(i platform.Interaction) (*discordgo.InteractionCreate, error) {
	di, ok := i.(interaction)
	if !ok {
		return nil, fmt.Errorf("foreign interaction type %T", i)
	}
	return di.ic, nil
}

func (c *Client) SendEmbed(ctx context.Context, channelID string, d embed.Draft, files []platform.File) (string, error) {
	send := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{draftToMessageEmbed(d)},
	}
	opened := make([]*os.File, 0, len(files))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, f := range files {
		fh, err := os.Open(f.Path)
		if err != nil {
			return "", fmt.Errorf("open attachment %s: %w", f.Name, err)
		}
		opened = append(opened, fh)
		send.Files = append(send.Files, &discordgo.File{Name: f.Name, Reader: fh})
	}

	msg, err := c.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	if err != nil {
		// Anything Discord refuses to render is a rejection the caller
		// must not commit.
		return "", fmt.Errorf("send embed: %w: %w", platform.ErrSendRejected, err)
	}
	return msg.ID, nil
}

func (c *Client) SendControls(ctx context.Context, channelID, text string, controls []platform.Control) (string, error) {
	msg, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    text,
		Components: buildComponents(controls),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send controls: %w", err)
	}
	return msg.ID, nil
}

func (c *Client) EditControls(ctx context.Context, channelID, messageID, text string, controls []platform.Control) error {
	components := buildComponents(controls)
	edit := discordgo.NewMessageEdit(channelID, messageID)
	edit.Content = &text
	edit.Components = &components
	if _, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit controls: %w", err)
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if err == nil || isNotFound(err) {
		return nil
	}
	return fmt.Errorf("delete message: %w", err)
}

func (c *Client) Ack(ctx context.Context, i platform.Interaction) error {
	ic, err := unwrap(i)
	if err != nil {
		return err
	}
	err = c.session.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}, discordgo.WithContext(ctx))
	if err != nil && !isAlreadyAcked(err) {
		return fmt.Errorf("ack interaction: %w", err)
	}
	return nil
}

func (c *Client) Notify(ctx context.Context, i platform.Interaction, text string) error {
	ic, err := unwrap(i)
	if err != nil {
		return err
	}
	err = c.session.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err == nil {
		return nil
	}
	// The interaction may already carry a response; fall back to a
	// followup, which is equally ephemeral.
	_, ferr := c.session.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
		Content: text,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx))
	if ferr != nil {
		return fmt.Errorf("notify: %w", ferr)
	}
	return nil
}

func buildComponents(controls []platform.Control) []discordgo.MessageComponent {
	maxRow := 0
	for _, c := range controls {
		if c.Row > maxRow {
			maxRow = c.Row
		}
	}
	rows := make([]discordgo.ActionsRow, maxRow+1)
	for _, c := range controls {
		rows[c.Row].Components = append(rows[c.Row].Components, buildComponent(c))
	}
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		if len(row.Components) > 0 {
			out = append(out, row)
		}
	}
	return out
}

func buildComponent(c platform.Control) discordgo.MessageComponent {
	if len(c.Options) > 0 {
		opts := make([]discordgo.SelectMenuOption, 0, len(c.Options))
		for _, o := range c.Options {
			opts = append(opts, discordgo.SelectMenuOption{
				Label:       o.Label,
				Value:       o.Value,
				Description: o.Description,
			})
		}
		return discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    c.ID,
			Placeholder: c.Placeholder,
			Options:     opts,
		}
	}
	return discordgo.Button{
		CustomID: c.ID,
		Label:    c.Label,
		Style:    buttonStyle(c.Style),
	}
}

func buttonStyle(s platform.ControlStyle) discordgo.ButtonStyle {
	switch s {
	case platform.StyleSecondary:
		return discordgo.SecondaryButton
	case platform.StyleDanger:
		return discordgo.DangerButton
	case platform.StyleSuccess:
		return discordgo.SuccessButton
	default:
		return discordgo.PrimaryButton
	}
}

func isNotFound(err error) bool {
	restErr, ok := err.(*discordgo.RESTError)
	return ok && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// isAlreadyAcked reports whether the interaction already got a response,
// which Discord answers with error code 40060.
func isAlreadyAcked(err error) bool {
	restErr, ok := err.(*discordgo.RESTError)
	return ok && restErr.Message != nil && restErr.Message.Code == 40060
}
