package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/embedforge/embedforge/internal/platform"
)

// PromptModal opens a modal form in response to i and waits for its
// submission. Correlation runs over a generated custom id, so concurrent
// sessions never steal each other's submissions.
func (c *Client) PromptModal(ctx context.Context, i platform.Interaction, form platform.Form) (map[string]string, platform.Interaction, error) {
	ic, err := unwrap(i)
	if err != nil {
		return nil, nil, err
	}

	customID := "modal:" + uuid.NewString()
	submits := make(chan *discordgo.InteractionCreate, 1)
	remove := c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.InteractionCreate) {
		if ev.Type != discordgo.InteractionModalSubmit {
			return
		}
		if ev.ModalSubmitData().CustomID != customID {
			return
		}
		select {
		case submits <- ev:
		default:
		}
	})
	defer remove()

	err = c.session.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      form.Title,
			Components: buildModalInputs(form.Inputs),
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("open modal: %w", err)
	}

	select {
	case ev := <-submits:
		return parseModalValues(ev.ModalSubmitData()), interaction{ic: ev}, nil
	case <-ctx.Done():
		return nil, nil, platform.ErrPromptTimeout
	}
}

// AwaitComponent waits for the first control activation on messageID.
func (c *Client) AwaitComponent(ctx context.Context, messageID string) (platform.Event, error) {
	events := make(chan *discordgo.InteractionCreate, 1)
	remove := c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.InteractionCreate) {
		if ev.Type != discordgo.InteractionMessageComponent {
			return
		}
		if ev.Message == nil || ev.Message.ID != messageID {
			return
		}
		select {
		case events <- ev:
		default:
		}
	})
	defer remove()

	select {
	case ev := <-events:
		data := ev.MessageComponentData()
		out := platform.Event{
			ControlID:   data.CustomID,
			Interaction: interaction{ic: ev},
		}
		if len(data.Values) > 0 {
			out.Value = data.Values[0]
		}
		return out, nil
	case <-ctx.Done():
		return platform.Event{}, platform.ErrPromptTimeout
	}
}

// AwaitUserAttachment waits for the next message from userID in channelID
// carrying an attachment.
func (c *Client) AwaitUserAttachment(ctx context.Context, channelID, userID string) (platform.InboundMessage, error) {
	messages := make(chan *discordgo.MessageCreate, 1)
	remove := c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.ChannelID != channelID || m.Author == nil || m.Author.ID != userID {
			return
		}
		if len(m.Attachments) == 0 {
			return
		}
		select {
		case messages <- m:
		default:
		}
	})
	defer remove()

	select {
	case m := <-messages:
		att := m.Attachments[0]
		return platform.InboundMessage{
			MessageID: m.ID,
			Attachment: platform.Attachment{
				URL:      att.URL,
				Filename: att.Filename,
				Size:     int64(att.Size),
			},
		}, nil
	case <-ctx.Done():
		return platform.InboundMessage{}, platform.ErrPromptTimeout
	}
}

func buildModalInputs(inputs []platform.FormInput) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(inputs))
	for _, in := range inputs {
		style := discordgo.TextInputShort
		if in.Paragraph {
			style = discordgo.TextInputParagraph
		}
		out = append(out, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    in.Key,
					Label:       in.Label,
					Style:       style,
					Value:       in.Default,
					Placeholder: in.Placeholder,
					Required:    in.Required,
					MaxLength:   in.MaxLen,
				},
			},
		})
	}
	return out
}

func parseModalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	vals := make(map[string]string)
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if ti, ok := comp.(*discordgo.TextInput); ok {
				vals[ti.CustomID] = ti.Value
			}
		}
	}
	return vals
}
