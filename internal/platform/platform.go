// Package platform is the chat-platform boundary of the editing core. The
// session machine and the image intake only see these interfaces; the
// discord subpackage binds them to discordgo.
package platform

import (
	"context"
	"errors"
	"io"

	"github.com/embedforge/embedforge/internal/embed"
)

var (
	// ErrPromptTimeout indicates the user never answered a prompt. Callers
	// treat it as abandonment, not a failure.
	ErrPromptTimeout = errors.New("prompt timed out")
	// ErrSendRejected indicates the platform refused to deliver a message
	// (size limits, malformed content). The draft that caused it must not
	// be committed.
	ErrSendRejected = errors.New("platform rejected the message")
)

// Interaction is an opaque handle to one user interaction. It is handed
// back to the platform when responding to that interaction.
type Interaction interface {
	// UserID identifies the interacting user.
	UserID() string
	// ChannelID identifies the channel the interaction happened in.
	ChannelID() string
}

// Attachment describes one file attached to an inbound message.
type Attachment struct {
	URL      string
	Filename string
	Size     int64
}

// InboundMessage is a user-sent channel message carrying an attachment.
type InboundMessage struct {
	MessageID  string
	Attachment Attachment
}

// File is a local file to attach to an outbound message.
type File struct {
	Name string
	Path string
}

// ControlStyle selects the visual treatment of a button.
type ControlStyle int

const (
	StylePrimary ControlStyle = iota
	StyleSecondary
	StyleDanger
	StyleSuccess
)

// SelectOption is one entry of a select control.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// Control describes one button or select menu. Controls with Options are
// rendered as selects, the rest as buttons.
type Control struct {
	ID          string
	Label       string
	Placeholder string
	Style       ControlStyle
	Row         int
	Options     []SelectOption
}

// Event is a control activation on a message the core owns.
type Event struct {
	ControlID   string
	Value       string
	Interaction Interaction
}

// FormInput is one text input of a modal form.
type FormInput struct {
	Key         string
	Label       string
	Default     string
	Placeholder string
	Required    bool
	Paragraph   bool
	MaxLen      int
}

// Form is a modal prompt shown in response to an interaction.
type Form struct {
	Title  string
	Inputs []FormInput
}

// Messenger sends and manages the core's messages.
type Messenger interface {
	// SendEmbed renders the draft with its resolved attachment files and
	// returns the new message id. A platform rejection surfaces as
	// ErrSendRejected.
	SendEmbed(ctx context.Context, channelID string, draft embed.Draft, files []File) (string, error)
	// SendControls sends a text message carrying the given controls.
	SendControls(ctx context.Context, channelID, text string, controls []Control) (string, error)
	// EditControls replaces text and controls of an existing message.
	EditControls(ctx context.Context, channelID, messageID, text string, controls []Control) error
	// DeleteMessage removes a message. Deleting an already-deleted
	// message is not an error.
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// Ack acknowledges an interaction that gets no other response.
	Ack(ctx context.Context, i Interaction) error
	// Notify shows a short feedback text only the interacting user sees.
	Notify(ctx context.Context, i Interaction, text string) error
}

// Prompter blocks on user input. All methods honor ctx cancellation and
// return ErrPromptTimeout when the wait expires.
type Prompter interface {
	// PromptModal opens a modal form as the response to i and waits for
	// submission. The returned map is keyed by FormInput.Key.
	PromptModal(ctx context.Context, i Interaction, form Form) (map[string]string, Interaction, error)
	// AwaitComponent waits for the first control activation on the given
	// message.
	AwaitComponent(ctx context.Context, messageID string) (Event, error)
	// AwaitUserAttachment waits for the next message from userID in
	// channelID that carries at least one attachment; the first
	// attachment is reported.
	AwaitUserAttachment(ctx context.Context, channelID, userID string) (InboundMessage, error)
}

// Downloader fetches remote resources, typically attachment URLs.
type Downloader interface {
	// Download opens the resource for reading. Any non-success response
	// is an error.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
