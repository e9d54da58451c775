// Package intake asks the acting user for one image attachment, validates
// and stores it, and reports the outcome. It is the only part of the core
// that genuinely waits on two things at once: a control press on the
// prompt message raced against an inbound attachment.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/embedforge/embedforge/internal/imagestore"
	"github.com/embedforge/embedforge/internal/platform"
)

// Control ids rendered on the intake prompt.
const (
	ControlStop   = "intake:stop"
	ControlDelete = "intake:delete"
)

const (
	promptText        = "Please send the image you want in this channel."
	downloadFailedMsg = "Image could not be downloaded, please check your file and try again."
	notImageMsg       = "File is not an image, please check your file and try again."
	tooLargeMsg       = "Image is too large, please send a smaller file."
)

// Outcome is the result of one intake request.
type Outcome int

const (
	// Unchanged means the user stopped or the wait timed out; the caller
	// keeps whatever icon it had.
	Unchanged Outcome = iota
	// Removed means the user chose to delete the current image.
	Removed
	// NewImage means a fresh image was stored; Result.Filename points at
	// it in the working directory.
	NewImage
)

// Result carries the outcome and, for NewImage, the stored filename.
type Result struct {
	Outcome  Outcome
	Filename string
}

// Config bounds the waits of one request.
type Config struct {
	// AttemptTimeout bounds each wait for an inbound attachment.
	AttemptTimeout time.Duration
	// SessionTimeout bounds the request as a whole.
	SessionTimeout time.Duration
	// MaxImageBytes bounds the accepted upload size.
	MaxImageBytes int64
}

// Service runs the image acquisition protocol.
type Service struct {
	messenger  platform.Messenger
	prompter   platform.Prompter
	downloader platform.Downloader
	images     *imagestore.Store
	cfg        Config
	logger     *slog.Logger
}

func NewService(log *slog.Logger, messenger platform.Messenger, prompter platform.Prompter, downloader platform.Downloader, images *imagestore.Store, cfg Config) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		messenger:  messenger,
		prompter:   prompter,
		downloader: downloader,
		images:     images,
		cfg:        cfg,
		logger:     log.With(slog.String("service", "intake")),
	}
}

func promptControls() []platform.Control {
	return []platform.Control{
		{ID: ControlStop, Label: "Stop", Style: platform.StyleDanger},
		{ID: ControlDelete, Label: "Delete current image", Style: platform.StyleDanger},
	}
}

// Request runs the protocol for userID in channelID. Whichever way it
// ends, the prompt message is deleted best-effort before returning.
func (s *Service) Request(ctx context.Context, channelID, userID string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SessionTimeout)
	defer cancel()

	promptID, err := s.messenger.SendControls(ctx, channelID, promptText, promptControls())
	if err != nil {
		return Result{}, fmt.Errorf("send intake prompt: %w", err)
	}
	defer func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cleanupCancel()
		_ = s.messenger.DeleteMessage(cleanupCtx, channelID, promptID)
	}()

	type eventResult struct {
		ev  platform.Event
		err error
	}
	events := make(chan eventResult, 1)
	go func() {
		ev, err := s.awaitOwnControl(ctx, promptID, userID)
		events <- eventResult{ev: ev, err: err}
	}()

	for {
		attemptCtx, attemptCancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)

		type messageResult struct {
			msg platform.InboundMessage
			err error
		}
		messages := make(chan messageResult, 1)
		go func() {
			msg, err := s.prompter.AwaitUserAttachment(attemptCtx, channelID, userID)
			messages <- messageResult{msg: msg, err: err}
		}()

		select {
		case res := <-events:
			// Control press wins; the attachment waiter is retracted by
			// cancelling its context, so a message arriving a moment
			// later is never processed.
			attemptCancel()
			if res.err != nil {
				return Result{Outcome: Unchanged}, nil
			}
			_ = s.messenger.Ack(ctx, res.ev.Interaction)
			if res.ev.ControlID == ControlDelete {
				return Result{Outcome: Removed}, nil
			}
			return Result{Outcome: Unchanged}, nil

		case res := <-messages:
			attemptCancel()
			if res.err != nil {
				// Attempt or session expiry counts as abandonment.
				return Result{Outcome: Unchanged}, nil
			}
			filename, rerr := s.receiveAttachment(ctx, res.msg)
			if rerr != nil {
				var userMsg string
				switch {
				case errors.Is(rerr, imagestore.ErrNotImage):
					userMsg = notImageMsg
				case errors.Is(rerr, imagestore.ErrImageTooLarge):
					userMsg = tooLargeMsg
				default:
					userMsg = downloadFailedMsg
				}
				s.logger.Debug("attachment rejected",
					slog.String("user_id", userID),
					slog.Any("error", rerr),
				)
				if err := s.messenger.EditControls(ctx, channelID, promptID, userMsg, promptControls()); err != nil {
					return Result{Outcome: Unchanged}, nil
				}
				continue
			}
			// Remove the user's upload message so the channel stays clean.
			_ = s.messenger.DeleteMessage(ctx, channelID, res.msg.MessageID)
			return Result{Outcome: NewImage, Filename: filename}, nil

		case <-ctx.Done():
			attemptCancel()
			return Result{Outcome: Unchanged}, nil
		}
	}
}

// awaitOwnControl waits for a control press on the prompt by the acting
// user, re-arming on presses from anyone else.
func (s *Service) awaitOwnControl(ctx context.Context, messageID, userID string) (platform.Event, error) {
	for {
		ev, err := s.prompter.AwaitComponent(ctx, messageID)
		if err != nil {
			return platform.Event{}, err
		}
		if ev.Interaction != nil && ev.Interaction.UserID() != userID {
			_ = s.messenger.Ack(ctx, ev.Interaction)
			continue
		}
		return ev, nil
	}
}

// receiveAttachment downloads and stores the attachment, returning the
// generated filename.
func (s *Service) receiveAttachment(ctx context.Context, msg platform.InboundMessage) (string, error) {
	body, err := s.downloader.Download(ctx, msg.Attachment.URL)
	if err != nil {
		return "", fmt.Errorf("download attachment: %w", err)
	}
	defer func() {
		_ = body.Close()
	}()

	filename, err := s.images.Ingest(body, s.cfg.MaxImageBytes)
	if err != nil {
		return "", err
	}
	return filename, nil
}
