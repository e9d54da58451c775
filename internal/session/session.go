// Package session implements the interactive edit workflow: one session per
// command invocation, owned by a single goroutine, walking a small state
// machine from action selection through per-part edit steps to an explicit
// save. Every mutation of the live draft is gated behind a successful
// render of the candidate draft.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/embedforge/embedforge/internal/embed"
	"github.com/embedforge/embedforge/internal/imagestore"
	"github.com/embedforge/embedforge/internal/intake"
	"github.com/embedforge/embedforge/internal/platform"
	"github.com/embedforge/embedforge/internal/store"
)

const (
	sendFailedMsg     = "The embed could not be sent. Check the submitted values and try again."
	notLoadedMsg      = "No embed is loaded. Create or load one first."
	fieldCapMsg       = "This embed already has the maximum number of fields."
	savedMsg          = "Saved."
	deletedMsg        = "Deleted."
	saveFailedMsg     = "Saving failed, your draft is unchanged."
	recordMissingMsg  = "No embed with that id or name exists."
	deleteFailedMsg   = "Deleting the record failed."
	lookupFailedMsg   = "Looking up the record failed."
	createFailedMsg   = "Creating the record failed."
)

// Config bounds the waits of one session.
type Config struct {
	// IdleTimeout closes the session when no control is pressed for this
	// long. Expiry runs the same cleanup as an explicit close.
	IdleTimeout time.Duration
	// PromptTimeout bounds each modal and retry wait inside a step.
	PromptTimeout time.Duration
}

// Session drives the edit workflow for one user in one channel. All methods
// run on the session's own goroutine; suspension points (modal waits, image
// intake) block that goroutine only.
type Session struct {
	log       *slog.Logger
	messenger platform.Messenger
	prompter  platform.Prompter
	intake    *intake.Service
	images    *imagestore.Store
	store     store.EmbedStore
	cfg       Config

	userID    string
	channelID string

	st           viewState
	draft        embed.Draft
	record       *store.Record
	controllerID string
	previewID    string
	// pending holds working-directory filenames this session ingested but
	// has not yet promoted with a save.
	pending map[string]bool
}

func New(
	log *slog.Logger,
	messenger platform.Messenger,
	prompter platform.Prompter,
	intakeSvc *intake.Service,
	images *imagestore.Store,
	embeds store.EmbedStore,
	cfg Config,
	channelID, userID string,
) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		log: log.With(
			slog.String("service", "session"),
			slog.String("user_id", userID),
		),
		messenger: messenger,
		prompter:  prompter,
		intake:    intakeSvc,
		images:    images,
		store:     embeds,
		cfg:       cfg,
		userID:    userID,
		channelID: channelID,
		st:        viewState{Phase: phaseIdle, Focus: noFocus},
		pending:   make(map[string]bool),
	}
}

// Run executes the session until the user closes it, it idles out, or ctx
// is cancelled. All exits release the session's messages and uncommitted
// images.
func (s *Session) Run(ctx context.Context) error {
	controllerID, err := s.messenger.SendControls(ctx, s.channelID, textFor(s.st, s.draft), controlsFor(s.st, s.draft))
	if err != nil {
		return fmt.Errorf("send controller message: %w", err)
	}
	s.controllerID = controllerID

	for s.st.Phase != phaseClosed {
		waitCtx, cancel := context.WithTimeout(ctx, s.cfg.IdleTimeout)
		ev, err := s.prompter.AwaitComponent(waitCtx, s.controllerID)
		cancel()
		if err != nil {
			s.log.Debug("session expired", slog.Any("error", err))
			s.cleanup()
			return nil
		}
		if ev.Interaction == nil || ev.Interaction.UserID() != s.userID {
			// Only the initiating user drives the session.
			if ev.Interaction != nil {
				_ = s.messenger.Ack(ctx, ev.Interaction)
			}
			continue
		}
		s.dispatch(ctx, ev)
		if s.st.Phase != phaseClosed {
			s.refreshControls(ctx)
		}
	}
	return nil
}

func (s *Session) dispatch(ctx context.Context, ev platform.Event) {
	switch ev.ControlID {
	case ControlAction:
		s.handleAction(ctx, ev)

	case ControlEnterDetails:
		switch s.st.Phase {
		case phaseCreateEntry:
			s.createEntry(ctx, ev.Interaction)
		case phaseModifyEntry:
			s.loadEntry(ctx, ev.Interaction, phaseEditing)
		case phaseDeleteEntry:
			s.loadEntry(ctx, ev.Interaction, phaseDeleteConfirm)
		default:
			_ = s.messenger.Ack(ctx, ev.Interaction)
		}

	case ControlConfirmDelete:
		s.confirmDelete(ctx, ev.Interaction)

	case ControlEditMain:
		s.editMain(ctx, ev.Interaction)
	case ControlEditAuthor:
		s.editAuthor(ctx, ev.Interaction)
	case ControlEditFooter:
		s.editFooter(ctx, ev.Interaction)
	case ControlEditImage:
		s.editIcon(ctx, ev.Interaction, iconImage)
	case ControlEditThumbnail:
		s.editIcon(ctx, ev.Interaction, iconThumbnail)

	case ControlFieldFocus:
		_ = s.messenger.Ack(ctx, ev.Interaction)
		if i, err := strconv.Atoi(ev.Value); err == nil && i >= 0 && i < len(s.draft.Fields) {
			s.st.Focus = i
		}
	case ControlFieldDone:
		_ = s.messenger.Ack(ctx, ev.Interaction)
		s.st.Focus = noFocus
	case ControlFieldEdit:
		s.editField(ctx, ev.Interaction)
	case ControlFieldInline:
		s.toggleInline(ctx, ev.Interaction)
	case ControlFieldRemove:
		s.removeField(ctx, ev.Interaction)
	case ControlFieldAdd:
		s.addField(ctx, ev.Interaction)

	case ControlSave:
		s.save(ctx, ev.Interaction)
	case ControlSaveRename:
		s.saveRename(ctx, ev.Interaction)

	default:
		_ = s.messenger.Ack(ctx, ev.Interaction)
	}
}

// handleAction services the action select. Every action first discards
// uncommitted images and clears the current preview.
func (s *Session) handleAction(ctx context.Context, ev platform.Event) {
	_ = s.messenger.Ack(ctx, ev.Interaction)

	s.discardPending()
	s.clearPreview(ctx)
	s.record = nil
	s.draft = embed.Draft{}
	s.st.Focus = noFocus

	switch ev.Value {
	case ActionCreate:
		s.st.Phase = phaseCreateEntry
	case ActionModify:
		s.st.Phase = phaseModifyEntry
	case ActionDelete:
		s.st.Phase = phaseDeleteEntry
	case ActionClose:
		s.close(ctx)
	default:
		s.st.Phase = phaseIdle
	}
}

// renderAndReplace is the single choke point for committing an edit: it
// resolves every image the candidate references, attempts the platform
// send, and only on success replaces the preview message and the live
// draft. A resolution miss or a platform rejection leaves everything
// untouched.
func (s *Session) renderAndReplace(ctx context.Context, candidate embed.Draft) error {
	refs := candidate.IconRefs()
	files := make([]platform.File, 0, len(refs))
	for _, ref := range refs {
		path, ok := s.images.Resolve(ref)
		if !ok {
			return fmt.Errorf("resolve image %q: %w", ref, imagestore.ErrNotFound)
		}
		files = append(files, platform.File{Name: ref, Path: path})
	}

	msgID, err := s.messenger.SendEmbed(ctx, s.channelID, candidate, files)
	if err != nil {
		return fmt.Errorf("render embed: %w", err)
	}

	if s.previewID != "" {
		_ = s.messenger.DeleteMessage(ctx, s.channelID, s.previewID)
	}
	s.previewID = msgID
	s.draft = candidate
	s.sweepPending()
	return nil
}

// sweepPending discards working images the committed draft no longer
// references, typically an uncommitted icon the user replaced.
func (s *Session) sweepPending() {
	for name := range s.pending {
		if !s.draft.ReferencesImage(name) {
			_ = s.images.Discard(name)
			delete(s.pending, name)
		}
	}
}

func (s *Session) discardPending() {
	for name := range s.pending {
		_ = s.images.Discard(name)
		delete(s.pending, name)
	}
}

func (s *Session) clearPreview(ctx context.Context) {
	if s.previewID == "" {
		return
	}
	_ = s.messenger.DeleteMessage(ctx, s.channelID, s.previewID)
	s.previewID = ""
}

func (s *Session) refreshControls(ctx context.Context) {
	err := s.messenger.EditControls(ctx, s.channelID, s.controllerID, textFor(s.st, s.draft), controlsFor(s.st, s.draft))
	if err != nil {
		s.log.Warn("refresh controls", slog.Any("error", err))
	}
}

// close releases everything the session owns. Idle expiry runs the same
// path through cleanup.
func (s *Session) close(ctx context.Context) {
	s.clearPreview(ctx)
	if s.controllerID != "" {
		_ = s.messenger.DeleteMessage(ctx, s.channelID, s.controllerID)
		s.controllerID = ""
	}
	s.discardPending()
	s.st.Phase = phaseClosed
}

// cleanup is close for the expiry paths, where the session's own ctx may
// already be done.
func (s *Session) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.close(ctx)
}
