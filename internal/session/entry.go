package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/embedforge/embedforge/internal/embed"
	"github.com/embedforge/embedforge/internal/platform"
	"github.com/embedforge/embedforge/internal/store"
)

func entryForm(title string, idLabel, nameLabel string, vals map[string]string, invalid []string, idRequired bool) platform.Form {
	return platform.Form{
		Title: title,
		Inputs: []platform.FormInput{
			{Key: inputID, Label: markLabel(idLabel, inputID, invalid), Default: vals[inputID], Required: idRequired, MaxLen: 19},
			{Key: inputName, Label: markLabel(nameLabel, inputName, invalid), Default: vals[inputName], Required: idRequired, MaxLen: 100},
		},
	}
}

// createEntry prompts for a free id/name pair and creates the record with
// the default draft. Any failure keeps the session in the create entry
// state with nothing created.
func (s *Session) createEntry(ctx context.Context, i platform.Interaction) {
	vals := map[string]string{}
	var invalid []string
	var note string

	for {
		if invalid != nil {
			retryI, ok := s.askRetry(ctx, note)
			if !ok {
				return
			}
			i = retryI
		}

		promptCtx, cancel := context.WithTimeout(ctx, s.cfg.PromptTimeout)
		submitted, si, err := s.prompter.PromptModal(promptCtx, i, entryForm("Create embed", "Id (integer)", "Name", vals, invalid, true))
		cancel()
		if err != nil {
			return
		}
		i = si
		vals = submitted
		_ = s.messenger.Ack(ctx, i)

		id, perr := strconv.ParseInt(vals[inputID], 10, 64)
		if perr != nil {
			invalid = []string{inputID}
			note = "The id must be an integer. Press Retry to edit it."
			continue
		}
		if vals[inputName] == "" {
			invalid = []string{inputName}
			note = "The name must not be empty. Press Retry to edit it."
			continue
		}

		rec := store.Record{ID: id, Name: vals[inputName], Draft: embed.DefaultDraft()}
		if err := s.store.Create(ctx, rec); err != nil {
			switch {
			case errors.Is(err, store.ErrIDExists):
				invalid = []string{inputID}
				note = fmt.Sprintf("An embed with id %d already exists. Press Retry to pick another.", id)
			case errors.Is(err, store.ErrNameExists):
				invalid = []string{inputName}
				note = fmt.Sprintf("An embed named %q already exists. Press Retry to pick another.", rec.Name)
			default:
				s.log.Error("create record", slog.Any("error", err))
				_ = s.messenger.Notify(ctx, i, createFailedMsg)
				return
			}
			continue
		}

		s.record = &rec
		s.draft = rec.Draft
		if err := s.renderAndReplace(ctx, rec.Draft); err != nil {
			// The record exists either way; the user can re-render from
			// any edit step.
			s.log.Warn("render created draft", slog.Any("error", err))
			_ = s.messenger.Notify(ctx, i, sendFailedMsg)
		}
		s.st.Phase = phaseEditing
		return
	}
}

// loadEntry looks a record up by id (preferred when given) or name, renders
// its draft, and moves to target: Editing for modify, DeleteConfirm for
// delete. Not-found keeps the entry state so the user can try another key.
func (s *Session) loadEntry(ctx context.Context, i platform.Interaction, target phase) {
	vals := map[string]string{}
	var invalid []string
	var note string

	for {
		if invalid != nil {
			retryI, ok := s.askRetry(ctx, note)
			if !ok {
				return
			}
			i = retryI
		}

		promptCtx, cancel := context.WithTimeout(ctx, s.cfg.PromptTimeout)
		submitted, si, err := s.prompter.PromptModal(promptCtx, i, entryForm("Load embed", "Id (optional)", "Name", vals, invalid, false))
		cancel()
		if err != nil {
			return
		}
		i = si
		vals = submitted
		_ = s.messenger.Ack(ctx, i)

		var rec store.Record
		var lerr error
		switch {
		case vals[inputID] != "":
			id, perr := strconv.ParseInt(vals[inputID], 10, 64)
			if perr != nil {
				invalid = []string{inputID}
				note = "The id must be an integer. Press Retry to edit it."
				continue
			}
			rec, lerr = s.store.GetByID(ctx, id)
		case vals[inputName] != "":
			rec, lerr = s.store.GetByName(ctx, vals[inputName])
		default:
			invalid = []string{inputID, inputName}
			note = "Enter an id or a name. Press Retry to try again."
			continue
		}

		if lerr != nil {
			if errors.Is(lerr, store.ErrNotFound) {
				invalid = []string{inputID, inputName}
				note = recordMissingMsg + " Press Retry to try another."
				continue
			}
			s.log.Error("load record", slog.Any("error", lerr))
			_ = s.messenger.Notify(ctx, i, lookupFailedMsg)
			return
		}

		// Loading a record supersedes anything this session ingested for
		// a previous one.
		s.discardPending()
		s.record = &rec
		if err := s.renderAndReplace(ctx, rec.Draft.Clone()); err != nil {
			s.record = nil
			s.log.Warn("render loaded draft", slog.Any("error", err))
			invalid = []string{inputID, inputName}
			note = sendFailedMsg
			continue
		}
		s.st.Phase = target
		s.st.Focus = noFocus
		return
	}
}

// confirmDelete removes the loaded record, its saved images, and the
// preview, then falls back to the delete entry state so another record can
// be picked.
func (s *Session) confirmDelete(ctx context.Context, i platform.Interaction) {
	if s.record == nil {
		_ = s.messenger.Ack(ctx, i)
		s.st.Phase = phaseDeleteEntry
		return
	}
	if err := s.store.Delete(ctx, s.record.ID); err != nil {
		s.log.Error("delete record", slog.Any("error", err))
		_ = s.messenger.Notify(ctx, i, deleteFailedMsg)
		return
	}
	for _, ref := range s.record.Draft.IconRefs() {
		if err := s.images.DeleteSaved(ref); err != nil {
			s.log.Warn("delete saved image", slog.String("filename", ref), slog.Any("error", err))
		}
	}
	s.clearPreview(ctx)
	s.record = nil
	s.draft = embed.Draft{}
	s.st.Phase = phaseDeleteEntry
	_ = s.messenger.Notify(ctx, i, deletedMsg)
}
