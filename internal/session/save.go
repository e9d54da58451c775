package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/embedforge/embedforge/internal/platform"
	"github.com/embedforge/embedforge/internal/store"
)

// save writes the live draft under the record's current key, promotes the
// temporary images the draft references, and deletes saved images the old
// record referenced but the draft no longer does. A failure is reported
// and leaves the draft and session state untouched.
func (s *Session) save(ctx context.Context, i platform.Interaction) {
	if s.record == nil {
		_ = s.messenger.Notify(ctx, i, notLoadedMsg)
		return
	}

	old, err := s.store.GetByID(ctx, s.record.ID)
	if err != nil {
		s.log.Error("read record before save", slog.Int64("id", s.record.ID), slog.Any("error", err))
		_ = s.messenger.Notify(ctx, i, saveFailedMsg)
		return
	}

	rec := store.Record{ID: s.record.ID, Name: s.record.Name, Draft: s.draft}
	if err := s.store.Update(ctx, rec); err != nil {
		s.log.Error("update record", slog.Int64("id", rec.ID), slog.Any("error", err))
		_ = s.messenger.Notify(ctx, i, saveFailedMsg)
		return
	}

	s.commitImages(old)
	s.record = &rec
	_ = s.messenger.Notify(ctx, i, savedMsg)
}

// saveRename writes the draft under a new id/name pair, checked for
// collisions atomically by the store. Collisions re-prompt; everything
// else behaves like save.
func (s *Session) saveRename(ctx context.Context, i platform.Interaction) {
	if s.record == nil {
		_ = s.messenger.Notify(ctx, i, notLoadedMsg)
		return
	}

	vals := map[string]string{
		inputID:   strconv.FormatInt(s.record.ID, 10),
		inputName: s.record.Name,
	}
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
		submitted, si, err := s.prompter.PromptModal(promptCtx, i, entryForm("Save embed as", "Id (integer)", "Name", vals, invalid, true))
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

		old, gerr := s.store.GetByID(ctx, s.record.ID)
		if gerr != nil {
			s.log.Error("read record before rename", slog.Int64("id", s.record.ID), slog.Any("error", gerr))
			_ = s.messenger.Notify(ctx, i, saveFailedMsg)
			return
		}

		rec := store.Record{ID: id, Name: vals[inputName], Draft: s.draft}
		if err := s.store.Rename(ctx, s.record.ID, rec); err != nil {
			switch {
			case errors.Is(err, store.ErrIDExists):
				invalid = []string{inputID}
				note = fmt.Sprintf("An embed with id %d already exists. Press Retry to pick another.", id)
			case errors.Is(err, store.ErrNameExists):
				invalid = []string{inputName}
				note = fmt.Sprintf("An embed named %q already exists. Press Retry to pick another.", rec.Name)
			default:
				s.log.Error("rename record", slog.Any("error", err))
				_ = s.messenger.Notify(ctx, i, saveFailedMsg)
				return
			}
			continue
		}

		s.commitImages(old)
		s.record = &rec
		_ = s.messenger.Notify(ctx, i, savedMsg)
		return
	}
}

// commitImages settles the image side of a successful save: promote every
// pending working file the draft references, then delete saved files only
// the pre-save record still referenced.
func (s *Session) commitImages(old store.Record) {
	for _, ref := range s.draft.IconRefs() {
		if !s.pending[ref] {
			continue
		}
		if err := s.images.Promote(ref); err != nil {
			s.log.Error("promote image", slog.String("filename", ref), slog.Any("error", err))
			continue
		}
		delete(s.pending, ref)
	}
	for _, ref := range old.Draft.IconRefs() {
		if s.draft.ReferencesImage(ref) {
			continue
		}
		if err := s.images.DeleteSaved(ref); err != nil {
			s.log.Warn("delete stale image", slog.String("filename", ref), slog.Any("error", err))
		}
	}
}
