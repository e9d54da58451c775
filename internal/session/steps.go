package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/embedforge/embedforge/internal/embed"
	"github.com/embedforge/embedforge/internal/intake"
	"github.com/embedforge/embedforge/internal/platform"
)

// Form input keys shared by the edit steps.
const (
	inputTitle       = "title"
	inputDescription = "description"
	inputColor       = "color"
	inputTimestamp   = "timestamp"
	inputURL         = "url"
	inputName        = "name"
	inputValue       = "value"
	inputText        = "text"
	inputID          = "id"
)

func markLabel(label, key string, invalid []string) string {
	for _, k := range invalid {
		if k == key {
			return label + " (invalid)"
		}
	}
	return label
}

func invalidNote(invalid []string) string {
	return fmt.Sprintf("Invalid fields: %s. Press Retry to edit them again.", strings.Join(invalid, ", "))
}

// askRetry reports a step failure on a temporary message with Retry and
// Cancel controls and waits for the user's choice. The returned
// interaction, when ok, is fresh enough to open the step's modal again.
func (s *Session) askRetry(ctx context.Context, note string) (platform.Interaction, bool) {
	msgID, err := s.messenger.SendControls(ctx, s.channelID, note, retryControls())
	if err != nil {
		s.log.Warn("send retry prompt", slog.Any("error", err))
		return nil, false
	}
	defer func() {
		_ = s.messenger.DeleteMessage(ctx, s.channelID, msgID)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.PromptTimeout)
	defer cancel()
	for {
		ev, err := s.prompter.AwaitComponent(waitCtx, msgID)
		if err != nil {
			return nil, false
		}
		if ev.Interaction == nil || ev.Interaction.UserID() != s.userID {
			if ev.Interaction != nil {
				_ = s.messenger.Ack(ctx, ev.Interaction)
			}
			continue
		}
		if ev.ControlID == ControlRetry {
			return ev.Interaction, true
		}
		_ = s.messenger.Ack(ctx, ev.Interaction)
		return nil, false
	}
}

// runFormStep is the validate-render-retry loop for modal-only steps.
// build produces the form from the current values with invalid inputs
// marked; validate names the invalid input keys; apply turns accepted
// values into the candidate draft. A prompt timeout aborts silently; a
// render failure flags every input of the step and re-enters the retry
// path. Reports whether a candidate was committed.
func (s *Session) runFormStep(
	ctx context.Context,
	i platform.Interaction,
	seed map[string]string,
	allKeys []string,
	build func(vals map[string]string, invalid []string) platform.Form,
	validate func(vals map[string]string) []string,
	apply func(vals map[string]string) embed.Draft,
) bool {
	vals := seed
	var invalid []string
	var note string

	for {
		if invalid != nil {
			retryI, ok := s.askRetry(ctx, note)
			if !ok {
				return false
			}
			i = retryI
		}

		promptCtx, cancel := context.WithTimeout(ctx, s.cfg.PromptTimeout)
		submitted, si, err := s.prompter.PromptModal(promptCtx, i, build(vals, invalid))
		cancel()
		if err != nil {
			return false
		}
		i = si
		vals = submitted

		invalid = validate(submitted)
		if len(invalid) > 0 {
			note = invalidNote(invalid)
			_ = s.messenger.Ack(ctx, i)
			continue
		}

		if err := s.renderAndReplace(ctx, apply(submitted)); err != nil {
			s.log.Debug("render rejected", slog.Any("error", err))
			invalid = allKeys
			note = sendFailedMsg
			_ = s.messenger.Ack(ctx, i)
			continue
		}
		_ = s.messenger.Ack(ctx, i)
		return true
	}
}

func (s *Session) editMain(ctx context.Context, i platform.Interaction) {
	d := s.draft
	seed := map[string]string{
		inputTitle:       d.Title,
		inputDescription: d.Description,
		inputURL:         d.URL,
	}
	if d.Color != nil {
		seed[inputColor] = embed.FormatColor(*d.Color)
	}
	if d.Timestamp != nil {
		seed[inputTimestamp] = embed.FormatTimestamp(*d.Timestamp)
	}

	build := func(vals map[string]string, invalid []string) platform.Form {
		return platform.Form{
			Title: "Edit embed",
			Inputs: []platform.FormInput{
				{Key: inputTitle, Label: "Title", Default: vals[inputTitle], MaxLen: embed.MaxTitleLen},
				{Key: inputDescription, Label: "Description", Default: vals[inputDescription], Paragraph: true, MaxLen: embed.MaxDescriptionLen},
				{Key: inputColor, Label: markLabel("Color (#rrggbb)", inputColor, invalid), Default: vals[inputColor], MaxLen: 7},
				{Key: inputTimestamp, Label: markLabel("Timestamp", inputTimestamp, invalid), Default: vals[inputTimestamp], MaxLen: 32},
				{Key: inputURL, Label: markLabel("URL", inputURL, invalid), Default: vals[inputURL], MaxLen: 512},
			},
		}
	}

	validate := func(vals map[string]string) []string {
		return embed.ValidateMainFields(embed.MainFieldsInput{
			Color:     vals[inputColor],
			Timestamp: vals[inputTimestamp],
			URL:       vals[inputURL],
		})
	}

	apply := func(vals map[string]string) embed.Draft {
		c := s.draft.Clone()
		c.Title = vals[inputTitle]
		c.Description = vals[inputDescription]
		c.URL = vals[inputURL]
		c.Color = nil
		if vals[inputColor] != "" {
			// Validation already accepted the format.
			if v, err := embed.ParseColor(vals[inputColor]); err == nil {
				c.Color = &v
			}
		}
		c.Timestamp = nil
		if vals[inputTimestamp] != "" {
			if ts, err := embed.ParseTimestamp(vals[inputTimestamp]); err == nil {
				c.Timestamp = &ts
			}
		}
		return c
	}

	allKeys := []string{inputTitle, inputDescription, inputColor, inputTimestamp, inputURL}
	s.runFormStep(ctx, i, seed, allKeys, build, validate, apply)
}

// editAuthor prompts for the author name and url, then runs image intake
// for the author icon. Submitting both inputs empty removes the author
// block outright and skips the intake.
func (s *Session) editAuthor(ctx context.Context, i platform.Interaction) {
	seed := map[string]string{}
	var oldIcon embed.IconRef
	if s.draft.Author != nil {
		seed[inputName] = s.draft.Author.Name
		seed[inputURL] = s.draft.Author.URL
		oldIcon = s.draft.Author.Icon
	}

	build := func(vals map[string]string, invalid []string) platform.Form {
		return platform.Form{
			Title: "Edit author",
			Inputs: []platform.FormInput{
				{Key: inputName, Label: "Author name", Default: vals[inputName], MaxLen: embed.MaxAuthorNameLen},
				{Key: inputURL, Label: markLabel("Author URL (https)", inputURL, invalid), Default: vals[inputURL], MaxLen: 512},
			},
		}
	}

	vals := seed
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
		submitted, si, err := s.prompter.PromptModal(promptCtx, i, build(vals, invalid))
		cancel()
		if err != nil {
			return
		}
		i = si
		vals = submitted
		_ = s.messenger.Ack(ctx, i)

		if vals[inputName] == "" && vals[inputURL] == "" {
			// Empty submission removes the author block; no intake.
			c := s.draft.Clone()
			c.Author = nil
			if err := s.renderAndReplace(ctx, c); err != nil {
				invalid = []string{inputName, inputURL}
				note = sendFailedMsg
				continue
			}
			return
		}

		invalid = embed.ValidateAuthorFields(embed.AuthorFieldsInput{URL: vals[inputURL]})
		if len(invalid) > 0 {
			note = invalidNote(invalid)
			continue
		}

		icon, ok := s.acquireIcon(ctx, oldIcon)
		if !ok {
			return
		}
		c := s.draft.Clone()
		c.Author = &embed.Author{Name: vals[inputName], URL: vals[inputURL], Icon: icon}
		if err := s.renderAndReplace(ctx, c); err != nil {
			s.releaseAcquired(icon, oldIcon)
			invalid = []string{inputName, inputURL}
			note = sendFailedMsg
			continue
		}
		return
	}
}

// editFooter mirrors editAuthor for the footer text and icon. The footer
// text has no format rules, so the only retry trigger is a failed render.
func (s *Session) editFooter(ctx context.Context, i platform.Interaction) {
	seed := map[string]string{}
	var oldIcon embed.IconRef
	if s.draft.Footer != nil {
		seed[inputText] = s.draft.Footer.Text
		oldIcon = s.draft.Footer.Icon
	}

	build := func(vals map[string]string, invalid []string) platform.Form {
		return platform.Form{
			Title: "Edit footer",
			Inputs: []platform.FormInput{
				{Key: inputText, Label: markLabel("Footer text", inputText, invalid), Default: vals[inputText], MaxLen: embed.MaxFooterTextLen},
			},
		}
	}

	vals := seed
	var invalid []string
	for {
		if invalid != nil {
			retryI, ok := s.askRetry(ctx, sendFailedMsg)
			if !ok {
				return
			}
			i = retryI
		}

		promptCtx, cancel := context.WithTimeout(ctx, s.cfg.PromptTimeout)
		submitted, si, err := s.prompter.PromptModal(promptCtx, i, build(vals, invalid))
		cancel()
		if err != nil {
			return
		}
		i = si
		vals = submitted
		_ = s.messenger.Ack(ctx, i)

		if rejected := embed.ValidateFooterFields(embed.FooterFieldsInput{Text: vals[inputText]}); len(rejected) > 0 {
			invalid = rejected
			continue
		}

		if vals[inputText] == "" {
			c := s.draft.Clone()
			c.Footer = nil
			if err := s.renderAndReplace(ctx, c); err != nil {
				invalid = []string{inputText}
				continue
			}
			return
		}

		icon, ok := s.acquireIcon(ctx, oldIcon)
		if !ok {
			return
		}
		c := s.draft.Clone()
		c.Footer = &embed.Footer{Text: vals[inputText], Icon: icon}
		if err := s.renderAndReplace(ctx, c); err != nil {
			s.releaseAcquired(icon, oldIcon)
			invalid = []string{inputText}
			continue
		}
		return
	}
}

type iconSlot int

const (
	iconImage iconSlot = iota
	iconThumbnail
)

// editIcon runs image intake for the embed image or thumbnail. There is no
// modal; the intake prompt is the whole step. A failed render offers a
// retry that runs the intake again.
func (s *Session) editIcon(ctx context.Context, i platform.Interaction, slot iconSlot) {
	_ = s.messenger.Ack(ctx, i)

	old := s.draft.Image
	if slot == iconThumbnail {
		old = s.draft.Thumbnail
	}

	for {
		icon, ok := s.acquireIcon(ctx, old)
		if !ok || icon == old {
			return
		}
		c := s.draft.Clone()
		if slot == iconThumbnail {
			c.Thumbnail = icon
		} else {
			c.Image = icon
		}
		err := s.renderAndReplace(ctx, c)
		if err == nil {
			return
		}
		s.log.Debug("render rejected", slog.Any("error", err))
		s.releaseAcquired(icon, old)
		retryI, ok := s.askRetry(ctx, sendFailedMsg)
		if !ok {
			return
		}
		_ = s.messenger.Ack(ctx, retryI)
	}
}

// acquireIcon runs the image intake protocol and folds its outcome over
// the current icon. A freshly stored file is tracked as pending until a
// save promotes it. ok is false when the intake errored out entirely.
func (s *Session) acquireIcon(ctx context.Context, current embed.IconRef) (embed.IconRef, bool) {
	res, err := s.intake.Request(ctx, s.channelID, s.userID)
	if err != nil {
		s.log.Warn("image intake", slog.Any("error", err))
		return current, false
	}
	switch res.Outcome {
	case intake.Removed:
		return embed.NoIcon(), true
	case intake.NewImage:
		s.pending[res.Filename] = true
		// The hold keeps the janitor's sweep off the file while this
		// session owns it; Promote or Discard releases it.
		s.images.Hold(res.Filename)
		return embed.FileRef(res.Filename), true
	default:
		return current, true
	}
}

// releaseAcquired drops an icon that never got committed because the
// render failed. Only freshly ingested files are discarded.
func (s *Session) releaseAcquired(acquired, old embed.IconRef) {
	if acquired.IsFile() && acquired != old && s.pending[acquired.Filename] {
		_ = s.images.Discard(acquired.Filename)
		delete(s.pending, acquired.Filename)
	}
}

func fieldFormBuild(title string) func(vals map[string]string, invalid []string) platform.Form {
	return func(vals map[string]string, invalid []string) platform.Form {
		return platform.Form{
			Title: title,
			Inputs: []platform.FormInput{
				{Key: inputName, Label: markLabel("Field name", inputName, invalid), Default: vals[inputName], Required: true, MaxLen: embed.MaxFieldNameLen},
				{Key: inputValue, Label: markLabel("Field value", inputValue, invalid), Default: vals[inputValue], Required: true, Paragraph: true, MaxLen: embed.MaxFieldValueLen},
			},
		}
	}
}

func validateFieldInputs(vals map[string]string) []string {
	var invalid []string
	if vals[inputName] == "" || len(vals[inputName]) > embed.MaxFieldNameLen {
		invalid = append(invalid, inputName)
	}
	if vals[inputValue] == "" || len(vals[inputValue]) > embed.MaxFieldValueLen {
		invalid = append(invalid, inputValue)
	}
	return invalid
}

func (s *Session) editField(ctx context.Context, i platform.Interaction) {
	idx := s.st.Focus
	if idx == noFocus || idx >= len(s.draft.Fields) {
		_ = s.messenger.Ack(ctx, i)
		return
	}
	f := s.draft.Fields[idx]
	seed := map[string]string{inputName: f.Name, inputValue: f.Value}

	apply := func(vals map[string]string) embed.Draft {
		c := s.draft.Clone()
		c.Fields[idx].Name = vals[inputName]
		c.Fields[idx].Value = vals[inputValue]
		return c
	}
	s.runFormStep(ctx, i, seed, []string{inputName, inputValue},
		fieldFormBuild(fmt.Sprintf("Edit field %d", idx+1)), validateFieldInputs, apply)
}

// addField appends a new field and focuses it. The control is hidden at
// the cap, and the append itself still fails closed.
func (s *Session) addField(ctx context.Context, i platform.Interaction) {
	if !s.draft.CanAddField() {
		_ = s.messenger.Notify(ctx, i, fieldCapMsg)
		return
	}

	apply := func(vals map[string]string) embed.Draft {
		c := s.draft.Clone()
		if err := c.AddField(vals[inputName], vals[inputValue]); err != nil {
			return s.draft
		}
		return c
	}
	ok := s.runFormStep(ctx, i, map[string]string{}, []string{inputName, inputValue},
		fieldFormBuild("Add field"), validateFieldInputs, apply)
	if ok {
		s.st.Focus = len(s.draft.Fields) - 1
	}
}

// removeField drops the focused field. Committing re-derives the field
// selects, so every later field is addressed by its shifted index.
func (s *Session) removeField(ctx context.Context, i platform.Interaction) {
	_ = s.messenger.Ack(ctx, i)
	idx := s.st.Focus
	if idx == noFocus || idx >= len(s.draft.Fields) {
		return
	}
	c := s.draft.Clone()
	if err := c.RemoveField(idx); err != nil {
		return
	}
	if err := s.renderAndReplace(ctx, c); err != nil {
		_ = s.messenger.Notify(ctx, i, sendFailedMsg)
		return
	}
	s.st.Focus = noFocus
}

// toggleInline flips the focused field's inline flag. Like every other
// mutation it only lands when the render succeeds.
func (s *Session) toggleInline(ctx context.Context, i platform.Interaction) {
	_ = s.messenger.Ack(ctx, i)
	idx := s.st.Focus
	if idx == noFocus || idx >= len(s.draft.Fields) {
		return
	}
	c := s.draft.Clone()
	c.Fields[idx].Inline = !c.Fields[idx].Inline
	if err := s.renderAndReplace(ctx, c); err != nil {
		_ = s.messenger.Notify(ctx, i, sendFailedMsg)
	}
}
