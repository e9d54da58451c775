package session

import (
	"fmt"

	"github.com/embedforge/embedforge/internal/embed"
	"github.com/embedforge/embedforge/internal/platform"
)

type phase int

const (
	phaseIdle phase = iota
	phaseCreateEntry
	phaseModifyEntry
	phaseDeleteEntry
	phaseDeleteConfirm
	phaseEditing
	phaseClosed
)

// viewState is everything the control layout depends on besides the draft.
// Focus is the index of the field under edit, or noFocus.
type viewState struct {
	Phase phase
	Focus int
}

const noFocus = -1

// Control ids of the controller message. Select values carry the payload
// (action name or field index).
const (
	ControlAction        = "session:action"
	ControlEnterDetails  = "session:enter"
	ControlConfirmDelete = "session:confirm-delete"

	ControlEditMain      = "edit:main"
	ControlEditAuthor    = "edit:author"
	ControlEditFooter    = "edit:footer"
	ControlEditImage     = "edit:image"
	ControlEditThumbnail = "edit:thumbnail"

	ControlFieldFocus  = "field:focus"
	ControlFieldEdit   = "field:edit"
	ControlFieldInline = "field:inline"
	ControlFieldRemove = "field:remove"
	ControlFieldDone   = "field:done"
	ControlFieldAdd    = "field:add"

	ControlSave       = "session:save"
	ControlSaveRename = "session:save-rename"

	ControlRetry  = "session:retry"
	ControlCancel = "session:cancel"
)

// Action select values.
const (
	ActionClose  = "close"
	ActionCreate = "create"
	ActionModify = "modify"
	ActionDelete = "delete"
)

func actionSelect() platform.Control {
	return platform.Control{
		ID:          ControlAction,
		Placeholder: "Choose an action",
		Row:         0,
		Options: []platform.SelectOption{
			{Label: "Create a new embed", Value: ActionCreate},
			{Label: "Modify an embed", Value: ActionModify},
			{Label: "Delete an embed", Value: ActionDelete},
			{Label: "Close the session", Value: ActionClose},
		},
	}
}

func fieldFocusSelect(d embed.Draft, row int) platform.Control {
	opts := make([]platform.SelectOption, 0, len(d.Fields))
	for i, f := range d.Fields {
		opts = append(opts, platform.SelectOption{
			Label: fmt.Sprintf("%d: %s", i+1, f.Name),
			Value: fmt.Sprintf("%d", i),
		})
	}
	return platform.Control{
		ID:          ControlFieldFocus,
		Placeholder: "Select a field",
		Row:         row,
		Options:     opts,
	}
}

// controlsFor derives the complete control set for a state from scratch.
// It is re-run on every transition so control indices can never go stale
// after a field is removed.
func controlsFor(st viewState, d embed.Draft) []platform.Control {
	switch st.Phase {
	case phaseIdle:
		return []platform.Control{actionSelect()}

	case phaseCreateEntry, phaseModifyEntry, phaseDeleteEntry:
		return []platform.Control{
			actionSelect(),
			{ID: ControlEnterDetails, Label: "Enter id and name", Style: platform.StylePrimary, Row: 1},
		}

	case phaseDeleteConfirm:
		return []platform.Control{
			actionSelect(),
			{ID: ControlConfirmDelete, Label: "Confirm deletion", Style: platform.StyleDanger, Row: 1},
		}

	case phaseEditing:
		if st.Focus != noFocus && st.Focus < len(d.Fields) {
			controls := []platform.Control{
				actionSelect(),
				{ID: ControlFieldEdit, Label: "Edit field", Style: platform.StylePrimary, Row: 1},
				{ID: ControlFieldInline, Label: "Toggle inline", Style: platform.StyleSecondary, Row: 1},
				{ID: ControlFieldRemove, Label: "Remove field", Style: platform.StyleDanger, Row: 1},
				{ID: ControlFieldDone, Label: "Done", Style: platform.StyleSecondary, Row: 1},
			}
			return append(controls, fieldFocusSelect(d, 2))
		}
		controls := []platform.Control{
			actionSelect(),
			{ID: ControlEditMain, Label: "Main", Style: platform.StylePrimary, Row: 1},
			{ID: ControlEditAuthor, Label: "Author", Style: platform.StylePrimary, Row: 1},
			{ID: ControlEditFooter, Label: "Footer", Style: platform.StylePrimary, Row: 1},
			{ID: ControlEditImage, Label: "Image", Style: platform.StylePrimary, Row: 1},
			{ID: ControlEditThumbnail, Label: "Thumbnail", Style: platform.StylePrimary, Row: 1},
			{ID: ControlSave, Label: "Save", Style: platform.StyleSuccess, Row: 2},
			{ID: ControlSaveRename, Label: "Save under new id/name", Style: platform.StyleSuccess, Row: 2},
		}
		if d.CanAddField() {
			controls = append(controls, platform.Control{
				ID: ControlFieldAdd, Label: "Add field", Style: platform.StyleSecondary, Row: 2,
			})
		}
		if len(d.Fields) > 0 {
			controls = append(controls, fieldFocusSelect(d, 3))
		}
		return controls

	default:
		return nil
	}
}

func textFor(st viewState, d embed.Draft) string {
	switch st.Phase {
	case phaseIdle:
		return "What would you like to do?"
	case phaseCreateEntry:
		return "Create a new embed. Enter the id and name it will be stored under."
	case phaseModifyEntry:
		return "Modify an embed. Enter the id or name of the record to load."
	case phaseDeleteEntry:
		return "Delete an embed. Enter the id or name of the record to load."
	case phaseDeleteConfirm:
		return "This will permanently delete the embed and its saved images."
	case phaseEditing:
		if st.Focus != noFocus && st.Focus < len(d.Fields) {
			return fmt.Sprintf("Editing field %d: %s", st.Focus+1, d.Fields[st.Focus].Name)
		}
		return "Editing. Pick a part of the embed to change, then save."
	default:
		return ""
	}
}

func retryControls() []platform.Control {
	return []platform.Control{
		{ID: ControlRetry, Label: "Retry", Style: platform.StylePrimary},
		{ID: ControlCancel, Label: "Cancel", Style: platform.StyleSecondary},
	}
}
