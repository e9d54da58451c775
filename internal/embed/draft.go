// Package embed defines the embed draft model and the input format checks
// used by the editing workflow.
package embed

import (
	"errors"
	"fmt"
	"time"
)

// Platform size limits for a single embed.
const (
	MaxTitleLen       = 256
	MaxDescriptionLen = 4096
	MaxAuthorNameLen  = 256
	MaxFooterTextLen  = 2048
	MaxFieldNameLen   = 256
	MaxFieldValueLen  = 1024
	MaxFields         = 25
	MaxTotalLen       = 6000
)

var ErrTooManyFields = errors.New("embed already has the maximum number of fields")

// Field is one name/value entry of an embed's repeating group.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Author is the optional author block of an embed.
type Author struct {
	Name string  `json:"name"`
	URL  string  `json:"url,omitempty"`
	Icon IconRef `json:"icon,omitzero"`
}

// Footer is the optional footer block of an embed.
type Footer struct {
	Text string  `json:"text"`
	Icon IconRef `json:"icon,omitzero"`
}

// Draft is the working embed value under edit. All members are optional;
// the zero value is an empty draft.
type Draft struct {
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Color       *int       `json:"color,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	URL         string     `json:"url,omitempty"`
	Author      *Author    `json:"author,omitempty"`
	Footer      *Footer    `json:"footer,omitempty"`
	Image       IconRef    `json:"image,omitzero"`
	Thumbnail   IconRef    `json:"thumbnail,omitzero"`
	Fields      []Field    `json:"fields,omitempty"`
}

// DefaultDraft is the value a freshly created record starts with.
func DefaultDraft() Draft {
	return Draft{Description: "Default"}
}

// Clone returns a deep copy. Edit steps mutate the copy and only commit it
// after a successful render, so the live draft never sees a failed edit.
func (d Draft) Clone() Draft {
	out := d
	if d.Color != nil {
		c := *d.Color
		out.Color = &c
	}
	if d.Timestamp != nil {
		ts := *d.Timestamp
		out.Timestamp = &ts
	}
	if d.Author != nil {
		a := *d.Author
		out.Author = &a
	}
	if d.Footer != nil {
		f := *d.Footer
		out.Footer = &f
	}
	if d.Fields != nil {
		out.Fields = make([]Field, len(d.Fields))
		copy(out.Fields, d.Fields)
	}
	return out
}

// IconRefs returns the filenames of every file-backed icon reference on the
// draft, in a stable order: author icon, footer icon, image, thumbnail.
func (d Draft) IconRefs() []string {
	var refs []string
	if d.Author != nil && d.Author.Icon.IsFile() {
		refs = append(refs, d.Author.Icon.Filename)
	}
	if d.Footer != nil && d.Footer.Icon.IsFile() {
		refs = append(refs, d.Footer.Icon.Filename)
	}
	if d.Image.IsFile() {
		refs = append(refs, d.Image.Filename)
	}
	if d.Thumbnail.IsFile() {
		refs = append(refs, d.Thumbnail.Filename)
	}
	return refs
}

// ReferencesImage reports whether any icon of the draft points at filename.
func (d Draft) ReferencesImage(filename string) bool {
	for _, ref := range d.IconRefs() {
		if ref == filename {
			return true
		}
	}
	return false
}

// Validate checks the draft against platform size limits.
func (d Draft) Validate() error {
	if len(d.Title) > MaxTitleLen {
		return fmt.Errorf("title exceeds %d characters", MaxTitleLen)
	}
	if len(d.Description) > MaxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", MaxDescriptionLen)
	}
	if d.Author != nil && len(d.Author.Name) > MaxAuthorNameLen {
		return fmt.Errorf("author name exceeds %d characters", MaxAuthorNameLen)
	}
	if d.Footer != nil && len(d.Footer.Text) > MaxFooterTextLen {
		return fmt.Errorf("footer text exceeds %d characters", MaxFooterTextLen)
	}
	if len(d.Fields) > MaxFields {
		return ErrTooManyFields
	}
	total := len(d.Title) + len(d.Description)
	if d.Author != nil {
		total += len(d.Author.Name)
	}
	if d.Footer != nil {
		total += len(d.Footer.Text)
	}
	for i, f := range d.Fields {
		if f.Name == "" || f.Value == "" {
			return fmt.Errorf("field %d has an empty name or value", i)
		}
		if len(f.Name) > MaxFieldNameLen {
			return fmt.Errorf("field %d name exceeds %d characters", i, MaxFieldNameLen)
		}
		if len(f.Value) > MaxFieldValueLen {
			return fmt.Errorf("field %d value exceeds %d characters", i, MaxFieldValueLen)
		}
		total += len(f.Name) + len(f.Value)
	}
	if total > MaxTotalLen {
		return fmt.Errorf("embed exceeds %d characters in total", MaxTotalLen)
	}
	return nil
}

// CanAddField reports whether the field cap leaves room for one more entry.
func (d Draft) CanAddField() bool {
	return len(d.Fields) < MaxFields
}

// AddField appends a non-inline field, failing closed at the cap.
func (d *Draft) AddField(name, value string) error {
	if !d.CanAddField() {
		return ErrTooManyFields
	}
	d.Fields = append(d.Fields, Field{Name: name, Value: value})
	return nil
}

// RemoveField deletes the field at index i, shifting later entries down.
func (d *Draft) RemoveField(i int) error {
	if i < 0 || i >= len(d.Fields) {
		return fmt.Errorf("field index %d out of range", i)
	}
	d.Fields = append(d.Fields[:i], d.Fields[i+1:]...)
	return nil
}
