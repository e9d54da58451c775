package embed

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	color := 0xabcdef
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	d := Draft{
		Title:     "title",
		Color:     &color,
		Timestamp: &ts,
		Author:    &Author{Name: "a", Icon: FileRef("a.png")},
		Footer:    &Footer{Text: "f"},
		Fields:    []Field{{Name: "n", Value: "v"}},
	}

	c := d.Clone()
	*c.Color = 0
	c.Author.Name = "changed"
	c.Fields[0].Name = "changed"
	c.Footer.Text = "changed"

	assert.Equal(t, 0xabcdef, *d.Color)
	assert.Equal(t, "a", d.Author.Name)
	assert.Equal(t, "n", d.Fields[0].Name)
	assert.Equal(t, "f", d.Footer.Text)
}

func TestIconRefs(t *testing.T) {
	t.Parallel()

	d := Draft{
		Author:    &Author{Name: "a", Icon: FileRef("author.png")},
		Footer:    &Footer{Text: "f", Icon: NoIcon()},
		Image:     FileRef("image.jpg"),
		Thumbnail: NoIcon(),
	}
	assert.Equal(t, []string{"author.png", "image.jpg"}, d.IconRefs())
	assert.True(t, d.ReferencesImage("image.jpg"))
	assert.False(t, d.ReferencesImage("other.png"))
}

func TestFieldCap(t *testing.T) {
	t.Parallel()

	var d Draft
	for i := 0; i < MaxFields; i++ {
		require.NoError(t, d.AddField("n", "v"))
	}
	assert.False(t, d.CanAddField())

	err := d.AddField("n", "v")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyFields))
	assert.Len(t, d.Fields, MaxFields)
}

func TestRemoveFieldShifts(t *testing.T) {
	t.Parallel()

	d := Draft{Fields: []Field{
		{Name: "0", Value: "v"},
		{Name: "1", Value: "v"},
		{Name: "2", Value: "v"},
		{Name: "3", Value: "v"},
		{Name: "4", Value: "v"},
	}}
	require.NoError(t, d.RemoveField(2))
	require.Len(t, d.Fields, 4)
	assert.Equal(t, "3", d.Fields[2].Name)
	assert.Equal(t, "4", d.Fields[3].Name)

	assert.Error(t, d.RemoveField(4))
	assert.Error(t, d.RemoveField(-1))
}

func TestValidateLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		draft Draft
		ok    bool
	}{
		{name: "empty", draft: Draft{}, ok: true},
		{name: "title at limit", draft: Draft{Title: strings.Repeat("x", MaxTitleLen)}, ok: true},
		{name: "title over limit", draft: Draft{Title: strings.Repeat("x", MaxTitleLen+1)}, ok: false},
		{name: "description over limit", draft: Draft{Description: strings.Repeat("x", MaxDescriptionLen+1)}, ok: false},
		{name: "empty field name", draft: Draft{Fields: []Field{{Value: "v"}}}, ok: false},
		{name: "field value over limit", draft: Draft{Fields: []Field{{Name: "n", Value: strings.Repeat("x", MaxFieldValueLen+1)}}}, ok: false},
		{
			name: "total over limit",
			draft: Draft{
				Description: strings.Repeat("x", MaxDescriptionLen),
				Fields: []Field{
					{Name: strings.Repeat("n", MaxFieldNameLen), Value: strings.Repeat("v", MaxFieldValueLen)},
					{Name: strings.Repeat("n", MaxFieldNameLen), Value: strings.Repeat("v", MaxFieldValueLen)},
				},
			},
			ok: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.draft.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDraftJSONRoundTrip(t *testing.T) {
	t.Parallel()

	color := 0x00ff00
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	in := Draft{
		Title:     "t",
		Color:     &color,
		Timestamp: &ts,
		Author:    &Author{Name: "a", URL: "https://example.com", Icon: FileRef("a.png")},
		Image:     FileRef("i.png"),
		Fields:    []Field{{Name: "n", Value: "v", Inline: true}},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	var out Draft
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestDraftJSONOmitsEmptyIcons(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Draft{
		Title:  "t",
		Author: &Author{Name: "a"},
		Footer: &Footer{Text: "f"},
	})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "icon")
	assert.NotContains(t, string(data), "image")
	assert.NotContains(t, string(data), "thumbnail")

	// An explicit NoIcon marshals the same as the zero value.
	data, err = json.Marshal(Draft{Image: NoIcon()})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "image")
}
