package embed

// IconKind discriminates the states an icon reference can be in.
type IconKind string

const (
	// IconNone means no image is attached.
	IconNone IconKind = "none"
	// IconFile points at a locally stored image file.
	IconFile IconKind = "file"
)

// IconRef is a tagged reference to an image backing an author icon, footer
// icon, main image or thumbnail. The zero value means "no image".
type IconRef struct {
	Kind     IconKind `json:"kind,omitempty"`
	Filename string   `json:"filename,omitempty"`
}

func NoIcon() IconRef {
	return IconRef{Kind: IconNone}
}

func FileRef(filename string) IconRef {
	return IconRef{Kind: IconFile, Filename: filename}
}

func (r IconRef) IsFile() bool {
	return r.Kind == IconFile && r.Filename != ""
}

func (r IconRef) IsNone() bool {
	return r.Kind == "" || r.Kind == IconNone
}

// IsZero reports whether no image is referenced. encoding/json consults it
// for omitzero, so drafts persist without empty icon objects.
func (r IconRef) IsZero() bool {
	return r.IsNone()
}
