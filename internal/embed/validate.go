package embed

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Validator input field names, reported back to the caller so the prompt
// can flag the offending inputs.
const (
	FieldColor     = "color"
	FieldTimestamp = "timestamp"
	FieldURL       = "url"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Accepted timestamp layouts, tried in order. Mirrors the lenient ISO-8601
// forms the workflow has always accepted.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// MainFieldsInput is the user-submitted text for the main edit step.
// Title and description carry no format rules and are bounded by the
// prompt itself, so only the three checked fields appear here.
type MainFieldsInput struct {
	Color     string
	Timestamp string
	URL       string
}

// AuthorFieldsInput is the user-submitted text for the author edit step.
type AuthorFieldsInput struct {
	URL string
}

// FooterFieldsInput is the user-submitted text for the footer edit step.
type FooterFieldsInput struct {
	Text string
}

// ValidateMainFields returns the names of the inputs that fail their
// format rule. Empty inputs are always valid (the member stays unset).
func ValidateMainFields(in MainFieldsInput) []string {
	var invalid []string
	if in.Color != "" && !colorPattern.MatchString(in.Color) {
		invalid = append(invalid, FieldColor)
	}
	if in.Timestamp != "" {
		if _, err := ParseTimestamp(in.Timestamp); err != nil {
			invalid = append(invalid, FieldTimestamp)
		}
	}
	if in.URL != "" {
		u, err := url.Parse(in.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			invalid = append(invalid, FieldURL)
		}
	}
	return invalid
}

// ValidateAuthorFields returns the invalid inputs of the author step. The
// author URL only admits https, stricter than the main URL check.
func ValidateAuthorFields(in AuthorFieldsInput) []string {
	var invalid []string
	if in.URL != "" {
		u, err := url.Parse(in.URL)
		if err != nil || u.Scheme != "https" {
			invalid = append(invalid, FieldURL)
		}
	}
	return invalid
}

// ValidateFooterFields carries no format rules today. It exists so footer
// editing runs through the same validate step as the other groups.
func ValidateFooterFields(in FooterFieldsInput) []string {
	return nil
}

// ParseColor converts a "#rgb" or "#rrggbb" string to an RGB integer.
func ParseColor(s string) (int, error) {
	if !colorPattern.MatchString(s) {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	v, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return int(v), nil
}

// FormatColor renders an RGB integer as "#rrggbb" for prompt defaults.
func FormatColor(c int) string {
	return fmt.Sprintf("#%06x", c)
}

// FormatTimestamp renders a timestamp for prompt defaults in a form
// ParseTimestamp reads back to the same instant. Anything other than UTC
// keeps its RFC 3339 offset so an unchanged resubmit does not shift it.
func FormatTimestamp(t time.Time) string {
	if t.Location() == time.UTC {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format(time.RFC3339)
}

// ParseTimestamp parses the lenient ISO-8601 forms accepted by the
// timestamp input.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
