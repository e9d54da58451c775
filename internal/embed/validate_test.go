package embed

import (
	"testing"
	"time"
)

func TestValidateMainFieldsColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		color string
		valid bool
	}{
		{color: "", valid: true},
		{color: "#fff", valid: true},
		{color: "#FFF", valid: true},
		{color: "#a1b2c3", valid: true},
		{color: "#ffff", valid: false},
		{color: "#ff", valid: false},
		{color: "fff", valid: false},
		{color: "#ggg", valid: false},
		{color: "#a1b2c3d4", valid: false},
		{color: "red", valid: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.color, func(t *testing.T) {
			t.Parallel()
			invalid := ValidateMainFields(MainFieldsInput{Color: tt.color})
			got := !contains(invalid, FieldColor)
			if got != tt.valid {
				t.Fatalf("color %q: valid=%v, want %v", tt.color, got, tt.valid)
			}
		})
	}
}

func TestValidateMainFieldsTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ts    string
		valid bool
	}{
		{ts: "", valid: true},
		{ts: "2024-06-01", valid: true},
		{ts: "2024-06-01T12:30", valid: true},
		{ts: "2024-06-01T12:30:45", valid: true},
		{ts: "2024-06-01T12:30:45Z", valid: true},
		{ts: "2024-06-01T12:30:45+02:00", valid: true},
		{ts: "01.06.2024", valid: false},
		{ts: "not a date", valid: false},
		{ts: "2024-13-40", valid: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.ts, func(t *testing.T) {
			t.Parallel()
			invalid := ValidateMainFields(MainFieldsInput{Timestamp: tt.ts})
			got := !contains(invalid, FieldTimestamp)
			if got != tt.valid {
				t.Fatalf("timestamp %q: valid=%v, want %v", tt.ts, got, tt.valid)
			}
		})
	}
}

// The main URL check admits http and https; the author check admits https
// only. The asymmetry is deliberate.
func TestURLSchemeAsymmetry(t *testing.T) {
	t.Parallel()

	if invalid := ValidateMainFields(MainFieldsInput{URL: "http://x"}); len(invalid) != 0 {
		t.Fatalf("main http url flagged: %v", invalid)
	}
	if invalid := ValidateMainFields(MainFieldsInput{URL: "https://x"}); len(invalid) != 0 {
		t.Fatalf("main https url flagged: %v", invalid)
	}
	if invalid := ValidateMainFields(MainFieldsInput{URL: "ftp://x"}); !contains(invalid, FieldURL) {
		t.Fatal("main ftp url not flagged")
	}

	if invalid := ValidateAuthorFields(AuthorFieldsInput{URL: "http://x"}); !contains(invalid, FieldURL) {
		t.Fatal("author http url not flagged")
	}
	if invalid := ValidateAuthorFields(AuthorFieldsInput{URL: "https://x"}); len(invalid) != 0 {
		t.Fatalf("author https url flagged: %v", invalid)
	}
	if invalid := ValidateAuthorFields(AuthorFieldsInput{URL: ""}); len(invalid) != 0 {
		t.Fatalf("empty author url flagged: %v", invalid)
	}
}

func TestValidateFooterFields(t *testing.T) {
	t.Parallel()

	if invalid := ValidateFooterFields(FooterFieldsInput{Text: "anything goes"}); len(invalid) != 0 {
		t.Fatalf("footer text flagged: %v", invalid)
	}
}

func TestParseColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
		err  bool
	}{
		{in: "#ffffff", want: 0xffffff},
		{in: "#fff", want: 0xffffff},
		{in: "#abc", want: 0xaabbcc},
		{in: "#123456", want: 0x123456},
		{in: "#12345", err: true},
		{in: "123456", err: true},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if tt.err {
			if err == nil {
				t.Fatalf("ParseColor(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseColor(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestampRoundTrip(t *testing.T) {
	t.Parallel()

	ts, err := ParseTimestamp("2024-06-01T12:30:45Z")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("got %v, want %v", ts, want)
	}
}

func TestFormatTimestampKeepsOffset(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("plus2", 2*60*60)
	in := time.Date(2024, 6, 1, 12, 30, 45, 0, loc)
	back, err := ParseTimestamp(FormatTimestamp(in))
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(in) {
		t.Fatalf("round trip shifted the instant: got %v, want %v", back, in)
	}
	if _, off := back.Zone(); off != 2*60*60 {
		t.Fatalf("offset = %d, want %d", off, 2*60*60)
	}

	utc := time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)
	if got := FormatTimestamp(utc); got != "2024-06-01 12:30:45" {
		t.Fatalf("FormatTimestamp(utc) = %q", got)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
