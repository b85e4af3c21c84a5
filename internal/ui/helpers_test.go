package ui

import (
	"testing"
	"time"
)

func TestTruncateRunes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello w…"},
		{"multibyte", "héllo wörld", 4, "hél…"},
		{"one", "hello", 1, "…"},
		{"zero", "hello", 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncateRunes(tc.in, tc.max); got != tc.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
		})
	}
}

func TestWrappedLineCount(t *testing.T) {
	cases := []struct {
		name  string
		value string
		width int
		want  int
	}{
		{"empty", "", 10, 1},
		{"single line", "hello", 10, 1},
		{"wraps once", "hello world", 6, 2},
		{"two lines", "a\nb", 10, 2},
		{"blank line counts", "a\n\nb", 10, 3},
		{"zero width", "anything", 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WrappedLineCount(tc.value, tc.width); got != tc.want {
				t.Errorf("WrappedLineCount(%q, %d) = %d, want %d", tc.value, tc.width, got, tc.want)
			}
		})
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		t    time.Time
		want string
	}{
		{"just now", now.Add(-10 * time.Second), "just now"},
		{"one minute", now.Add(-90 * time.Second), "1 min ago"},
		{"minutes", now.Add(-10 * time.Minute), "10 mins ago"},
		{"one hour", now.Add(-90 * time.Minute), "1 hr ago"},
		{"hours", now.Add(-5 * time.Hour), "5 hrs ago"},
		{"one day", now.Add(-30 * time.Hour), "1 day ago"},
		{"days", now.Add(-80 * time.Hour), "3 days ago"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RelativeTime(tc.t); got != tc.want {
				t.Errorf("RelativeTime = %q, want %q", got, tc.want)
			}
		})
	}
}
