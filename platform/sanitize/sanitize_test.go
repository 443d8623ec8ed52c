package sanitize

import "testing"

func TestUtterance(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"strips tags", "<b>10x5</b> patio", 0, "10x5 patio"},
		{"collapses whitespace", "  flat \n\n  please ", 0, "flat please"},
		{"drops control characters", "yes\x00\x07", 0, "yes"},
		{"truncates runes", "£7.5k budget", 5, "£7.5k"},
	}

	for _, tc := range tests {
		if got := Utterance(tc.input, tc.max); got != tc.want {
			t.Errorf("%s: Utterance(%q) = %q, want %q", tc.name, tc.input, got, tc.want)
		}
	}
}
