package phone

import (
	"strings"
	"testing"
)

func TestAcceptRejectsShortFragments(t *testing.T) {
	for _, input := range []string{"12", "0207 12", "123456789"} {
		if _, ok := Accept(input); ok {
			t.Errorf("Accept(%q) should reject a partial number", input)
		}
	}
}

func TestAcceptNormalisesMobile(t *testing.T) {
	got, ok := Accept("07912 345678")
	if !ok {
		t.Fatalf("expected mobile number to be accepted")
	}
	if !strings.HasSuffix(got, "7912345678") {
		t.Fatalf("expected normalised number to keep subscriber digits, got %q", got)
	}
}

func TestNormalizeE164KeepsUnparsableInput(t *testing.T) {
	if got := NormalizeE164("  not a number "); got != "not a number" {
		t.Fatalf("expected trimmed input back, got %q", got)
	}
}
