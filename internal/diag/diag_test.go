package diag

import (
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	colored := Red("oops")
	if stripANSI(colored) != "oops" {
		t.Errorf("stripANSI(%q) = %q, want %q", colored, stripANSI(colored), "oops")
	}
}

func TestPadRightAccountsForANSI(t *testing.T) {
	colored := Yellow("hi")
	padded := padRight(colored, 5)
	if len(stripANSI(padded)) != 5 {
		t.Errorf("padded visible length = %d, want 5", len(stripANSI(padded)))
	}
}

func TestPadRightNoTruncation(t *testing.T) {
	s := "abcdef"
	if padRight(s, 3) != s {
		t.Errorf("padRight should not truncate: got %q", padRight(s, 3))
	}
}

func TestWarningIncludesContext(t *testing.T) {
	msg := Warning("streampv", "input.txt", "permission denied")
	if !strings.Contains(msg, "permission denied") {
		t.Errorf("Warning message missing detail: %q", msg)
	}
}
