package numeric

import "testing"

func TestParseCountSuffixes(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"4096", 4096},
		{"1K", 1 << 10},
		{"1M", 1 << 20},
		{"1G", 1 << 30},
		{"1T", 1 << 40},
		{"1k", 1 << 10},
		{"10", 10},
		{"", 0},
		{"abc", 0},
	}
	for _, c := range cases {
		if got := ParseCount(c.in); got != c.want {
			t.Errorf("ParseCount(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseCountFractional(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1.5K", 1536},
		{"1.5M", (1 << 20) + (1 << 19)},
		{"0.5G", 1 << 29},
	}
	for _, c := range cases {
		if got := ParseCount(c.in); got != c.want {
			t.Errorf("ParseCount(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseCountIgnoresExtraFractionDigits(t *testing.T) {
	// Only four fractional digits are honored; extras are scanned and dropped.
	got := ParseCount("1.123456789K")
	want := ParseCount("1.1234K")
	if got != want {
		t.Errorf("ParseCount with >4 frac digits = %d, want %d", got, want)
	}
}

func TestParseCountSkipsLeadingNonDigits(t *testing.T) {
	if got := ParseCount("=10M"); got != 10<<20 {
		t.Errorf("ParseCount(\"=10M\") = %d, want %d", got, int64(10)<<20)
	}
}

func TestParseReal(t *testing.T) {
	if got := ParseReal("0.1"); got < 0.0999 || got > 0.1001 {
		t.Errorf("ParseReal(\"0.1\") = %v", got)
	}
	if got := ParseReal("600"); got != 600 {
		t.Errorf("ParseReal(\"600\") = %v", got)
	}
	if got := ParseReal(""); got != 0 {
		t.Errorf("ParseReal(\"\") = %v, want 0", got)
	}
}

func TestTrimSuffixLetter(t *testing.T) {
	if trimmed, ok := TrimSuffixLetter("10M"); !ok || trimmed != "10" {
		t.Errorf("TrimSuffixLetter(10M) = %q, %v", trimmed, ok)
	}
	if _, ok := TrimSuffixLetter("10"); ok {
		t.Errorf("TrimSuffixLetter(10) should have no suffix")
	}
}
