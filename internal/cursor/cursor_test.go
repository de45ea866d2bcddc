package cursor

import "testing"

func TestParseCPR(t *testing.T) {
	row, ok := parseCPR([]byte("\x1b[24;1R"))
	if !ok {
		t.Fatal("expected successful parse")
	}
	if row != 24 {
		t.Errorf("row = %d, want 24", row)
	}
}

func TestParseCPRRejectsGarbage(t *testing.T) {
	if _, ok := parseCPR([]byte("garbage")); ok {
		t.Error("expected parse failure on non-CPR input")
	}
}

func TestClampRow(t *testing.T) {
	if got := clampRow(0); got != 1 {
		t.Errorf("clampRow(0) = %d, want 1", got)
	}
	if got := clampRow(2_000_000); got != 999999 {
		t.Errorf("clampRow(2000000) = %d, want 999999", got)
	}
}

func TestNeedReinitSaturatesAtThree(t *testing.T) {
	c := &Coordinator{}
	c.NeedReinit()
	c.NeedReinit()
	c.NeedReinit()
	if c.needReinit != 3 {
		t.Errorf("needReinit = %d, want saturated at 3", c.needReinit)
	}
}

func TestFtokDeterministic(t *testing.T) {
	dir := t.TempDir()
	k1, err := ftok(dir, 'p')
	if err != nil {
		t.Fatal(err)
	}
	k2, err := ftok(dir, 'p')
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Errorf("ftok not deterministic for same path: %d != %d", k1, k2)
	}
}
