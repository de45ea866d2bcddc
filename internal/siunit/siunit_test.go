package siunit

import "testing"

func TestScaleBytes(t *testing.T) {
	s := Scale(1048576, 1024) // 1 MiB
	if s.Prefix != "M" || s.Value < 0.99 || s.Value > 1.01 {
		t.Errorf("Scale(1MiB) = %+v", s)
	}
}

func TestScaleZero(t *testing.T) {
	s := Scale(0, 1024)
	if s.Prefix != "" || s.Value != 0 {
		t.Errorf("Scale(0) = %+v, want empty prefix and 0", s)
	}
}

func TestScaleSubUnity(t *testing.T) {
	s := Scale(0.5, 1000) // 0.5 lines/s
	if s.Prefix != "m" {
		t.Errorf("Scale(0.5) prefix = %q, want m", s.Prefix)
	}
	if s.Value < 499 || s.Value > 501 {
		t.Errorf("Scale(0.5) value = %v, want ~500", s.Value)
	}
}

func TestScaleRange(t *testing.T) {
	for _, v := range []float64{3, 3000, 3e9, 3e-3, 3e-9} {
		s := Scale(v, 1024)
		if s.Value < 1.0 && s.Value != 0 {
			t.Errorf("Scale(%v).Value = %v, below 1.0", v, s.Value)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-5, 0, 100) != 0 {
		t.Error("Clamp did not floor")
	}
	if Clamp(500, 0, 100) != 100 {
		t.Error("Clamp did not ceiling")
	}
}
