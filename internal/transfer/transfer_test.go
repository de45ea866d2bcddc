package transfer

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func pipePair(t *testing.T) (r, w *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := unix.SetNonblock(int(r.Fd()), true); err != nil {
		t.Fatal(err)
	}
	if err := unix.SetNonblock(int(w.Fd()), true); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}

func TestTransferPassthrough(t *testing.T) {
	inR, inW := pipePair(t)
	outR, outW := pipePair(t)

	payload := []byte("hello, world")
	if _, err := inW.Write(payload); err != nil {
		t.Fatal(err)
	}
	inW.Close()

	e := New()
	eofIn, eofOut := false, false
	var total []byte

	for i := 0; i < 100 && !(eofIn && eofOut); i++ {
		n, err := e.Transfer(4096, int(inR.Fd()), int(outW.Fd()), &eofIn, &eofOut, 0, false)
		if err != nil {
			t.Fatalf("Transfer error: %v", err)
		}
		if n > 0 {
			buf := make([]byte, n)
			if _, rerr := outR.Read(buf); rerr != nil {
				t.Fatal(rerr)
			}
			total = append(total, buf...)
		}
	}

	if string(total) != string(payload) {
		t.Errorf("got %q, want %q", total, payload)
	}
	if !eofIn || !eofOut {
		t.Errorf("expected both EOFs set, got eofIn=%v eofOut=%v", eofIn, eofOut)
	}
}

func TestTransferBufferInvariant(t *testing.T) {
	inR, inW := pipePair(t)
	outR, outW := pipePair(t)
	_ = outR

	inW.Write([]byte("abc"))

	e := New()
	eofIn, eofOut := false, false
	e.Transfer(4096, int(inR.Fd()), int(outW.Fd()), &eofIn, &eofOut, 0, false)

	filled, consumed := e.FilledConsumed()
	if consumed < 0 || consumed > filled || filled > 4096 {
		t.Errorf("invariant violated: consumed=%d filled=%d", consumed, filled)
	}
}

func TestTransferBothEOFReturnsImmediately(t *testing.T) {
	e := New()
	eofIn, eofOut := true, true
	n, err := e.Transfer(4096, -1, -1, &eofIn, &eofOut, 0, false)
	if n != 0 || err != nil {
		t.Errorf("Transfer with both EOF = %d, %v, want 0, nil", n, err)
	}
}

func TestTransferLastLineCountTracksNewlines(t *testing.T) {
	inR, inW := pipePair(t)
	outR, outW := pipePair(t)
	_ = outR

	inW.Write([]byte("a\nb\nc"))
	inW.Close()

	e := New()
	eofIn, eofOut := false, false
	var lines int

	for i := 0; i < 100 && !(eofIn && eofOut); i++ {
		n, err := e.Transfer(4096, int(inR.Fd()), int(outW.Fd()), &eofIn, &eofOut, 0, false)
		if err != nil {
			t.Fatalf("Transfer error: %v", err)
		}
		if n > 0 {
			buf := make([]byte, n)
			outR.Read(buf)
			lines += e.LastLineCount()
		}
	}

	if lines != 2 {
		t.Errorf("LastLineCount total = %d, want 2", lines)
	}
}

func TestTransferRespectsRateLimitClamp(t *testing.T) {
	inR, inW := pipePair(t)
	_, outW := pipePair(t)

	inW.Write(make([]byte, 1000))

	e := New()
	eofIn, eofOut := false, false
	var written int64
	for i := 0; i < 5 && written == 0; i++ {
		n, err := e.Transfer(4096, int(inR.Fd()), int(outW.Fd()), &eofIn, &eofOut, 50, true)
		if err != nil {
			t.Fatal(err)
		}
		written = n
	}
	if written > 50 {
		t.Errorf("wrote %d bytes, exceeding allowed=50", written)
	}
}
