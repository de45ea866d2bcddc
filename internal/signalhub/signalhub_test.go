package signalhub

import (
	"testing"
	"time"
)

func TestNeedNewSizeSetAndClear(t *testing.T) {
	h := &Hub{savedStderr: -1}
	if h.NeedNewSize() {
		t.Fatal("NeedNewSize should start false")
	}
	h.needNewSize.Store(true)
	if !h.NeedNewSize() {
		t.Fatal("NeedNewSize should report true once set")
	}
	if h.NeedNewSize() {
		t.Fatal("NeedNewSize should clear after being read")
	}
}

func TestStoppedOffsetAccumulates(t *testing.T) {
	h := &Hub{savedStderr: -1}
	h.mu.Lock()
	h.stopTime = time.Now().Add(-2 * time.Second)
	h.mu.Unlock()

	hadStop := !h.stopTime.IsZero()
	if !hadStop {
		t.Fatal("expected stop recorded")
	}
	h.mu.Lock()
	h.stoppedOffset += time.Since(h.stopTime)
	h.stopTime = time.Time{}
	h.mu.Unlock()

	if h.StoppedOffset() < 2*time.Second {
		t.Errorf("StoppedOffset = %v, want >= 2s", h.StoppedOffset())
	}

	h.ResetStoppedOffset()
	if h.StoppedOffset() != 0 {
		t.Error("ResetStoppedOffset did not zero the offset")
	}
}
