package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteFinalNoopWithoutPath(t *testing.T) {
	r := New("")
	if err := r.WriteFinal(100, time.Second, nil); err != nil {
		t.Fatalf("WriteFinal with empty path returned error: %v", err)
	}
}

func TestWriteFinalWritesSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	r := New(path)
	inputs := []InputSummary{{Path: "a.txt", Bytes: 1024}, {Path: "b.txt", Bytes: 1024}}
	if err := r.WriteFinal(2048, 2*time.Second, inputs); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatal(err)
	}
	if s.TotalBytes != 2048 {
		t.Errorf("TotalBytes = %d, want 2048", s.TotalBytes)
	}
	if s.AverageRateBytes != 1024 {
		t.Errorf("AverageRateBytes = %v, want 1024", s.AverageRateBytes)
	}
	if len(s.Inputs) != 2 || s.Inputs[0].Path != "a.txt" || s.Inputs[1].Bytes != 1024 {
		t.Errorf("Inputs = %+v, want two entries matching %+v", s.Inputs, inputs)
	}
}

func TestMillisDurationMarshal(t *testing.T) {
	b, err := MillisDuration(1500 * time.Millisecond).MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "1500" {
		t.Errorf("marshaled = %s, want 1500", b)
	}
}
