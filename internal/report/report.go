// Package report writes the optional final JSON transfer summary: a
// single JSON document describing one completed streampv run, written
// to the path given by --json-report.
package report

import (
	"encoding/json"
	"os"
	"time"
)

// MillisDuration marshals a time.Duration as an integer millisecond
// count.
type MillisDuration time.Duration

func (d MillisDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).Milliseconds())
}

// InputSummary records the bytes transferred from a single named input
// (or "-" for standard input), in the order the inputs were given.
type InputSummary struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// Summary is the JSON document written at the end of a run.
type Summary struct {
	Timestamp        time.Time      `json:"timestamp"`
	TotalBytes       int64          `json:"total_bytes"`
	DurationMS       MillisDuration `json:"duration_ms"`
	AverageRateBytes float64        `json:"average_rate_bytes_per_sec"`
	Inputs           []InputSummary `json:"inputs,omitempty"`
}

// Reporter writes at most one Summary, to the path it was constructed
// with. A Reporter built with an empty path is a no-op, so callers can
// unconditionally call WriteFinal without checking whether --json-report
// was given.
type Reporter struct {
	path string
}

// New returns a Reporter for the given path (possibly empty).
func New(path string) *Reporter {
	return &Reporter{path: path}
}

// WriteFinal writes the transfer summary, including the per-input byte
// breakdown; it silently does nothing if no path was configured, and
// returns any I/O or encoding error otherwise.
func (r *Reporter) WriteFinal(totalBytes int64, elapsed time.Duration, inputs []InputSummary) error {
	if r.path == "" {
		return nil
	}

	rate := 0.0
	if elapsed > 0 {
		rate = float64(totalBytes) / elapsed.Seconds()
	}

	summary := Summary{
		Timestamp:        time.Now(),
		TotalBytes:       totalBytes,
		DurationMS:       MillisDuration(elapsed),
		AverageRateBytes: rate,
		Inputs:           inputs,
	}

	f, err := os.Create(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
