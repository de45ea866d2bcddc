// Package config holds the streampv configuration record and the
// normalization rules applied to it after flags are parsed: an immutable
// record built once at startup and consumed by every other package, plus
// a best-effort .env-style loader for ambient defaults.
package config

import (
	"fmt"
	"strings"
)

// Bit values accumulated into Config.ExitStatus.
const (
	ExitGeneral       = 1 << 0
	ExitDisplayMalloc = 1 << 6 // bit 64
)

const (
	minInterval = 0.1
	maxInterval = 600.0

	minDim = 1
	maxDim = 999999

	minNameWidth = 9
	maxNameWidth = 500

	defaultBufferSize = 409600
	hardBufferCap     = 524288
)

// Config is the immutable-after-parsing configuration record. A handful
// of fields are updated by the engine after Normalize: Inputs, TotalSize
// and ShowETA by the preflight pass, BufferSize from the first input's
// block size, Cursor when coordination fails, Width/Height at startup
// and on resize, and ExitStatus; everything else is fixed once Normalize
// returns.
type Config struct {
	ShowProgress    bool
	ShowTimer       bool
	ShowETA         bool
	ShowRate        bool
	ShowAverageRate bool
	ShowBytes       bool

	Numeric  bool
	Force    bool
	Quiet    bool
	Wait     bool
	Cursor   bool
	LineMode bool

	TotalSize  int64
	RateLimit  int64
	BufferSize int
	// BufferSizeExplicit is true once --buffer-size was given on the
	// command line, bypassing RaiseBufferSize's hard cap.
	BufferSizeExplicit bool

	Interval float64

	Width  int
	Height int

	Name string

	Inputs []string

	ProgramName string

	JSONReportPath string

	ExitStatus int
}

// Defaults returns a Config with the default display toggles (progress,
// timer, ETA, rate, bytes all on, applied when no display toggle is
// given) and the unset-value sentinels flag parsing overwrites.
func Defaults() Config {
	return Config{
		ShowProgress:    true,
		ShowTimer:       true,
		ShowETA:         true,
		ShowRate:        true,
		ShowAverageRate: false,
		ShowBytes:       true,
		Interval:        1.0,
		BufferSize:      0,
		ProgramName:     "streampv",
	}
}

// AnyDisplayToggleSet reports whether the caller explicitly asked for at
// least one display component, used by cmd/streampv to decide whether to
// fall back to the default toggle set (Defaults() with any STREAMPV_*
// overrides applied).
func (c Config) AnyDisplayToggleSet() bool {
	return c.ShowProgress || c.ShowTimer || c.ShowETA || c.ShowRate ||
		c.ShowAverageRate || c.ShowBytes
}

// Normalize applies the clamps and derived-field rules: interval in
// [0.1, 600], width/height in [1, 999999], numeric mode suppressing
// every other component, and the buffer-size default. The ETA-off rule
// for an unknown total size is applied by the engine after preflight,
// once TotalSize has been resolved from the inputs.
func (c *Config) Normalize() {
	if c.Interval < minInterval {
		c.Interval = minInterval
	}
	if c.Interval > maxInterval {
		c.Interval = maxInterval
	}

	// Width/Height of 0 mean "not given on the command line"; they are
	// resolved from TIOCGWINSZ (falling back to 80x25) by the engine at
	// startup rather than clamped here, since clamping a 0 into the
	// [1, 999999] range would wrongly pin an unset dimension to 1.
	if c.Width != 0 {
		c.Width = clampInt(c.Width, minDim, maxDim)
	}
	if c.Height != 0 {
		c.Height = clampInt(c.Height, minDim, maxDim)
	}

	if c.Numeric {
		c.ShowProgress = false
		c.ShowTimer = false
		c.ShowETA = false
		c.ShowRate = false
		c.ShowAverageRate = false
		c.ShowBytes = false
		c.Name = ""
	}

	if c.Name != "" {
		if len(c.Name) < minNameWidth {
			c.Name = c.Name + strings.Repeat(" ", minNameWidth-len(c.Name))
		}
		if len(c.Name) > maxNameWidth {
			c.Name = c.Name[:maxNameWidth]
		}
	}

	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}

	if len(c.Inputs) == 0 {
		c.Inputs = []string{"-"}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RaiseBufferSize raises BufferSize toward blksize*32, applied once at
// startup from the first input's stat. It never lowers BufferSize and
// never exceeds the hard cap when the size wasn't set explicitly by the
// user (explicitOverride is true once --buffer-size was given, which
// bypasses the cap entirely).
func (c *Config) RaiseBufferSize(blksize int64, explicitOverride bool) {
	if explicitOverride {
		return
	}
	candidate := blksize * 32
	if candidate <= int64(c.BufferSize) {
		return
	}
	if candidate > hardBufferCap {
		candidate = hardBufferCap
	}
	c.BufferSize = int(candidate)
}

// Diagnostic formats a "program: context: message: detail" line.
func (c Config) Diagnostic(context, message string, detail error) string {
	if detail == nil {
		return fmt.Sprintf("%s: %s: %s", c.ProgramName, context, message)
	}
	return fmt.Sprintf("%s: %s: %s: %v", c.ProgramName, context, message, detail)
}
