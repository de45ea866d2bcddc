// Package display implements the display formatter: a single status
// line assembled from rate-smoothed, SI-scaled transfer figures and an
// optional progress bar. Each line is built fresh; the formatter tracks
// an output-buffer capacity figure that grows with the terminal width
// and is used only to reject absurd widths.
package display

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmagro/streampv/internal/siunit"
)

// maxSaneWidth bounds how large a terminal width we will try to lay a
// line out for; anything past this is treated as an allocation failure
// and the tick is skipped.
const maxSaneWidth = 1 << 20

// ErrBufferAlloc is returned by Render when the requested width is beyond
// what the output buffer can be grown to; the caller should OR
// config.ExitDisplayMalloc into its exit status and skip this tick.
var ErrBufferAlloc = errors.New("display: output buffer allocation failed")

const (
	etaClamp     = 360000000
	percentLow   = 0
	percentHigh  = 100000
	sawtoothWrap = 200
)

// Options configures which components of the line are shown, matching
// the display-toggle flags one-to-one.
type Options struct {
	Name            string
	ShowProgress    bool
	ShowTimer       bool
	ShowETA         bool
	ShowRate        bool
	ShowAverageRate bool
	ShowBytes       bool
	Numeric         bool
	LineMode        bool // SI ratio 1000 instead of 1024
	TotalSize       int64
	Width           int
}

// Formatter holds the state that must persist across ticks: the smoothed
// rate, its carry-over residue, the unknown-size sawtooth percentage, and
// the tracked output-buffer capacity.
type Formatter struct {
	opts Options

	prevElapsed float64
	prevRate    float64
	carryOver   float64
	percentage  int64

	bufCap int
}

// New returns a formatter for the given display options.
func New(opts Options) *Formatter {
	return &Formatter{opts: opts}
}

// SetWidth updates the terminal width used for line layout, e.g. after a
// SIGWINCH-driven resize.
func (f *Formatter) SetWidth(w int) {
	f.opts.Width = w
}

// Render produces one status line. elapsed is the total seconds since the
// transfer (logically) began; sinceLast is the bytes moved since the
// previous tick, or a negative value to request a final update (rate then
// equals the average over the whole transfer); total is the cumulative
// byte count transferred so far.
func (f *Formatter) Render(elapsed float64, sinceLast int64, total int64) (string, error) {
	final := sinceLast < 0

	rate := f.smoothRate(elapsed, sinceLast, total, final)
	f.advanceSawtooth(rate)

	percent := f.percentForTick(total)

	if f.opts.Numeric {
		return numericLine(percent), nil
	}

	if err := f.ensureBuffer(f.opts.Width); err != nil {
		return "", err
	}

	var eta int64
	if f.opts.TotalSize > 0 {
		eta = calcETA(total, f.opts.TotalSize, int64(elapsed))
	}

	var b strings.Builder

	if f.opts.Name != "" {
		fmt.Fprintf(&b, "%9s: ", f.opts.Name)
	}

	if f.opts.ShowBytes {
		b.WriteString(formatSI(total, f.ratio(), f.bytesUnit()))
		b.WriteByte(' ')
	}

	if f.opts.ShowTimer {
		b.WriteString(formatTimer(clampDuration(int64(elapsed))))
		b.WriteByte(' ')
	}

	if f.opts.ShowRate {
		b.WriteString("[" + formatSIRate(rate, f.ratio(), f.rateUnit()) + "] ")
	}

	if f.opts.ShowAverageRate {
		avg := averageRate(total, elapsed)
		b.WriteString("[" + formatSIRate(avg, f.ratio(), f.rateUnit()) + "] ")
	}

	etaField := ""
	if f.opts.ShowETA && f.opts.TotalSize > 0 {
		if final {
			etaField = strings.Repeat(" ", len("ETA 0:00:00")+1)
		} else {
			if eta < 0 {
				eta = 0
			}
			etaField = " ETA " + formatTimer(clampDuration(eta))
		}
	}

	if f.opts.ShowProgress {
		avail := f.opts.Width - len(b.String()) - len(etaField) - 3
		if avail < 0 {
			avail = 0
		}
		if f.opts.TotalSize > 0 {
			b.WriteString(renderKnownBar(avail, clampPercent(percent)))
		} else {
			b.WriteString(renderUnknownBar(avail, percent))
		}
	}

	b.WriteString(etaField)

	return b.String(), nil
}

// ratio selects the SI scaling base: 1000 for line-valued quantities,
// 1024 for byte-valued quantities.
func (f *Formatter) ratio() float64 {
	if f.opts.LineMode {
		return 1000
	}
	return 1024
}

// bytesUnit and rateUnit are the units suffix appended after the SI
// prefix letter: "B"/"B/s" when counting bytes, ""/"/s" in line mode.
func (f *Formatter) bytesUnit() string {
	if f.opts.LineMode {
		return ""
	}
	return "B"
}

func (f *Formatter) rateUnit() string {
	if f.opts.LineMode {
		return "/s"
	}
	return "B/s"
}

// smoothRate computes the displayed instantaneous rate, publishing the
// result into f.prevRate for the next tick (and for the carry-over
// bookkeeping) before returning it. Ticks closer together than 10ms
// reuse the previous rate and defer their bytes to the next tick.
func (f *Formatter) smoothRate(elapsed float64, sinceLast, total int64, final bool) float64 {
	var rate float64
	if final {
		e := elapsed
		if e < 0.000001 {
			e = 0.000001
		}
		rate = float64(total) / e
	} else {
		delta := elapsed - f.prevElapsed
		if delta <= 0.01 {
			rate = f.prevRate
			f.carryOver += float64(sinceLast)
		} else {
			rate = (float64(sinceLast) + f.carryOver) / delta
			f.prevElapsed = elapsed
			f.carryOver = 0
		}
	}
	f.prevRate = rate
	return rate
}

// advanceSawtooth bumps the unknown-size pulse by 2 per tick while data
// is flowing, wrapping at 200.
func (f *Formatter) advanceSawtooth(rate float64) {
	if rate > 0 {
		f.percentage += 2
	}
	if f.percentage > sawtoothWrap-1 {
		f.percentage = 0
	}
}

// percentForTick returns the percent to display this tick: the computed
// total/total_size fraction when a total size is known, otherwise the
// free-running sawtooth.
func (f *Formatter) percentForTick(total int64) int64 {
	if f.opts.TotalSize > 0 {
		return (total * 100) / f.opts.TotalSize
	}
	return f.percentage
}

func averageRate(total int64, elapsed float64) float64 {
	if elapsed < 0.000001 {
		elapsed = 0.000001
	}
	return float64(total) / elapsed
}

func calcETA(soFar, total, elapsed int64) int64 {
	if soFar < 1 {
		return 0
	}
	bytesLeft := total - soFar
	return (bytesLeft * elapsed) / soFar
}

func clampDuration(secs int64) int64 {
	if secs < 0 {
		return 0
	}
	if secs > etaClamp {
		return etaClamp
	}
	return secs
}

func clampPercent(p int64) int64 {
	if p < percentLow {
		return percentLow
	}
	if p > percentHigh {
		return percentHigh
	}
	return p
}

func formatTimer(secs int64) string {
	h := secs / 3600
	m := (secs / 60) % 60
	s := secs % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func numericLine(percent int64) string {
	if percent > 100 {
		percent = sawtoothWrap - percent
	}
	return fmt.Sprintf("%d\n", percent)
}

func formatSI(v int64, ratio float64, units string) string {
	scaled := siunit.Scale(float64(v), ratio)
	return fmt.Sprintf("%4.3g%s%s", clampScaled(scaled.Value), scaled.Prefix, units)
}

func formatSIRate(v float64, ratio float64, units string) string {
	scaled := siunit.Scale(v, ratio)
	return fmt.Sprintf("%4.3g%s%s", clampScaled(scaled.Value), scaled.Prefix, units)
}

// clampScaled bounds the already-scaled value at 100,000 before
// formatting. The bound applies after scaling, not to the raw input, so
// it only bites once the prefix alphabet is exhausted. Scaled display
// values are never negative, so the lower bound is a no-op.
func clampScaled(v float64) float64 {
	return siunit.Clamp(v, 0, 100000)
}

// renderKnownBar renders the `[===>    ] NN%` bar for a known total size.
func renderKnownBar(avail int, percent int64) string {
	suffix := fmt.Sprintf("%2d%%", percent)
	inner := avail - len(suffix) - 3
	if inner < 0 {
		inner = 0
	}

	fillTo := int((int64(inner) * percent) / 100)
	fillTo--
	if fillTo < 0 {
		fillTo = 0
	}
	if fillTo > inner {
		fillTo = inner
	}

	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(strings.Repeat("=", fillTo))
	if fillTo < inner {
		b.WriteByte('>')
		fillTo++
	}
	if fillTo < inner {
		b.WriteString(strings.Repeat(" ", inner-fillTo))
	}
	b.WriteString("] ")
	b.WriteString(suffix)
	return b.String()
}

// renderUnknownBar renders the sawtooth `<=>` cursor bar for an unknown
// total size: it sweeps left-to-right for p<=100 then right-to-left for
// p in (100,200].
func renderUnknownBar(avail int, percentage int64) string {
	p := percentage
	if p > 100 {
		p = sawtoothWrap - p
	}

	pos := int((int64(avail) * p) / 100)
	if pos < 0 {
		pos = 0
	}
	if pos > avail {
		pos = avail
	}

	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(strings.Repeat(" ", pos))
	b.WriteString("<=>")
	trailing := avail - pos - 3
	if trailing > 0 {
		b.WriteString(strings.Repeat(" ", trailing))
	}
	b.WriteByte(']')
	return b.String()
}

// ensureBuffer tracks the output buffer capacity, which only grows
// (never shrinks) and is reallocated once it falls behind 2x the
// current width.
func (f *Formatter) ensureBuffer(width int) error {
	if width < 0 || width > maxSaneWidth {
		return ErrBufferAlloc
	}
	need := width * 2
	if f.bufCap < need {
		f.bufCap = need + 80
	}
	return nil
}
