// Package engine implements the main loop: it wires the input source
// manager, transfer engine, pacing limiter, display formatter, cursor
// coordinator and signal hub together into the single event-driven loop
// that drives one streampv run end to end. The loop runs on one
// goroutine with explicit schedule variables; signal-hub flags are
// consulted once per tick rather than acted on inline.
package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/dmagro/streampv/internal/config"
	"github.com/dmagro/streampv/internal/cursor"
	"github.com/dmagro/streampv/internal/diag"
	"github.com/dmagro/streampv/internal/display"
	"github.com/dmagro/streampv/internal/pacing"
	"github.com/dmagro/streampv/internal/report"
	"github.com/dmagro/streampv/internal/signalhub"
	"github.com/dmagro/streampv/internal/source"
	"github.com/dmagro/streampv/internal/transfer"
	"golang.org/x/sys/unix"
)

// Run executes one streampv invocation to completion, returning the
// process exit status bitmask.
func Run(cfg *config.Config) int {
	kept, warnings := preflight(cfg)
	labelWidth := 0
	for _, w := range warnings {
		if len(w.Path) > labelWidth {
			labelWidth = len(w.Path)
		}
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, diag.Warning(cfg.ProgramName, diag.Label(w.Path, labelWidth), w.Err.Error()))
		cfg.ExitStatus |= config.ExitGeneral
	}
	cfg.Inputs = kept

	quiet := cfg.Quiet || (!isTerminal(int(os.Stderr.Fd())) && !cfg.Force && !cfg.Numeric)

	resolveWinsize(cfg)

	var crs *cursor.Coordinator
	if cfg.Cursor {
		crs = cursor.New(cfg.Height)
		cfg.Cursor = crs.Enabled()
		if !cfg.Cursor {
			// Coordination failed; fall back to the plain
			// carriage-return overwrite path below.
			crs = nil
		}
	}

	hub := signalhub.New(func() {
		if crs != nil {
			crs.NeedReinit()
		}
	})
	defer hub.Close()

	formatter := display.New(display.Options{
		Name:            cfg.Name,
		ShowProgress:    cfg.ShowProgress,
		ShowTimer:       cfg.ShowTimer,
		ShowETA:         cfg.ShowETA,
		ShowRate:        cfg.ShowRate,
		ShowAverageRate: cfg.ShowAverageRate,
		ShowBytes:       cfg.ShowBytes,
		Numeric:         cfg.Numeric,
		LineMode:        cfg.LineMode,
		TotalSize:       cfg.TotalSize,
		Width:           cfg.Width,
	})

	limiter := &pacing.Limiter{RateLimit: cfg.RateLimit}

	xfer := transfer.New()
	defer xfer.Free()

	rep := report.New(cfg.JSONReportPath)

	n := 0
	fd, done, err := source.OpenNext(cfg.Inputs, n, -1)
	if err != nil {
		fmt.Fprintln(os.Stderr, diag.Fatal(cfg.ProgramName, cfg.Inputs[n], "open: "+err.Error()))
		return config.ExitGeneral
	}
	if done {
		fd = int(os.Stdin.Fd())
	}
	unix.SetNonblock(fd, true)
	unix.SetNonblock(int(os.Stdout.Fd()), true)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err == nil {
		cfg.RaiseBufferSize(int64(st.Blksize), cfg.BufferSizeExplicit)
	}

	startTime := time.Now()
	nextUpdate := startTime.Add(time.Duration(cfg.Interval * float64(time.Second)))
	limiter.Reset(startTime)

	eofIn, eofOut := false, false
	var totalBytes, displayTotal, sinceLastDisplay int64
	inputBytes := make([]int64, len(cfg.Inputs))
	finalUpdate := false
	waiting := cfg.Wait
	var lastBackgroundCheck time.Time

	for !(eofIn && eofOut) || !finalUpdate {
		now := time.Now()

		allowed, rateLimited := limiter.Allowed(now)

		written, xerr := xfer.Transfer(cfg.BufferSize, fd, int(os.Stdout.Fd()), &eofIn, &eofOut, allowed, rateLimited)
		if xerr != nil {
			fmt.Fprintln(os.Stderr, diag.Fatal(cfg.ProgramName, "transfer", "read/write failed: "+xerr.Error()))
			return cfg.ExitStatus | config.ExitGeneral
		}

		totalBytes += written
		if n < len(inputBytes) {
			inputBytes[n] += written
		}

		metric := written
		if cfg.LineMode {
			metric = int64(xfer.LastLineCount())
		}
		sinceLastDisplay += metric
		displayTotal += metric
		limiter.Spend(written)

		if eofIn && eofOut && n < len(cfg.Inputs)-1 {
			n++
			fd, done, err = source.OpenNext(cfg.Inputs, n, fd)
			if err != nil {
				fmt.Fprintln(os.Stderr, diag.Fatal(cfg.ProgramName, cfg.Inputs[n], "open: "+err.Error()))
				return cfg.ExitStatus | config.ExitGeneral
			}
			unix.SetNonblock(fd, true)
			eofIn, eofOut = false, false
		}

		now = time.Now()
		if eofIn && eofOut {
			finalUpdate = true
			nextUpdate = now.Add(-time.Second)
		}

		if quiet {
			continue
		}

		if waiting {
			if written < 1 {
				continue
			}
			waiting = false
			hub.PauseDisable()
			startTime = now
			hub.ResetStoppedOffset()
			hub.PauseEnable()
			nextUpdate = startTime.Add(time.Duration(cfg.Interval * float64(time.Second)))
		}

		if now.Before(nextUpdate) {
			continue
		}
		nextUpdate = nextUpdate.Add(time.Duration(cfg.Interval * float64(time.Second)))
		if nextUpdate.Before(now) {
			nextUpdate = now
		}

		if hub.NeedNewSize() {
			if w, h, err := queryWinsize(int(os.Stderr.Fd())); err == nil {
				cfg.Width, cfg.Height = w, h
				formatter.SetWidth(w)
			}
		}
		if now.Sub(lastBackgroundCheck) >= time.Second {
			lastBackgroundCheck = now
			hub.CheckBackground()
		}

		elapsed := now.Sub(startTime) + hub.StoppedOffset()

		reportTick := sinceLastDisplay
		if finalUpdate {
			reportTick = -1
		}

		line, rerr := formatter.Render(elapsed.Seconds(), reportTick, displayTotal)
		if rerr != nil {
			cfg.ExitStatus |= config.ExitDisplayMalloc
		} else if crs != nil {
			crs.Update(line)
		} else {
			fmt.Fprint(os.Stderr, line+"\r")
		}

		sinceLastDisplay = 0
	}

	if crs != nil {
		crs.Finish()
	} else if !cfg.Numeric && !quiet {
		fmt.Fprintln(os.Stderr)
	}

	inputSummaries := make([]report.InputSummary, len(cfg.Inputs))
	for i, path := range cfg.Inputs {
		inputSummaries[i] = report.InputSummary{Path: path, Bytes: inputBytes[i]}
	}
	rep.WriteFinal(totalBytes, time.Since(startTime), inputSummaries)

	return cfg.ExitStatus
}

// preflight resolves the total size from the inputs (unless -s already
// supplied one) and applies the rule that depends on it: ETA can only
// be shown once a total is known.
func preflight(cfg *config.Config) (kept []string, warnings []source.Warning) {
	total, kept, warnings := source.TotalSize(cfg.Inputs)
	if cfg.TotalSize == 0 {
		cfg.TotalSize = total
	}
	if cfg.TotalSize == 0 {
		cfg.ShowETA = false
	}
	return kept, warnings
}

func isTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, tcgetsConst)
	return err == nil
}

// defaultWidth/defaultHeight are the fallback dimensions used when
// TIOCGWINSZ fails (standard error is not a terminal, or the ioctl
// itself errors) and no explicit --width/--height was given.
const (
	defaultWidth  = 80
	defaultHeight = 25
)

// resolveWinsize fills in cfg.Width/Height when the user left them at
// the "not given" sentinel of 0: query TIOCGWINSZ on standard error
// first, falling back to 80x25.
func resolveWinsize(cfg *config.Config) {
	if cfg.Width != 0 && cfg.Height != 0 {
		return
	}
	w, h, err := queryWinsize(int(os.Stderr.Fd()))
	if cfg.Width == 0 {
		if err == nil && w > 0 {
			cfg.Width = w
		} else {
			cfg.Width = defaultWidth
		}
	}
	if cfg.Height == 0 {
		if err == nil && h > 0 {
			cfg.Height = h
		} else {
			cfg.Height = defaultHeight
		}
	}
}

func queryWinsize(fd int) (width, height int, err error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}
