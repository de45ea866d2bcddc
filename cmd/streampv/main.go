// Command streampv pipes standard input to standard output (or reads
// one or more named files in sequence), reporting transfer progress to
// standard error. It is a single cobra root command with no
// subcommands; pflag, cobra's flag package, provides the POSIX
// short-flag bundling and the SI-suffixed custom Value types below.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dmagro/streampv/internal/config"
	"github.com/dmagro/streampv/internal/engine"
	"github.com/dmagro/streampv/internal/numeric"
)

// sizeValue adapts internal/numeric's SI-suffixed integer parser into
// pflag.Value, so -s 4M / -L 2k / -B 512k are accepted exactly like the
// rest of the flag set instead of needing a second parsing pass.
type sizeValue struct{ v *int64 }

var _ pflag.Value = sizeValue{}

func (s sizeValue) String() string { return fmt.Sprintf("%d", *s.v) }
func (s sizeValue) Set(raw string) error {
	value := strings.TrimSpace(raw)
	if trimmed, hasSuffix := numeric.TrimSuffixLetter(value); hasSuffix && trimmed == "" {
		return fmt.Errorf("invalid size %q: suffix with no digits before it", raw)
	}
	*s.v = numeric.ParseCount(raw)
	return nil
}
func (s sizeValue) Type() string { return "size" }

// intervalValue parses fractional-second arguments with internal/numeric's
// real-valued scanner, which accepts "0.5" and "0,5" alike and never
// applies a suffix shift.
type intervalValue struct{ v *float64 }

var _ pflag.Value = intervalValue{}

func (i intervalValue) String() string { return fmt.Sprintf("%g", *i.v) }
func (i intervalValue) Set(raw string) error {
	*i.v = numeric.ParseReal(raw)
	return nil
}
func (i intervalValue) Type() string { return "seconds" }

func main() {
	config.LoadDefaultsFile()

	cfg := config.Defaults()

	// envDefaults captures the display-toggle defaults after folding in
	// ~/.streampvrc / STREAMPV_* environment overrides, for the
	// "nothing given at all" fallback below. The toggle flags themselves
	// are registered with a literal false default (see below), so this
	// copy must be taken before flag registration clobbers cfg's copy.
	envDefaults := config.Defaults()
	envDefaults.ApplyEnvDefaults()

	var bufferSize int64

	root := &cobra.Command{
		Use:   "streampv [inputs...]",
		Short: "Monitor the progress of data through a pipe",
		Long: `streampv copies standard input to standard output (or reads the given
files in order), printing a progress line to standard error describing
how much data has passed through and how fast.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Inputs = args
			if !cfg.AnyDisplayToggleSet() && !cfg.Numeric {
				cfg.ShowProgress = envDefaults.ShowProgress
				cfg.ShowTimer = envDefaults.ShowTimer
				cfg.ShowETA = envDefaults.ShowETA
				cfg.ShowRate = envDefaults.ShowRate
				cfg.ShowAverageRate = envDefaults.ShowAverageRate
				cfg.ShowBytes = envDefaults.ShowBytes
			}
			cfg.BufferSize = int(bufferSize)
			cfg.BufferSizeExplicit = cmd.Flags().Changed("buffer-size")
			cfg.Normalize()

			status := engine.Run(&cfg)
			if status != 0 {
				os.Exit(status)
			}
			return nil
		},
	}

	// Toggle flags intentionally register with a literal false default
	// (not cfg.Field's env-seeded value): "was any toggle explicitly
	// given" is detected via AnyDisplayToggleSet() above, which needs
	// every unset toggle to read false until a flag or the envDefaults
	// fallback says otherwise.
	flags := root.Flags()
	flags.BoolVarP(&cfg.ShowProgress, "progress", "p", false, "show progress bar")
	flags.BoolVarP(&cfg.ShowTimer, "timer", "t", false, "show elapsed timer")
	flags.BoolVarP(&cfg.ShowETA, "eta", "e", false, "show estimated time of arrival")
	flags.BoolVarP(&cfg.ShowRate, "rate", "r", false, "show instantaneous transfer rate")
	flags.BoolVarP(&cfg.ShowAverageRate, "average-rate", "a", false, "show average transfer rate")
	flags.BoolVarP(&cfg.ShowBytes, "bytes", "b", false, "show bytes transferred")
	flags.BoolVarP(&cfg.Force, "force", "f", envDefaults.Force, "display even when standard error is not a terminal")
	flags.BoolVarP(&cfg.Numeric, "numeric", "n", envDefaults.Numeric, "emit integer percent only, one per line")
	flags.BoolVarP(&cfg.Quiet, "quiet", "q", envDefaults.Quiet, "suppress all display")
	flags.BoolVarP(&cfg.Cursor, "cursor", "c", envDefaults.Cursor, "use absolute cursor positioning")
	flags.BoolVarP(&cfg.Wait, "wait", "W", envDefaults.Wait, "delay start until the first byte is transferred")
	flags.BoolVarP(&cfg.LineMode, "line-mode", "l", envDefaults.LineMode, "count newline-delimited records instead of bytes")

	flags.VarP(sizeValue{&cfg.TotalSize}, "size", "s", "expected total size (SI-suffixed, e.g. 4M)")
	flags.VarP(sizeValue{&cfg.RateLimit}, "rate-limit", "L", "throughput cap in bytes/s (SI-suffixed)")
	flags.VarP(sizeValue{&bufferSize}, "buffer-size", "B", "transfer buffer size override")

	cfg.Interval = envDefaults.Interval
	flags.VarP(intervalValue{&cfg.Interval}, "interval", "i", "refresh interval in seconds, clamped to [0.1, 600]")
	flags.IntVarP(&cfg.Width, "width", "w", envDefaults.Width, "terminal width override")
	flags.IntVarP(&cfg.Height, "height", "H", envDefaults.Height, "terminal height override")
	flags.StringVarP(&cfg.Name, "name", "N", envDefaults.Name, "left-hand label for the display line")
	flags.StringVar(&cfg.JSONReportPath, "json-report", "", "write a final JSON transfer summary to this path")

	var remotePID int
	flags.IntVarP(&remotePID, "remote", "R", 0, "update settings of another running instance (accepted, not implemented)")

	// Registering the version flag by hand keeps its shorthand at -V;
	// cobra's auto-added flag would claim -v instead.
	flags.BoolP("version", "V", false, "output version information and exit")
	root.SetVersionTemplate("streampv (reimplementation)\n")
	root.Version = "1.0.0"

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cfg.Diagnostic("options", "parse failed", err))
		os.Exit(config.ExitGeneral)
	}
}
