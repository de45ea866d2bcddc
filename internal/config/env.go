package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadDefaultsFile reads an optional `~/.streampvrc` file and sets each
// KEY=VALUE line as an environment variable (STREAMPV_PROGRESS=1,
// STREAMPV_INTERVAL=2, ...). ApplyEnvDefaults reads these back, and
// cmd/streampv calls it to seed defaults before flag registration. A
// variable already set in the environment is not overwritten. A missing or unreadable file is not an error; system/shell
// environment variables still work without it.
func LoadDefaultsFile() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	data, err := os.ReadFile(filepath.Join(home, ".streampvrc"))
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if _, already := os.LookupEnv(key); !already {
			os.Setenv(key, value)
		}
	}
}

// ApplyEnvDefaults seeds c's display toggles and numeric fields from any
// STREAMPV_* environment variables set (whether by the shell or by
// LoadDefaultsFile's ~/.streampvrc loader), before flag registration
// applies its own defaults. A flag explicitly given on the command line
// always wins, since pflag overwrites these fields when Execute runs.
func (c *Config) ApplyEnvDefaults() {
	envBool(&c.ShowProgress, "STREAMPV_PROGRESS")
	envBool(&c.ShowTimer, "STREAMPV_TIMER")
	envBool(&c.ShowETA, "STREAMPV_ETA")
	envBool(&c.ShowRate, "STREAMPV_RATE")
	envBool(&c.ShowAverageRate, "STREAMPV_AVERAGE_RATE")
	envBool(&c.ShowBytes, "STREAMPV_BYTES")
	envBool(&c.Numeric, "STREAMPV_NUMERIC")
	envBool(&c.Force, "STREAMPV_FORCE")
	envBool(&c.Quiet, "STREAMPV_QUIET")
	envBool(&c.Wait, "STREAMPV_WAIT")
	envBool(&c.Cursor, "STREAMPV_CURSOR")
	envBool(&c.LineMode, "STREAMPV_LINE_MODE")

	envFloat(&c.Interval, "STREAMPV_INTERVAL")
	envInt(&c.Width, "STREAMPV_WIDTH")
	envInt(&c.Height, "STREAMPV_HEIGHT")

	if v, ok := os.LookupEnv("STREAMPV_NAME"); ok {
		c.Name = v
	}
}

func envBool(dst *bool, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

func envFloat(dst *float64, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
