package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timestampus/internal/actuator"
	"timestampus/internal/config"
	"timestampus/internal/keystroke"
	"timestampus/internal/timestamp"
)

// run executes the CLI with fresh flag values and a config file path in a
// temporary directory.
func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	configPath, debug = "", false
	runSource, runDevice, runKeyword, runTimezone = "", "", "", ""
	formatTimezone, formatJSON, formatDecode = "", false, ""
	configFormat, configForce = "toml", false
	checkClean = false

	var out, errOut bytes.Buffer
	err = execute(args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func tempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "timestampus", "config.toml")
}

func TestFormatToken(t *testing.T) {
	path := tempConfig(t)

	out, _, err := run(t, "format", "25.12.2024", "18:30", "t", "--timezone", "UTC", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "<t:1735151400:t>\n", out)
}

func TestFormatZone(t *testing.T) {
	path := tempConfig(t)

	out, _, err := run(t, "format", "25.12.2024", "18:30", "t", "--timezone", "Europe/Berlin", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "<t:1735147800:t>\n", out)
}

func TestFormatFlags(t *testing.T) {
	path := tempConfig(t)

	tests := []struct {
		flag string
		want string
	}{
		{"F", "<t:1735151400:F>\n"},
		{"r", "<t:1735151400:R>\n"},
		{"x", "<t:1735151400:f>\n"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			out, _, err := run(t, "format", "25.12.2024", "18:30", tt.flag, "--timezone", "UTC", "--config", path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	out, _, err := run(t, "format", "25.12.2024", "18:30", "--timezone", "UTC", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "<t:1735151400:f>\n", out, "default flag")
}

func TestFormatDefaultFlagFromConfig(t *testing.T) {
	path := tempConfig(t)
	cfg := config.DefaultConfig()
	cfg.Format.DefaultFlag = "D"
	require.NoError(t, config.SaveConfig(cfg, path))

	out, _, err := run(t, "format", "01.01.2025", "00:00", "--timezone", "UTC", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "<t:1735689600:D>\n", out)
}

func TestFormatJSON(t *testing.T) {
	path := tempConfig(t)

	out, _, err := run(t, "format", "25.12.2024", "18:30", "F", "--timezone", "UTC", "--json", "--config", path)
	require.NoError(t, err)

	var res formatResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "<t:1735151400:F>", res.Token)
	assert.EqualValues(t, 1735151400, res.Unix)
	assert.Equal(t, "F", res.Flag)
	assert.Equal(t, "2024-12-25T18:30:00Z", res.Time)
	assert.Equal(t, "Wednesday, 25 December 2024 18:30", res.Preview)
	assert.NotEmpty(t, res.Description)
}

func TestFormatDecode(t *testing.T) {
	path := tempConfig(t)

	out, _, err := run(t, "format", "--decode", "<t:1735151400:t>", "--timezone", "UTC", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-25T18:30:00Z  (18:30)\n", out)

	_, stderr, err := run(t, "format", "--decode", "<t:abc:t>", "--config", path)
	require.Error(t, err)
	assert.Contains(t, stderr, "Error:")
}

func TestFormatErrors(t *testing.T) {
	path := tempConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"impossible date", []string{"format", "31.02.2024", "10:00", "t"}},
		{"bad hour", []string{"format", "25.12.2024", "24:00", "t"}},
		{"missing time", []string{"format", "25.12.2024"}},
		{"too many args", []string{"format", "25.12.2024", "18:30", "t", "extra"}},
		{"bad zone", []string{"format", "25.12.2024", "18:30", "--timezone", "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, append(tt.args, "--config", path)...)
			assert.Error(t, err)
		})
	}
}

func TestConfigInitShowPath(t *testing.T) {
	path := tempConfig(t)

	out, _, err := run(t, "config", "path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	out, _, err = run(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, _, err = run(t, "config", "init", "--config", path)
	assert.Error(t, err, "existing file needs --force")

	_, _, err = run(t, "config", "init", "--force", "--config", path)
	assert.NoError(t, err)

	out, _, err = run(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `keyword = "timestampus"`)

	out, _, err = run(t, "config", "show", "--format", "json", "--config", path)
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "timestampus", cfg.Trigger.Keyword)

	_, _, err = run(t, "config", "show", "--format", "ini", "--config", path)
	assert.Error(t, err)
}

func TestConfigInitDefaultLocation(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honored on Linux")
	}
	path := tempConfig(t)

	out, _, err := run(t, "config", "init", "--format", "yaml")
	require.NoError(t, err)

	want := filepath.Join(filepath.Dir(path), "config.yaml")
	assert.Contains(t, out, want)
	assert.FileExists(t, want)

	out, _, err = run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out, "existing file is found")
}

func TestInvalidConfigHint(t *testing.T) {
	path := tempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("[trigger]\nkeyword = \"not valid!\"\n"), 0o600))

	_, stderr, err := run(t, "config", "show", "--config", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, stderr, "Hint:")
}

func TestHintFor(t *testing.T) {
	assert.Empty(t, hintFor(fmt.Errorf("boom")))
	assert.NotEmpty(t, hintFor(config.ValidationErrors{{Field: "trigger.keyword", Message: "bad"}}))

	hint := hintFor(fmt.Errorf("%w: no device", keystroke.ErrNotAvailable))
	switch {
	case strings.Contains(hint, "input"), strings.Contains(hint, "Accessibility"), strings.Contains(hint, "Administrator"):
	default:
		assert.Empty(t, hint, "unexpected hint for this platform")
	}
}

func TestApplyRunFlags(t *testing.T) {
	runSource, runDevice, runKeyword, runTimezone = "evdev", "/dev/input/event3", "ts", "UTC"
	t.Cleanup(func() { runSource, runDevice, runKeyword, runTimezone = "", "", "", "" })

	cfg := config.DefaultConfig()
	applyRunFlags(cfg)
	assert.Equal(t, "evdev", cfg.Input.Source)
	assert.Equal(t, "/dev/input/event3", cfg.Input.Device)
	assert.Equal(t, "ts", cfg.Trigger.Keyword)
	assert.Equal(t, "UTC", cfg.Format.Timezone)

	runSource, runDevice, runKeyword, runTimezone = "", "", "", ""
	cfg = config.DefaultConfig()
	applyRunFlags(cfg)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	printBanner(&buf, "timestampus DD.MM.YYYY HH:MM F", actuatorOptions(config.DefaultConfig()).Hotkeys)

	out := buf.String()
	assert.Contains(t, out, "timestampus DD.MM.YYYY HH:MM F")
	assert.Contains(t, out, `"timestampus 25.12.2024 18:30 t"`)
	assert.Contains(t, out, "+a")
	assert.Contains(t, out, "Ctrl+C")
}

func TestHelpExampleMatchesFormat(t *testing.T) {
	path := tempConfig(t)

	out, _, err := run(t, "format", "25.12.2024", "18:30", "t", "--timezone", "UTC", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, rootCmd.Long, strings.TrimSpace(out))
}

func TestLoggerClosedOnFailedRun(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := tempConfig(t)
	dir := filepath.Dir(path)
	cfg := config.DefaultConfig()
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = filepath.Join(dir, "timestampus.log")
	require.NoError(t, config.SaveConfig(cfg, path))

	_, _, err := run(t, "run", "--source", "evdev", "--device", filepath.Join(dir, "no-such-device"), "--config", path)
	require.ErrorIs(t, err, keystroke.ErrNotAvailable)
	assert.Nil(t, activeLogger, "logger closed after a failing command")
}

func TestApplyLive(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	f := timestamp.NewFormatter(time.UTC, timestamp.DefaultFlag)
	act := actuator.New(nil, nil, actuatorOptions(config.DefaultConfig()), log)

	next := config.DefaultConfig()
	next.Format.Timezone = "Europe/Berlin"
	next.Format.DefaultFlag = "R"
	next.Actuation.SettleMs = 250
	next.Trigger.Keyword = "when"
	applyLive(log, config.Diff(config.DefaultConfig(), next), f, act)

	assert.Equal(t, "Europe/Berlin", f.Location().String())
	assert.Equal(t, timestamp.Relative, f.DefaultFlag())
	assert.Equal(t, 250*time.Millisecond, act.Options().Settle)
	assert.Contains(t, logs.String(), "sections=trigger")

	logs.Reset()
	live := config.DefaultConfig()
	live.Format.Timezone = "UTC"
	applyLive(log, config.Diff(config.DefaultConfig(), live), f, act)
	assert.Equal(t, "UTC", f.Location().String())
	assert.NotContains(t, logs.String(), "restart")
}
