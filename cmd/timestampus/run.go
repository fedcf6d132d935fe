package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"timestampus/internal/actuator"
	"timestampus/internal/clipboard"
	"timestampus/internal/config"
	"timestampus/internal/keystroke"
	"timestampus/internal/notify"
	"timestampus/internal/timestamp"
	"timestampus/internal/watcher"
)

var (
	// Run overrides
	runSource   string
	runDevice   string
	runKeyword  string
	runTimezone string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Watch the keyboard and replace triggers",
		Long: `Watches all keyboard input and replaces "<keyword> DD.MM.YYYY HH:MM F"
with a chat timestamp token in the focused text field.

The typed line is cleared with select-all and backspace, then the token is
pasted from the clipboard. Press Ctrl+C to stop.`,
		RunE: runRun,
	}
)

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runSource, "source", "",
		"Keyboard source ("+strings.Join(keystroke.SourceKinds(), ", ")+")")
	cmd.Flags().StringVar(&runDevice, "device", "",
		"Keyboard device for the evdev source (e.g. /dev/input/event3)")
	cmd.Flags().StringVar(&runKeyword, "keyword", "",
		"Trigger keyword (default timestampus)")
	cmd.Flags().StringVar(&runTimezone, "timezone", "",
		"Timezone typed times are read in (e.g. Europe/Berlin, UTC; default local)")
}

// applyRunFlags lays command line overrides over cfg.
func applyRunFlags(cfg *config.Config) {
	if runSource != "" {
		cfg.Input.Source = runSource
	}
	if runDevice != "" {
		cfg.Input.Device = runDevice
	}
	if runKeyword != "" {
		cfg.Trigger.Keyword = runKeyword
	}
	if runTimezone != "" {
		cfg.Format.Timezone = runTimezone
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	path := resolvedConfigPath()
	loader := config.NewLoader(path, overrides(applyRunFlags)...)
	defer loader.Close()

	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	logger, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	log := logger.Logger

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	formatter := timestamp.NewFormatter(loc, cfg.DefaultFlag()).
		WithLogger(logger.WithComponent("formatter").Logger)

	buf, err := cfg.NewBuffer()
	if err != nil {
		return err
	}

	src, err := keystroke.NewSource(cfg.Input.Source, cfg.Input.Device)
	if err != nil {
		return err
	}
	if ok, reason := src.Available(); !ok {
		return fmt.Errorf("%w: %s", keystroke.ErrNotAvailable, reason)
	}

	injector := keystroke.NewInjector()
	if ok, reason := injector.Available(); !ok {
		log.Warn("key injection unavailable, replacements will fail", "reason", reason)
	}
	clip := clipboard.New()
	if ok, reason := clip.Available(); !ok {
		log.Warn("clipboard unavailable, replacements will fail", "reason", reason)
	}

	act := actuator.New(injector, clip, actuatorOptions(cfg), logger.WithComponent("actuator").Logger)
	w := watcher.New(formatter, act,
		watcher.WithBuffer(buf),
		watcher.WithNotifier(notify.New(cfg.Notify.OnFailure, log)),
		watcher.WithLogger(logger.WithComponent("watcher").Logger),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(path); err == nil {
		loader.OnChange(func(c config.Change) {
			applyLive(log, c, formatter, act)
		})
		if err := loader.Watch(); err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			go logLoaderErrors(ctx, log, loader)
		}
	}

	printBanner(cmd.OutOrStdout(), w.Pattern(), act.Options().Hotkeys)
	log.Info("watching keyboard", "source", cfg.Input.Source, "timezone", loc.String(), "version", version)

	if err := w.Run(ctx, src); err != nil {
		return err
	}

	stats := w.Stats()
	log.Info("stopped", "replacements", stats.Replacements, "failures", stats.Failures)
	fmt.Fprintln(cmd.OutOrStdout(), "\nStopped.")
	return nil
}

func actuatorOptions(cfg *config.Config) actuator.Options {
	opts := actuator.DefaultOptions(runtime.GOOS)
	opts.Settle = cfg.Settle()
	opts.KeyDelay = cfg.KeyDelay()
	opts.RestoreClipboard = cfg.Actuation.RestoreClipboard
	opts.RestoreDelay = cfg.RestoreDelay()
	return opts
}

// applyLive pushes reloadable settings into the running components.
func applyLive(log *slog.Logger, c config.Change, f *timestamp.Formatter, act *actuator.Actuator) {
	if loc, err := c.New.Location(); err == nil {
		f.SetLocation(loc)
	}
	f.SetDefaultFlag(c.New.DefaultFlag())
	act.SetOptions(actuatorOptions(c.New))

	if len(c.Restart) > 0 {
		log.Warn("changes take effect after restart", "sections", strings.Join(c.Restart, ","))
	}
	log.Info("config reloaded", "timezone", f.Location().String(), "default_flag", f.DefaultFlag().String())
}

func logLoaderErrors(ctx context.Context, log *slog.Logger, loader *config.Loader) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-loader.Errors():
			log.Warn("config reload failed, keeping previous settings", "error", err)
		}
	}
}

func printBanner(out io.Writer, pattern string, hk actuator.Hotkeys) {
	fmt.Fprintf(out, "Listening for: %s\n", pattern)
	fmt.Fprintf(out, "Type e.g. %q anywhere and it is replaced by a chat timestamp.\n",
		strings.Replace(pattern, "DD.MM.YYYY HH:MM F", "25.12.2024 18:30 t", 1))
	fmt.Fprintln(out, "Flags:")
	for _, f := range timestamp.Flags() {
		fmt.Fprintf(out, "  %s  %s\n", f, f.Description())
	}
	fmt.Fprintf(out, "The line is cleared with %s and %s before the token is pasted with %s.\n",
		hk.SelectAll, hk.Delete, hk.Paste)
	fmt.Fprintln(out, "Press Ctrl+C in this terminal to stop.")
}
