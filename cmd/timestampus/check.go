package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"timestampus/internal/clipboard"
	"timestampus/internal/config"
	"timestampus/internal/keystroke"
)

// crashRetention is how long --clean keeps crash reports.
const crashRetention = 30 * 24 * time.Hour

var (
	checkClean bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Report keyboard, injection and clipboard access",
		Long: `Checks everything a replacement needs: a way to read the keyboard, a
way to send key presses, and a clipboard tool. Also validates the config
file and lists crash reports.`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkClean, "clean", false, "Delete crash reports older than 30 days")
}

// availability is implemented by sources, the injector and the clipboard.
type availability interface {
	Available() (bool, string)
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil && !errors.Is(err, config.ErrInvalidConfig) {
		return err
	}

	fmt.Fprintln(out, "Keyboard input:")
	inputOK := false
	device := ""
	if cfg != nil {
		device = cfg.Input.Device
	}
	for _, kind := range []string{keystroke.SourceHook, keystroke.SourceEvdev} {
		src, err := keystroke.NewSource(kind, device)
		if err != nil {
			return err
		}
		if report(out, kind, src) {
			inputOK = true
		}
	}

	fmt.Fprintln(out, "Replacement:")
	injectOK := report(out, "keys", keystroke.NewInjector())
	clipOK := report(out, "clipboard", clipboard.New())

	fmt.Fprintln(out, "Config:")
	path := configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		fmt.Fprintf(out, "  none found, using defaults (create one with 'timestampus config init')\n")
	} else {
		fmt.Fprintf(out, "  %s\n", path)
	}
	if err != nil {
		fmt.Fprintf(out, "  ✗ %v\n", err)
	} else {
		for _, w := range config.Check(cfg).Warnings() {
			fmt.Fprintf(out, "  ! %s\n", w.Error())
		}
	}

	crash := newCrashHandler()
	if checkClean {
		if err := crash.Cleanup(crashRetention); err != nil {
			fmt.Fprintf(out, "  ! clean crash reports: %v\n", err)
		}
	}
	reports, rerr := crash.Reports()
	if rerr == nil && len(reports) > 0 {
		fmt.Fprintf(out, "Crash reports: %d in %s\n", len(reports), crash.Dir())
	}

	switch {
	case !inputOK:
		return fmt.Errorf("%w: no keyboard source can run", keystroke.ErrNotAvailable)
	case err != nil:
		return err
	case !injectOK || !clipOK:
		fmt.Fprintln(out, "\nTriggers will be detected but cannot be replaced.")
	default:
		fmt.Fprintln(out, "\nReady.")
	}
	return nil
}

func report(out io.Writer, name string, a availability) bool {
	ok, reason := a.Available()
	mark := "✓"
	if !ok {
		mark = "✗"
	}
	fmt.Fprintf(out, "  %s %-10s %s\n", mark, name, reason)
	return ok
}
