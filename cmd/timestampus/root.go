package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"timestampus/internal/config"
	"timestampus/internal/keystroke"
	"timestampus/internal/logging"
)

var (
	// Config file
	configPath string

	// Logging related
	debug bool

	rootCmd = &cobra.Command{
		Use:   "timestampus",
		Short: "Replace typed dates with chat timestamp tokens",
		Long: `timestampus watches your keyboard for a trigger such as

  timestampus 25.12.2024 18:30 t

and replaces it in place with a chat timestamp token like <t:1735151400:t>
(the value when the typed time is read as UTC).

Examples:
  timestampus                                   # Start watching (same as "run")
  timestampus run --timezone Europe/Berlin      # Read typed times as Berlin time
  timestampus format 25.12.2024 18:30 F         # Convert offline
  timestampus try                               # Practice in this terminal
  timestampus check                             # Diagnose permissions`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE:          runRun,
	}
)

// activeLogger is the logger opened by setupLogging. execute closes it
// whether or not the command succeeded.
var activeLogger *logging.Logger

func closeLogger() {
	if activeLogger != nil {
		activeLogger.Close()
		activeLogger = nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (default: "+config.DefaultConfigPath()+" if present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug logging, including typed text")

	addRunFlags(rootCmd)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\nRun '%s --help' for usage", err, cmd.CommandPath())
	})
}

// execute runs the root command and prints a failure with a hint.
func execute(args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	defer closeLogger()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(stderr, hint)
		}
	}
	return err
}

// hintFor suggests a fix for setup failures.
func hintFor(err error) string {
	switch {
	case errors.Is(err, keystroke.ErrNotAvailable):
		switch runtime.GOOS {
		case "linux":
			return "Hint: on X11 build with CGO_ENABLED=1; on Wayland or the console add yourself to the 'input' group (sudo usermod -aG input $USER) or run with sudo, then use --source evdev."
		case "darwin":
			return "Hint: grant Accessibility and Input Monitoring permission to your terminal in System Settings > Privacy & Security."
		case "windows":
			return "Hint: try running the terminal as Administrator."
		}
	case errors.Is(err, config.ErrInvalidConfig):
		return "Hint: run 'timestampus config show' to see the effective settings."
	}
	return ""
}

// loadConfig reads the config file named by --config, or the default one,
// with the given overrides applied after the global flags.
func loadConfig(extra ...config.Override) (*config.Config, error) {
	return config.Load(configPath, overrides(extra...)...)
}

func overrides(extra ...config.Override) []config.Override {
	return append([]config.Override{applyDebug}, extra...)
}

func applyDebug(cfg *config.Config) {
	if debug {
		cfg.Logging.Level = "debug"
	}
}

// setupLogging installs the configured logger as the default.
func setupLogging(cfg *config.Config, console io.Writer) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = format
	lc.Output = cfg.Logging.Output
	lc.Writer = console
	lc.FilePath = cfg.Logging.FilePath
	lc.MaxSize = int64(cfg.Logging.MaxSizeMB)
	lc.MaxBackups = cfg.Logging.MaxBackups
	lc.MaxAge = cfg.Logging.MaxAgeDays

	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	logging.SetDefault(logger)
	activeLogger = logger
	return logger, nil
}
