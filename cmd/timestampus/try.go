package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"timestampus/internal/keystroke"
	"timestampus/internal/timestamp"
	"timestampus/internal/watcher"
)

var tryCmd = &cobra.Command{
	Use:   "try",
	Short: "Practice triggers in this terminal",
	Long: `Reads keys typed into this terminal only and shows the token each
trigger would produce. Nothing outside the terminal is watched or changed.
Press Esc or Ctrl+C to leave.`,
	Args: cobra.NoArgs,
	RunE: runTry,
}

func init() {
	rootCmd.AddCommand(tryCmd)
}

// echoSource wraps a raw terminal source and echoes what is typed, since
// raw mode turns off the terminal's own echo.
type echoSource struct {
	keystroke.Source
	out io.Writer
}

func (e *echoSource) Start(ctx context.Context) (<-chan keystroke.KeyEvent, error) {
	in, err := e.Source.Start(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan keystroke.KeyEvent)
	go func() {
		defer close(out)
		for ev := range in {
			switch ev.Kind {
			case keystroke.KindChar, keystroke.KindSpace:
				fmt.Fprint(e.out, string(ev.Char))
			case keystroke.KindBackspace:
				fmt.Fprint(e.out, "\b \b")
			case keystroke.KindEnter:
				fmt.Fprint(e.out, "\r\n")
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// printReplacer shows the token instead of typing it.
type printReplacer struct {
	out io.Writer
	loc *time.Location
	now func() time.Time
}

func (p *printReplacer) Replace(ctx context.Context, token timestamp.Token) error {
	t := token.Time(p.loc)
	fmt.Fprintf(p.out, "\r\n→ %s  %s\r\n", token, timestamp.Preview(t, token.Flag(), p.now()))
	return nil
}

// printNotifier shows failures inline.
type printNotifier struct {
	out io.Writer
}

func (p *printNotifier) Notify(ctx context.Context, summary, body string) error {
	fmt.Fprintf(p.out, "\r\n✗ %s: %s\r\n", summary, body)
	return nil
}

func runTry(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(applyRunFlags)
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	buf, err := cfg.NewBuffer()
	if err != nil {
		return err
	}

	term := keystroke.NewTerminalSource(os.Stdin)
	if ok, reason := term.Available(); !ok {
		return fmt.Errorf("try needs an interactive terminal: %s", reason)
	}

	// Log lines would tear the raw-mode display.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	out := cmd.OutOrStdout()
	formatter := timestamp.NewFormatter(loc, cfg.DefaultFlag()).WithLogger(quiet)
	w := watcher.New(formatter, &printReplacer{out: out, loc: loc, now: time.Now},
		watcher.WithBuffer(buf),
		watcher.WithNotifier(&printNotifier{out: out}),
		watcher.WithLogger(quiet),
	)

	fmt.Fprintf(out, "Type %s (Esc or Ctrl+C to leave)\n", w.Pattern())
	if err := w.Run(cmd.Context(), &echoSource{Source: term, out: out}); err != nil {
		return err
	}
	fmt.Fprint(out, "\r\n")
	return nil
}
