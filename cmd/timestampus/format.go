package main

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"timestampus/internal/timestamp"
)

var (
	formatTimezone string
	formatJSON     bool
	formatDecode   string

	formatCmd = &cobra.Command{
		Use:   "format DATE TIME [FLAG]",
		Short: "Convert a date to a timestamp token without typing it",
		Long: `Converts DATE (DD.MM.YYYY) and TIME (HH:MM) to a chat timestamp token,
exactly as the keyboard trigger would. FLAG defaults to the configured
default flag.

Examples:
  timestampus format 25.12.2024 18:30 t
  timestampus format 25.12.2024 18:30 F --timezone UTC --json
  timestampus format --decode "<t:1735151400:t>"`,
		Args: func(cmd *cobra.Command, args []string) error {
			if formatDecode != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.RangeArgs(2, 3)(cmd, args)
		},
		RunE: runFormat,
	}
)

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.Flags().StringVar(&formatTimezone, "timezone", "",
		"Timezone the time is read in (default from config, else local)")
	formatCmd.Flags().BoolVar(&formatJSON, "json", false, "Output JSON")
	formatCmd.Flags().StringVar(&formatDecode, "decode", "",
		"Decode a token instead of creating one")
}

// formatResult is the --json output.
type formatResult struct {
	Token       string `json:"token"`
	Unix        int64  `json:"unix"`
	Flag        string `json:"flag"`
	Description string `json:"description"`
	Time        string `json:"time"`
	Preview     string `json:"preview"`
}

func runFormat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if formatTimezone != "" {
		cfg.Format.Timezone = formatTimezone
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var token timestamp.Token
	if formatDecode != "" {
		token, err = timestamp.ParseToken(formatDecode)
		if err != nil {
			return err
		}
	} else {
		f := timestamp.NewFormatter(loc, cfg.DefaultFlag())
		flag := rune(f.DefaultFlag())
		if len(args) == 3 {
			for _, r := range args[2] {
				flag = r
				break
			}
		}
		token, err = f.Format(args[0], args[1], flag)
		if err != nil {
			return err
		}
	}

	t := token.Time(loc)
	res := formatResult{
		Token:       token.String(),
		Unix:        token.Unix(),
		Flag:        token.Flag().String(),
		Description: token.Flag().Description(),
		Time:        t.Format(time.RFC3339),
		Preview:     timestamp.Preview(t, token.Flag(), time.Now()),
	}

	out := cmd.OutOrStdout()
	if formatJSON {
		data, err := sonic.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if formatDecode != "" {
		fmt.Fprintf(out, "%s  (%s)\n", res.Time, res.Preview)
		return nil
	}
	fmt.Fprintln(out, res.Token)
	return nil
}
