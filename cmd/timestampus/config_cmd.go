package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"timestampus/internal/config"
)

var (
	configFormat string
	configForce  bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Create, show or locate the config file",
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print where the config file is read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), resolvedConfigPath())
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)

	formats := strings.Join(config.SupportedConfigFormats(), ", ")
	configInitCmd.Flags().StringVar(&configFormat, "format", "toml", "File format ("+formats+")")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format ("+formats+")")
}

// resolvedConfigPath is --config, else an existing file, else the default.
func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if path := config.FindConfigFile(); path != "" {
		return path
	}
	return config.DefaultConfigPath()
}

func formatExt(format string) (string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	for _, f := range config.SupportedConfigFormats() {
		if f == format {
			return "." + f, nil
		}
	}
	return "", fmt.Errorf("unsupported config format %q", format)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	ext, err := formatExt(configFormat)
	if err != nil {
		return err
	}

	path := configPath
	if path == "" {
		path = filepath.Join(config.PlatformConfigDir(), "config"+ext)
	}
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	ext, err := formatExt(configFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := config.Encode(cfg, ext)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
