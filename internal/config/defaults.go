package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "timestampus"

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/timestampus/
//   - Linux:   ~/.config/timestampus/
//   - Windows: %APPDATA%\timestampus\
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Application Support", appName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
		return filepath.Join(homeDir(), "AppData", "Roaming", appName)
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, appName)
		}
		return filepath.Join(homeDir(), ".config", appName)
	}
}

// PlatformLogDir returns the platform-specific log directory.
//
// Platform paths:
//   - macOS:   ~/Library/Logs/timestampus/
//   - Linux:   ~/.local/state/timestampus/
//   - Windows: %LOCALAPPDATA%\timestampus\logs\
func PlatformLogDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Logs", appName)
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName, "logs")
		}
		return filepath.Join(homeDir(), "AppData", "Local", appName, "logs")
	default:
		if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
			return filepath.Join(xdgState, appName)
		}
		return filepath.Join(homeDir(), ".local", "state", appName)
	}
}

// DefaultConfigPath returns config.toml in the platform config directory.
func DefaultConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// DefaultLogPath returns the log file used when logging to a file.
func DefaultLogPath() string {
	return filepath.Join(PlatformLogDir(), appName+".log")
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	home, _ := os.UserHomeDir()
	return home
}

// SupportedConfigFormats returns the list of supported config file formats.
func SupportedConfigFormats() []string {
	return []string{
		"toml",
		"json",
		"yaml",
		"yml",
	}
}

// FindConfigFile returns the first config.<ext> in the config directory,
// or "" if there is none.
func FindConfigFile() string {
	dir := PlatformConfigDir()
	for _, ext := range SupportedConfigFormats() {
		path := filepath.Join(dir, "config."+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
