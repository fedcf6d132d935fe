package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const tomlHeader = `# timestampus configuration
#
# Type "<keyword> DD.MM.YYYY HH:MM F" anywhere and it is replaced by a
# chat timestamp token. Flags: t T d D f F R.

`

// SaveConfig writes cfg to path in the format implied by its extension,
// TOML by default.
func SaveConfig(cfg *Config, path string) error {
	data, err := Encode(cfg, filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Encode renders cfg as ".toml", ".json" or ".yaml"/".yml".
func Encode(cfg *Config, ext string) ([]byte, error) {
	switch ext {
	case ".json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	default:
		var buf bytes.Buffer
		buf.WriteString(tomlHeader)
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}
