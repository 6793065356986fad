package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	pkgconfig "github.com/goran-ethernal/TokenIndexor/pkg/config"
	"gopkg.in/yaml.v3"
)

type decodeFunc func(data []byte, cfg *pkgconfig.Config) error

var decoders = map[string]decodeFunc{
	".yaml": yamlDecode,
	".yml":  yamlDecode,
	".json": func(data []byte, cfg *pkgconfig.Config) error { return json.Unmarshal(data, cfg) },
	".toml": func(data []byte, cfg *pkgconfig.Config) error { return toml.Unmarshal(data, cfg) },
}

func yamlDecode(data []byte, cfg *pkgconfig.Config) error { return yaml.Unmarshal(data, cfg) }

// Load builds the configuration. The file at path is read first when path is
// non-empty, with its format picked by extension (.yaml, .yml, .json, .toml).
// A .env file in the working directory and the INDEXER_* environment are
// overlaid on top, then defaults are filled in and the result is validated.
func Load(path string) (*pkgconfig.Config, error) {
	if err := LoadDotEnv(""); err != nil {
		return nil, err
	}

	cfg := &pkgconfig.Config{}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func decodeFile(path string, cfg *pkgconfig.Config) error {
	ext := strings.ToLower(filepath.Ext(path))

	decode, ok := decoders[ext]
	if !ok {
		supported := make([]string, 0, len(decoders))
		for k := range decoders {
			supported = append(supported, k)
		}
		slices.Sort(supported)
		return fmt.Errorf("unsupported config file format %q (supported: %s)", ext, strings.Join(supported, ", "))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := decode(data, cfg); err != nil {
		return fmt.Errorf("parse %s config: %w", strings.TrimPrefix(ext, "."), err)
	}

	return nil
}
