// Package config loads CLI configuration from defaults, an optional
// queryguard.yaml file, QUERYGUARD_ environment variables and command-line
// flags, in that order of increasing precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config is the resolved CLI configuration.
type Config struct {
	Dialect      string `koanf:"dialect"`
	Catalog      string `koanf:"catalog"`
	Database     string `koanf:"database"`
	SecureOutput bool   `koanf:"secure_output"`
	Output       string `koanf:"output"`
	Verbose      bool   `koanf:"verbose"`
}

const envPrefix = "QUERYGUARD_"

// defaults are the bottom configuration layer.
var defaults = map[string]any{
	"dialect":       "unilake",
	"catalog":       "",
	"database":      "",
	"secure_output": false,
	"output":        "json",
	"verbose":       false,
}

// Load resolves the configuration. The explicit path wins over the
// well-known file names; a missing file is not an error unless it was
// requested explicitly.
func Load(explicitFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	path := findConfigFile(explicitFile)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicitFile != "" {
				return nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
			slog.Debug("skipping unreadable config file", "path", path, "error", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"queryguard.yaml", "queryguard.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
