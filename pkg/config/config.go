package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's on-disk configuration. Every field has a
// sensible default. DataDir and LogLevel may also be overridden by an
// environment variable (BUS_DATA_DIR, BUS_LOG) at load time; BindAddr
// and LogJSON have no environment override.
type Config struct {
	BindAddr string `yaml:"bindAddr"`
	DataDir  string `yaml:"dataDir"`
	LogLevel string `yaml:"logLevel"`
	LogJSON  bool   `yaml:"logJSON"`
}

// Default returns the configuration used when no file and no
// environment overrides are present.
func Default() Config {
	return Config{
		BindAddr: "127.0.0.1:3000",
		DataDir:  "./data",
		LogLevel: "info",
		LogJSON:  false,
	}
}

// Load reads path if it exists, layering its values over Default, then
// applies environment overrides. A missing path is not an error: the
// file is optional.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnv(cfg), nil
			}
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv("BUS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("BUS_LOG"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}
