// Package config loads clibate's CLI defaults. A clibate.yml (or
// .clibate.env) file is decoded loosely with yaml.v3 into a
// map[string]any, then projected into a typed RunnerConfig with
// mapstructure — the same "decode loose, map strict" idiom the corpus
// uses for actor/context maps. Process environment overrides are
// loaded with godotenv after flags are parsed, before the config file
// is read.
package config

import (
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RunnerConfig holds the defaults a clibate.yml may set for the CLI.
type RunnerConfig struct {
	Shell      string `mapstructure:"shell"`
	WorkingDir string `mapstructure:"working_dir"`
	Verbose    bool   `mapstructure:"verbose"`
	Color      bool   `mapstructure:"color"`
	LogLevel   string `mapstructure:"log_level"`
}

// Default returns the configuration used when no clibate.yml is present.
func Default() RunnerConfig {
	return RunnerConfig{
		Shell: "/bin/sh",
		Color: true,
	}
}

// Load decodes the YAML file at path into a RunnerConfig. A missing file
// is not an error: it returns Default() unchanged.
func Load(path string) (RunnerConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var loose map[string]any
	if err := yaml.Unmarshal(data, &loose); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           &cfg,
	})
	if err != nil {
		return cfg, fmt.Errorf("build config decoder: %w", err)
	}
	if err := decoder.Decode(loose); err != nil {
		return cfg, fmt.Errorf("map config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadEnv loads a .env-style file into the process environment (the
// default ".env" when path is empty). Like the corpus's own godotenv.Load() call sites, a
// missing file is silently ignored — it only seeds overrides when one
// is present.
func LoadEnv(path string) {
	if path == "" {
		_ = godotenv.Load()
		return
	}
	_ = godotenv.Load(path)
}
