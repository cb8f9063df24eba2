package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"wavecli/internal/identity"
)

// envPrefix namespaces the pipeline's environment variables, e.g.
// WAVE_PIPELINE_WINDOW_DAYS.
const envPrefix = "WAVE"

// Config is the complete pipeline configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Identity IdentityConfig `yaml:"identity" envconfig:"IDENTITY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/wavecli.log"`
}

// PipelineConfig contains the batch pipeline's knobs.
type PipelineConfig struct {
	// WindowDays is the trailing look-back window W anchored to each
	// survey event.
	WindowDays int `yaml:"window_days" envconfig:"WINDOW_DAYS" default:"14" validate:"min=1"`
	// Concurrency bounds the per-subject fan-out of the derive and
	// window stages.
	Concurrency int    `yaml:"concurrency" envconfig:"CONCURRENCY" default:"4" validate:"min=1"`
	InputDir    string `yaml:"input_dir" envconfig:"INPUT_DIR" default:"data/input"`
	OutputDir   string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"data/output"`
	// DBPath enables SQLite persistence of the analysis table when
	// non-empty.
	DBPath string `yaml:"db_path" envconfig:"DB_PATH"`
}

// IdentityConfig carries the wave id ranges used by the resolver.
type IdentityConfig struct {
	Ranges identity.Ranges `yaml:"ranges" envconfig:"RANGES"`
}

// Load builds the configuration from environment variables (WAVE_*
// prefix, with struct defaults), overlays the optional YAML file, and
// validates the result.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if cfg.Identity.Ranges == (identity.Ranges{}) {
		cfg.Identity.Ranges = identity.DefaultRanges()
	}

	if path := configFilePath(); path != "" {
		if err := overlayFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the struct tags and the resolver's id ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	return c.Identity.Ranges.Validate()
}

func configFilePath() string {
	if path := os.Getenv(envPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	if _, err := os.Stat("wavecli.yml"); err == nil {
		return "wavecli.yml"
	}
	return ""
}

// overlayFile applies the YAML file on top of the environment-derived
// configuration; the file wins where both set a value.
func overlayFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
