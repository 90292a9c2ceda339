package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/ruslano69/symexport/pkg/adapters"
	"github.com/ruslano69/symexport/pkg/adapters/csv"
	"github.com/ruslano69/symexport/pkg/resultlog"
)

// Config is the symexport configuration file.
type Config struct {
	Output    OutputConfig           `yaml:"output"`
	CSV       adapters.TextSettings  `yaml:"csv"`
	MySQL     adapters.MySQLSettings `yaml:"mysql"`
	XLSX      adapters.XLSXSettings  `yaml:"xlsx"`
	ResultLog resultlog.Config       `yaml:"resultlog"`
	Log       LogConfig              `yaml:"log"`
}

// OutputConfig selects the backends, in the order they are driven.
type OutputConfig struct {
	Backends []string `yaml:"backends"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console | json
}

// defaultConfig holds the values used for anything the file leaves out.
func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Output.Backends = []string{csv.BackendType}
	cfg.CSV.OutputDir = "out"
	cfg.XLSX.OutputDir = "out"
	cfg.ResultLog.Address = "localhost:6379"
	cfg.ResultLog.Name = "symexport"
	cfg.ResultLog.TTL = 3600
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

// LoadConfig reads the YAML config at path over the defaults. An empty path
// yields the defaults alone.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Output.Backends) == 0 {
		return fmt.Errorf("config: output.backends must name at least one backend")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// Adapters returns the settings handed to the backend factory.
func (c *Config) Adapters() adapters.Config {
	return adapters.Config{Text: c.CSV, MySQL: c.MySQL, XLSX: c.XLSX}
}

// setupLogging configures the global zerolog logger.
func setupLogging(lc LogConfig) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if lc.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
