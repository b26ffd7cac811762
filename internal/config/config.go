package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ehr/measure-harness/internal/platform/evaluator"
)

type Config struct {
	Env              string        `mapstructure:"ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	MeasureManifest  string        `mapstructure:"MEASURE_MANIFEST"`
	TestCasesDir     string        `mapstructure:"TEST_CASES_DIR"`
	Evaluator        string        `mapstructure:"EVALUATOR"`
	ResultsDir       string        `mapstructure:"RESULTS_DIR"`
	EvaluatorCommand string        `mapstructure:"EVALUATOR_COMMAND"`
	EvaluatorTimeout time.Duration `mapstructure:"EVALUATOR_TIMEOUT"`
	Workers          int           `mapstructure:"WORKERS"`
	OutputJSON       string        `mapstructure:"OUTPUT_JSON"`
	OutputXLSX       string        `mapstructure:"OUTPUT_XLSX"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	Port             string        `mapstructure:"PORT"`
	BodyLimit        string        `mapstructure:"BODY_LIMIT"`
}

var keys = []string{
	"ENV", "LOG_LEVEL", "MEASURE_MANIFEST", "TEST_CASES_DIR", "EVALUATOR",
	"RESULTS_DIR", "EVALUATOR_COMMAND", "EVALUATOR_TIMEOUT", "WORKERS",
	"OUTPUT_JSON", "OUTPUT_XLSX", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"PORT", "BODY_LIMIT",
}

// FlagKeys maps command-line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"log-level":  "LOG_LEVEL",
	"manifest":   "MEASURE_MANIFEST",
	"testcases":  "TEST_CASES_DIR",
	"evaluator":  "EVALUATOR",
	"results":    "RESULTS_DIR",
	"command":    "EVALUATOR_COMMAND",
	"timeout":    "EVALUATOR_TIMEOUT",
	"workers":    "WORKERS",
	"json":       "OUTPUT_JSON",
	"xlsx":       "OUTPUT_XLSX",
	"db":         "DATABASE_URL",
	"port":       "PORT",
	"body-limit": "BODY_LIMIT",
}

// Load reads configuration from the environment and an optional .env file.
// Flags present in flags (which may be nil) and listed in FlagKeys take
// precedence once set on the command line.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MEASURE_MANIFEST", "measure.yaml")
	v.SetDefault("TEST_CASES_DIR", "testcases")
	v.SetDefault("EVALUATOR", evaluator.KindFile)
	v.SetDefault("RESULTS_DIR", "results")
	v.SetDefault("EVALUATOR_TIMEOUT", "60s")
	v.SetDefault("WORKERS", 4)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("PORT", "8080")
	v.SetDefault("BODY_LIMIT", "10M")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range keys {
		v.BindEnv(key)
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level returns the configured zerolog level, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks the settings used by the run and score commands.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.LogLevel)
	}
	switch c.Evaluator {
	case evaluator.KindFile:
		if c.ResultsDir == "" {
			return fmt.Errorf("RESULTS_DIR is required when EVALUATOR is %q", evaluator.KindFile)
		}
	case evaluator.KindCommand:
		if c.EvaluatorCommand == "" {
			return fmt.Errorf("EVALUATOR_COMMAND is required when EVALUATOR is %q", evaluator.KindCommand)
		}
	default:
		return fmt.Errorf("EVALUATOR must be %q or %q, got %q", evaluator.KindFile, evaluator.KindCommand, c.Evaluator)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.EvaluatorTimeout <= 0 {
		return fmt.Errorf("EVALUATOR_TIMEOUT must be positive, got %s", c.EvaluatorTimeout)
	}
	if c.DatabaseURL != "" && c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS %d exceeds DB_MAX_CONNS %d", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

// ValidateServe checks the settings used by the serve command.
func (c *Config) ValidateServe() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}
	return nil
}
