// Package config resolves vaultstats settings from defaults, the config
// file, environment variables and flags into a validated Config.
package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/zalepa/vaultstats/chart"
	"github.com/zalepa/vaultstats/report"
)

// Default values for configuration.
const (
	DefaultDataDir      = "."
	DefaultDelimiter    = ","
	DefaultChartBackend = chart.BackendPlot
	DefaultChartWidth   = 800
	DefaultChartHeight  = 500
	DefaultLogLevel     = "info"
	DefaultPort         = 8501
	MaxChartSide        = 4000
)

// EnvPrefix prefixes environment variables, e.g. VAULTSTATS_DATA_DIR.
const EnvPrefix = "VAULTSTATS"

// Config holds the validated runtime configuration.
type Config struct {
	DataDir      string
	Sources      map[string]string // section id -> file, relative to DataDir
	Delimiter    rune
	Coverage     report.Window
	Strict       bool
	ChartBackend string
	ChartWidth   int
	ChartHeight  int
	LogLevel     zapcore.Level
	Port         int
	Watch        bool
}

// RawInput holds the unvalidated values from all sources. Viper unmarshals
// into it.
type RawInput struct {
	DataDir       string            `mapstructure:"data-dir"`
	Sources       map[string]string `mapstructure:"sources"`
	Delimiter     string            `mapstructure:"delimiter"`
	CoverageStart int               `mapstructure:"coverage-start"`
	CoverageEnd   int               `mapstructure:"coverage-end"`
	Strict        bool              `mapstructure:"strict"`
	ChartBackend  string            `mapstructure:"chart-backend"`
	ChartWidth    int               `mapstructure:"chart-width"`
	ChartHeight   int               `mapstructure:"chart-height"`
	LogLevel      string            `mapstructure:"log-level"`
	Port          int               `mapstructure:"port"`
	Watch         bool              `mapstructure:"watch"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data-dir", DefaultDataDir)
	v.SetDefault("sources", map[string]string{})
	v.SetDefault("delimiter", DefaultDelimiter)
	v.SetDefault("coverage-start", report.DefaultWindow.Start)
	v.SetDefault("coverage-end", report.DefaultWindow.End)
	v.SetDefault("strict", false)
	v.SetDefault("chart-backend", DefaultChartBackend)
	v.SetDefault("chart-width", DefaultChartWidth)
	v.SetDefault("chart-height", DefaultChartHeight)
	v.SetDefault("log-level", DefaultLogLevel)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("watch", false)
}

// Setup points v at the config file and the environment. An explicit file
// wins over the search path of ".vaultstats.yaml" in the working directory
// and then $HOME.
func Setup(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".vaultstats")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// Load reads the config file, if any, and returns the validated Config. A
// missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	input := &RawInput{}
	if err := v.Unmarshal(input); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	cfg := &Config{}
	if err := ProcessAndValidate(cfg, input); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProcessAndValidate parses and checks the raw inputs and fills cfg.
func ProcessAndValidate(cfg *Config, input *RawInput) error {
	cfg.DataDir = input.DataDir
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}

	known := make(map[string]bool)
	for _, id := range report.SectionIDs() {
		known[id] = true
	}
	cfg.Sources = make(map[string]string, len(input.Sources))
	for id, file := range input.Sources {
		if !known[id] {
			return fmt.Errorf("invalid source %q: must be one of %s", id, strings.Join(report.SectionIDs(), ", "))
		}
		cfg.Sources[id] = file
	}

	delim, err := parseDelimiter(input.Delimiter)
	if err != nil {
		return err
	}
	cfg.Delimiter = delim

	cfg.Coverage = report.Window{Start: input.CoverageStart, End: input.CoverageEnd}
	if err := cfg.Coverage.Validate(); err != nil {
		return fmt.Errorf("coverage-start/coverage-end: %w", err)
	}

	cfg.ChartBackend = strings.ToLower(input.ChartBackend)
	switch cfg.ChartBackend {
	case chart.BackendPlot, chart.BackendGoChart:
	default:
		return fmt.Errorf("invalid chart-backend '%s'. must be %s or %s", input.ChartBackend, chart.BackendPlot, chart.BackendGoChart)
	}
	if input.ChartWidth <= 0 || input.ChartWidth > MaxChartSide || input.ChartHeight <= 0 || input.ChartHeight > MaxChartSide {
		return fmt.Errorf("chart size must be between 1 and %d pixels per side (received %dx%d)", MaxChartSide, input.ChartWidth, input.ChartHeight)
	}
	cfg.ChartWidth, cfg.ChartHeight = input.ChartWidth, input.ChartHeight

	level, err := zapcore.ParseLevel(input.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log-level '%s': %w", input.LogLevel, err)
	}
	cfg.LogLevel = level

	if input.Port <= 0 || input.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535 (received %d)", input.Port)
	}
	cfg.Port = input.Port

	cfg.Strict = input.Strict
	cfg.Watch = input.Watch
	return nil
}

// parseDelimiter accepts a single character or the names "tab" and "\t".
func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q: must be a single character other than a quote or newline", s)
	}
	return r, nil
}
