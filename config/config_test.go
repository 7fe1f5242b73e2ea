package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/zalepa/vaultstats/report"
)

func validInput() *RawInput {
	return &RawInput{
		DataDir:       "data",
		Delimiter:     ",",
		CoverageStart: 10,
		CoverageEnd:   18,
		ChartBackend:  "plot",
		ChartWidth:    800,
		ChartHeight:   500,
		LogLevel:      "info",
		Port:          8501,
	}
}

func TestProcessAndValidate(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, ',', cfg.Delimiter)
	assert.Equal(t, report.DefaultWindow, cfg.Coverage)
	assert.Equal(t, zapcore.InfoLevel, cfg.LogLevel)
}

func TestProcessAndValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawInput)
	}{
		{"unknown source", func(in *RawInput) { in.Sources = map[string]string{"pie": "x.csv"} }},
		{"long delimiter", func(in *RawInput) { in.Delimiter = ";;" }},
		{"quote delimiter", func(in *RawInput) { in.Delimiter = `"` }},
		{"empty window", func(in *RawInput) { in.CoverageStart, in.CoverageEnd = 18, 18 }},
		{"window past midnight", func(in *RawInput) { in.CoverageEnd = 25 }},
		{"backend", func(in *RawInput) { in.ChartBackend = "d3" }},
		{"width", func(in *RawInput) { in.ChartWidth = 0 }},
		{"height", func(in *RawInput) { in.ChartHeight = MaxChartSide + 1 }},
		{"log level", func(in *RawInput) { in.LogLevel = "loud" }},
		{"port", func(in *RawInput) { in.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			assert.Error(t, ProcessAndValidate(&Config{}, in))
		})
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in   string
		want rune
	}{
		{"", ','},
		{";", ';'},
		{"tab", '\t'},
		{`\t`, '\t'},
		{"|", '|'},
	}
	for _, tt := range tests {
		got, err := parseDelimiter(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseDelimiter(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultChartBackend, cfg.ChartBackend)
	assert.Empty(t, cfg.Sources)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaultstats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data-dir: /srv/vault
delimiter: ";"
chart-backend: gochart
sources:
  adoption: adoption.xlsx
`), 0o644))
	t.Setenv("VAULTSTATS_COVERAGE_START", "9")
	t.Setenv("VAULTSTATS_LOG_LEVEL", "debug")

	v := viper.New()
	Setup(v, path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/srv/vault", cfg.DataDir)
	assert.Equal(t, ';', cfg.Delimiter)
	assert.Equal(t, "gochart", cfg.ChartBackend)
	assert.Equal(t, map[string]string{report.AdoptionID: "adoption.xlsx"}, cfg.Sources)
	assert.Equal(t, report.Window{Start: 9, End: 18}, cfg.Coverage)
	assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
}
