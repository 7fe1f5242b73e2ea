package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zalepa/vaultstats/config"
	"github.com/zalepa/vaultstats/report"
	"github.com/zalepa/vaultstats/table"
)

// Set by the linker at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cfg holds the validated configuration of the running command.
var cfg = &config.Config{}

// logger is built from cfg once the configuration has been validated.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "vaultstats",
	Short: "Build the Vault Analytics report from exported vault data.",
	Long: `vaultstats reads the six vault analytics exports (lock durations, early
unlocks, early-unlock rates, adoption by initiator, support hours and repeat
early unlocks) and renders each as a chart with a short narrative, in the
terminal, as a PDF, as a web dashboard or as exported tables.`,
	Version:           version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: sharedSetup,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig points viper at the config file and environment.
func initConfig() {
	config.Setup(viper.GetViper(), viper.GetString("config"))
}

// sharedSetup validates the configuration and builds the logger.
func sharedSetup(*cobra.Command, []string) error {
	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = c

	l, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("unable to build logger: %w", err)
	}
	logger = l
	if f := viper.ConfigFileUsed(); f != "" {
		logger.Debug("using config file", zap.String("path", f))
	}
	return nil
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// newGenerator returns a report generator over the configured sources.
func newGenerator() *report.Generator {
	return &report.Generator{
		Loader:   table.NewLoader(cfg.Delimiter, logger),
		DataDir:  cfg.DataDir,
		Sources:  cfg.Sources,
		Coverage: cfg.Coverage,
		Strict:   cfg.Strict,
		Log:      logger,
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .vaultstats.yaml in . or $HOME)")
	rootCmd.PersistentFlags().String("data-dir", config.DefaultDataDir, "directory holding the source files")
	rootCmd.PersistentFlags().String("delimiter", config.DefaultDelimiter, "field delimiter of the source files (\"tab\" for tabs)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("strict", false, "stop at the first section that fails")
	rootCmd.PersistentFlags().Int("coverage-start", report.DefaultWindow.Start, "first hour of the support coverage window")
	rootCmd.PersistentFlags().Int("coverage-end", report.DefaultWindow.End, "hour the support coverage window ends (exclusive)")
	rootCmd.PersistentFlags().String("chart-backend", config.DefaultChartBackend, "chart renderer: plot or gochart")
	rootCmd.PersistentFlags().Int("chart-width", config.DefaultChartWidth, "chart width in pixels")
	rootCmd.PersistentFlags().Int("chart-height", config.DefaultChartHeight, "chart height in pixels")

	_ = viper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.SetVersionTemplate(fmt.Sprintf("vaultstats %s (commit %s, built %s)\n", version, commit, date))
}
