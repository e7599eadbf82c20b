package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/propguard/config"
	"github.com/rustyeddy/propguard/pkg/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "propguard",
	Short: "FTMO-style risk guard and backtest risk assessment",
	Long: `Propguard checks a trading account's equity path against prop-firm
daily and overall loss limits.

It provides tools for:
  - Backtesting a return series against FTMO-style loss rules
  - Rolling KPI windows (profit factor, win rate, drawdown)
  - Risk-capped position sizing with admission gating
  - Journaling runs to SQLite or JSON files
  - Generating and validating configuration files`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

var (
	cfgFile   string
	logLevel  string
	logPretty bool

	appCfg *config.Config
	appLog zerolog.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML, or JSON by .json extension)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "human-friendly console logs")
}

// loadSettings reads the config file, when given, and builds the logger.
func loadSettings(cmd *cobra.Command, args []string) error {
	appCfg = config.Default()
	if cfgFile != "" {
		cfg, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		appCfg = cfg
	}

	lc := logger.Config{Level: appCfg.Log.Level, Pretty: appCfg.Log.Pretty || logPretty, Out: cmd.ErrOrStderr()}
	if logLevel != "" {
		lc.Level = logLevel
	}
	appLog = logger.New(lc)
	return nil
}
