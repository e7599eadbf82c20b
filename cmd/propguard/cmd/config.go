package cmd

import (
	"fmt"

	"github.com/rustyeddy/propguard/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage propguard configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  propguard config init -o propguard.yaml
  propguard config validate -f propguard.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  propguard config init -o propguard.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded. Unknown
fields are rejected.

Example:
  propguard config validate -f propguard.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configInitForce    bool
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "propguard.yaml", "output config file path")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if fileExists(configInitOutput) && !configInitForce {
		return fmt.Errorf("%s exists; use --force to overwrite", configInitOutput)
	}
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  propguard --config %s backtest --returns ...\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	tz := cfg.Risk.Timezone
	if tz == "" {
		tz = "UTC"
	}
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Daily: soft %.2f%% / hard %.2f%% (%s)\n", cfg.Risk.DailySoftStopPct, cfg.Risk.DailyHardStopPct, tz)
	fmt.Fprintf(out, "  Overall: max %.2f%% / safety %.2f%% (buffer %.2f%%)\n",
		cfg.Risk.MaxTotalLossPct, cfg.Risk.SafetyOverallLossPct, cfg.Risk.SafetyBufferPct)
	fmt.Fprintf(out, "  Sizer: risk %.2f%%-%.2f%%, per trade max %.2f%%\n",
		cfg.Sizer.MinRiskPct, cfg.Sizer.MaxRiskPct, cfg.Sizer.MaxRiskPerTradePct)
	fmt.Fprintf(out, "  Journal: %s\n", cfg.Journal.Type)
	return nil
}
