// Package cmd defines the veritas command-line surface. Each subcommand is a
// thin cobra wrapper around a testable run function; all real work happens in
// internal/service.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/internal/config"
	"github.com/veritas-qa/veritas-core/internal/observability"
)

var (
	cfgFile string
	appCfg  *config.Config
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "veritas",
	Short:   "Veritas is a resilient visual interaction core for UI automation.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			// Fall back to a minimal logger so the failure is visible.
			observability.InitializeLogger(config.LoggerConfig{
				Level: "info", Format: "console", ServiceName: "veritas",
			})
			return err
		}
		appCfg = cfg

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Info("starting veritas", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command. It is the single entry point main calls.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		observability.GetLogger().Error("command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newLocateCmd())
	rootCmd.AddCommand(newHealCmd())
	rootCmd.AddCommand(newObserveCmd())
	rootCmd.AddCommand(newGoalCmd())
}
