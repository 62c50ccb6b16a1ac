// Package cmd implements the copilot-agent command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KumVivek/copilot-instruction-agent/internal/config"
	"github.com/KumVivek/copilot-instruction-agent/internal/version"
)

var (
	cfgFile  string
	verbose  bool
	language string
)

var rootCmd = &cobra.Command{
	Use:   "copilot-agent",
	Short: "Analyze a codebase and generate GitHub Copilot instruction files",
	Long: `copilot-agent scans a repository for architectural and code-quality
anti-patterns, scores the risk per category, and generates a
.github/copilot-instructions.md tuned to what the scan found.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI. Errors are returned to main for a single exit path.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default ./.copilot-agent.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logs")
	pf.StringVar(&language, "language", "", "pin the stack language instead of detecting it")
}

// loadConfig merges file, environment and the persistent flags. Flags only
// override when set explicitly so config file values survive defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if flags.Changed("language") {
		cfg.Language = language
	}
	return cfg, nil
}
