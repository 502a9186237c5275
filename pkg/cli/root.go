// Package cli wires the store, oracle client, scheduler and optimization
// controller together behind the skillbench command.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/skillbench/skillbench/pkg/logger"
	"github.com/skillbench/skillbench/pkg/oracle"
	"github.com/skillbench/skillbench/pkg/store"
)

var (
	storePath string
	logLevel  string
	logFormat string
)

// NewRootCmd creates the root skillbench command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "skillbench",
		Short: "Skill evaluation and optimization harness",
		Long: `skillbench evaluates natural-language skill prompts against baselines of
test cases, scores the outputs with a fixed rubric, and iteratively improves
the skills through beam-explored recomposition rounds.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.SetFormat(logFormat)
			return logger.SetLevel(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&storePath, "store", ".skillbench", "Base directory for project documents")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewResumeCmd())
	rootCmd.AddCommand(NewProgressCmd())
	rootCmd.AddCommand(NewOptimizeCmd())
	rootCmd.AddCommand(NewSummaryCmd())
	rootCmd.AddCommand(NewReportCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func openStore() (*store.FileStore, error) {
	return store.NewFileStore(storePath)
}

func newOracleClient() (oracle.Client, error) {
	cfg, err := oracle.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return oracle.NewOpenAIClient(cfg)
}
