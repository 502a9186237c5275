package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillbench/skillbench/pkg/logger"
	"github.com/skillbench/skillbench/pkg/run"
	"github.com/skillbench/skillbench/pkg/util"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var (
		verbose     bool
		taskTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <project-id>",
		Short: "Evaluate a project's skills against its baselines",
		Long: `Run executes every skill/case pair in the project, scores the outputs,
and writes a ranked summary. Tasks that already have a result record are
skipped, so an interrupted run can simply be started again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = util.WithVerbose(ctx, verbose)

			st, err := openStore()
			if err != nil {
				return err
			}
			client, err := newOracleClient()
			if err != nil {
				return err
			}

			display := newProgressDisplay(verbose)
			executor := run.NewExecutor(client, st, taskTimeout)
			scheduler := run.NewScheduler(st, executor,
				run.WithProgressCallback(display.handleRunProgress))

			summary, err := scheduler.Run(ctx, projectID)
			if err != nil {
				if ctx.Err() != nil {
					logger.G(ctx).Info("run interrupted, progress checkpointed")
					return nil
				}
				return err
			}

			renderSummary(summary)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show per-task progress")
	cmd.Flags().DurationVar(&taskTimeout, "task-timeout", 0, "Per-task timeout (default 5m)")

	return cmd
}
