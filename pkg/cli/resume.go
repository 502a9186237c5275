package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillbench/skillbench/pkg/logger"
	"github.com/skillbench/skillbench/pkg/run"
)

// NewResumeCmd creates the resume command.
func NewResumeCmd() *cobra.Command {
	var (
		verbose     bool
		taskTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resume <project-id>",
		Short: "Resume a paused run from its checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

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

			remaining, err := scheduler.Resume(ctx, projectID)
			if err != nil {
				return err
			}
			fmt.Printf("Resuming %d remaining tasks\n", remaining)

			status, err := scheduler.Wait(projectID)
			if err != nil {
				return err
			}
			if status != run.StatusCompleted {
				logger.G(ctx).WithField("status", status).Info("run ended before completion")
				return nil
			}

			summary, err := st.LoadSummary(projectID)
			if err != nil {
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
