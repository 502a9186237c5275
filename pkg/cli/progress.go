package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillbench/skillbench/pkg/run"
)

// NewProgressCmd creates the progress command. It reads the checkpoint
// persisted in the project document, so it works from any process.
func NewProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <project-id>",
		Short: "Show a run's checkpointed progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]

			st, err := openStore()
			if err != nil {
				return err
			}

			scheduler := run.NewScheduler(st, nil)
			progress, err := scheduler.GetProgress(projectID)
			if err != nil {
				return err
			}

			fmt.Printf("Status:    %s\n", progress.Status)
			fmt.Printf("Total:     %d\n", progress.Total)
			fmt.Printf("Completed: %d\n", progress.Completed)
			fmt.Printf("Failed:    %d\n", progress.Failed)
			return nil
		},
	}
}
