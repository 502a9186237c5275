package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillbench/skillbench/pkg/optimize"
	"github.com/skillbench/skillbench/pkg/run"
)

// NewOptimizeCmd creates the optimize command.
func NewOptimizeCmd() *cobra.Command {
	var (
		skillID       string
		maxRounds     int
		beamWidth     int
		stopThreshold float64
		plateauDelta  float64
		plateauEscape int
		verbose       bool
		taskTimeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "optimize <project-id>",
		Short: "Iteratively improve a project's skill through explored candidates",
		Long: `Optimize runs rounds of evaluate, analyze, recompose. Between rounds it
tries several candidate variants of the skill and carries the best one
forward. The iteration stops at the round limit, when it reaches the stop
threshold, or on interrupt.`,
		Args: cobra.ExactArgs(1),
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
			analyzer := optimize.NewOracleAnalyzer(client, st, taskTimeout)
			recomposer := optimize.NewOracleRecomposer(client, st, taskTimeout)
			controller := optimize.NewController(scheduler, analyzer, recomposer, st,
				optimize.WithIterationCallback(display.handleIterationProgress))

			params := optimize.Params{
				SkillID:                   skillID,
				MaxRounds:                 maxRounds,
				BeamWidth:                 beamWidth,
				PlateauDelta:              plateauDelta,
				PlateauRoundsBeforeEscape: plateauEscape,
			}
			if cmd.Flags().Changed("stop-threshold") {
				params.StopThreshold = &stopThreshold
			}

			if _, err := controller.StartIteration(ctx, projectID, params); err != nil {
				return err
			}

			// Convert the first interrupt into a clean stop at the next
			// round boundary.
			go func() {
				<-ctx.Done()
				_ = controller.StopIteration(projectID)
			}()

			report, err := controller.Wait(projectID)
			if err != nil {
				return err
			}
			renderReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&skillID, "skill", "", "Skill to optimize (default: project's first skill)")
	cmd.Flags().IntVar(&maxRounds, "max-rounds", 3, "Maximum optimization rounds")
	cmd.Flags().IntVar(&beamWidth, "beam-width", 2, "Candidate variants tried between rounds")
	cmd.Flags().Float64Var(&stopThreshold, "stop-threshold", 0, "Stop once a round's average score meets this value")
	cmd.Flags().Float64Var(&plateauDelta, "plateau-delta", 1.0, "Score delta below which a round counts as a plateau")
	cmd.Flags().IntVar(&plateauEscape, "plateau-escape", 2, "Plateau rounds before escalating exploration strategies")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show per-task progress")
	cmd.Flags().DurationVar(&taskTimeout, "task-timeout", 0, "Per-task timeout (default 5m)")

	return cmd
}
