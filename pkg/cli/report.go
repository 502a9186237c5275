package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skillbench/skillbench/pkg/optimize"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	var showCandidates bool

	cmd := &cobra.Command{
		Use:   "report <project-id>",
		Short: "Show the report of the latest optimization iteration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]

			st, err := openStore()
			if err != nil {
				return err
			}
			report, err := st.LoadReport(projectID)
			if err != nil {
				return err
			}
			renderReport(report)

			if showCandidates {
				explog, err := st.LoadExplorationLog(projectID)
				if err != nil {
					return err
				}
				renderExplorationLog(explog)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showCandidates, "candidates", false, "Include every candidate tried during exploration")

	return cmd
}

func renderReport(report *optimize.Report) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	bold.Printf("\nIteration %s (%s)\n", report.IterationID, report.StopReason)
	fmt.Printf("Started:  %s\n", report.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Finished: %s\n", report.FinishedAt.Format("2006-01-02 15:04:05"))
	fmt.Println()

	bold.Println("Round  Skill                                 Avg   Delta  Status")
	for _, r := range report.Rounds {
		line := fmt.Sprintf("%5d  %-36s %5.1f  %+5.1f  %s", r.Number, r.SkillID, r.AvgScore, r.Delta, r.Status)
		switch {
		case r.Status == optimize.RoundFailed:
			red.Println(line)
		case r.Number == report.BestRound:
			green.Println(line)
		default:
			fmt.Println(line)
		}
	}

	if report.BestRound > 0 {
		fmt.Println()
		green.Printf("Best: round %d, skill %s, avg %.1f\n", report.BestRound, report.BestSkillID, report.BestScore)
	}
}

func renderExplorationLog(explog *optimize.ExplorationLog) {
	bold := color.New(color.Bold)

	fmt.Println()
	bold.Println("Round  Strategy            Avg   Won  Error")
	for _, c := range explog.Candidates {
		won := ""
		if c.Won {
			won = "yes"
		}
		fmt.Printf("%5d  %-18s %5.1f  %-3s  %s\n", c.Round, c.Strategy, c.AvgScore, won, c.Error)
	}
	for _, w := range explog.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}
