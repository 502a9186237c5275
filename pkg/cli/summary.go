package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skillbench/skillbench/pkg/run"
	"github.com/skillbench/skillbench/pkg/scoring"
)

// NewSummaryCmd creates the summary command.
func NewSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <project-id>",
		Short: "Show the ranked summary of a completed run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			summary, err := st.LoadSummary(args[0])
			if err != nil {
				return err
			}
			renderSummary(summary)
			return nil
		},
	}
}

func renderSummary(summary *run.Summary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	bold.Println("\nRank  Skill                          Avg    Done  Fail")
	for _, e := range summary.Entries {
		name := e.SkillName
		if name == "" {
			name = e.SkillID
		}
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		line := fmt.Sprintf("%4d  %-30s %5.1f  %4d  %4d", e.Rank, name, e.AvgScore, e.Completed, e.Failed)
		if e.Rank == 1 {
			green.Println(line)
		} else {
			fmt.Println(line)
		}
	}

	if len(summary.Entries) == 0 {
		return
	}
	top := summary.Entries[0]
	fmt.Println()
	bold.Printf("Top skill dimensions (%s):\n", top.SkillID)
	for _, d := range scoring.Dimensions() {
		fmt.Printf("  %-22s %5.1f / %d\n", d.Name, top.Dimensions[d.Name], d.Max)
	}
}
