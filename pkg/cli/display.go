package cli

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/skillbench/skillbench/pkg/optimize"
	"github.com/skillbench/skillbench/pkg/run"
)

// progressDisplay renders scheduler and iteration events on the terminal.
type progressDisplay struct {
	verbose bool
	green   *color.Color
	red     *color.Color
	yellow  *color.Color
	cyan    *color.Color
	bold    *color.Color
}

func newProgressDisplay(verbose bool) *progressDisplay {
	return &progressDisplay{
		verbose: verbose,
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
		yellow:  color.New(color.FgYellow),
		cyan:    color.New(color.FgCyan),
		bold:    color.New(color.Bold),
	}
}

func (d *progressDisplay) handleRunProgress(event run.ProgressEvent) {
	switch event.Type {
	case run.EventRunStart:
		d.bold.Printf("\n=== Starting run (%d tasks) ===\n", event.Total)

	case run.EventTaskStart:
		if d.verbose {
			d.cyan.Printf("  → %s / %s\n", event.Task.SkillID, event.Task.CaseID)
		}

	case run.EventTaskSkipped:
		if d.verbose {
			fmt.Printf("  · %s / %s already has a record, skipped\n", event.Task.SkillID, event.Task.CaseID)
		}

	case run.EventTaskDone:
		if event.Record.Status == run.ResultFailed {
			d.red.Printf("  ✗ %s / %s failed: %s\n", event.Task.SkillID, event.Task.CaseID, event.Record.ErrorReason)
		} else if event.Record.Score == nil {
			d.yellow.Printf("  ~ %s / %s completed without score (%d/%d)\n",
				event.Task.SkillID, event.Task.CaseID, event.Completed+event.Failed, event.Total)
		} else {
			d.green.Printf("  ✓ %s / %s scored %d (%d/%d)\n",
				event.Task.SkillID, event.Task.CaseID, event.Record.Score.Total, event.Completed+event.Failed, event.Total)
		}

	case run.EventRunPaused:
		d.yellow.Printf("\nRun paused at %d/%d tasks\n", event.Completed+event.Failed, event.Total)

	case run.EventRunStopped:
		d.red.Printf("\nRun stopped at %d/%d tasks\n", event.Completed+event.Failed, event.Total)

	case run.EventRunComplete:
		d.bold.Printf("\n=== Run complete: %d completed, %d failed ===\n", event.Completed, event.Failed)
	}
}

func (d *progressDisplay) handleIterationProgress(event optimize.ProgressEvent) {
	switch event.Type {
	case optimize.EventIterationStart:
		d.bold.Println("\n=== Starting optimization ===")

	case optimize.EventRoundStart:
		fmt.Println()
		d.cyan.Printf("Round %d: skill %s\n", event.Round.Number, event.Round.SkillID)

	case optimize.EventRoundComplete:
		d.green.Printf("  round %d avg %.1f (delta %+.1f)\n", event.Round.Number, event.Round.AvgScore, event.Round.Delta)

	case optimize.EventCandidateTested:
		c := event.Candidate
		if c.Error != "" {
			d.red.Printf("  candidate %s failed: %s\n", c.Strategy, c.Error)
		} else {
			fmt.Printf("  candidate %s → avg %.1f\n", c.Strategy, c.AvgScore)
		}

	case optimize.EventIterationComplete:
		report := event.Report
		fmt.Println()
		d.bold.Printf("=== Optimization finished: %s ===\n", report.StopReason)
		if report.BestRound > 0 {
			fmt.Printf("Best: round %d, skill %s, avg %.1f\n", report.BestRound, report.BestSkillID, report.BestScore)
		}
	}
}
