package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"arc/internal/orchestrator"
)

var (
	runMaxTurns  int
	runThreshold float64
)

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Execute one research run and print the insight report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}

		topic := strings.Join(args, " ")
		runID, err := rt.orch.Start(cmd.Context(), orchestrator.RunOptions{
			Topic:              topic,
			MaxTurns:           runMaxTurns,
			ConsensusThreshold: runThreshold,
		})
		if err != nil {
			return err
		}

		report, err := rt.orch.LoadReport(runID)
		if err != nil {
			return err
		}
		fmt.Printf("Run: %s\n", runID)
		fmt.Printf("Confidence: %.3f\n\n", report.Confidence)
		fmt.Println(report.Summary)
		if len(report.Hypotheses) > 0 {
			fmt.Println("\nHypotheses:")
			for i, h := range report.Hypotheses {
				fmt.Printf("  %d. %s\n", i+1, h)
			}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runMaxTurns, "max-turns", 2, "Maximum pipeline turns")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0.8, "Validator confidence required to stop early")
}
