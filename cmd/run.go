package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runTemplate string
	runFormats  []string
	runJSON     bool
)

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Run the RFP response pipeline for one RFP",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		state, err := env.Service.RunSync(ctx, args, runTemplate, runFormats)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("project_id", state.ProjectID),
			zap.String("status", string(state.Status)),
			zap.Float64("score", state.LastScore),
			zap.Int("iterations", state.IterationCount),
			zap.Float64("total_cost", state.CostSummary.TotalCost),
		)

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		}

		cmd.Printf("Project:    %s\n", state.ProjectID)
		cmd.Printf("Status:     %s\n", state.Status)
		cmd.Printf("Score:      %.0f/100\n", state.LastScore)
		cmd.Printf("Iterations: %d\n", state.IterationCount)
		if state.Matrix != nil {
			cmd.Printf("Compliance: %.1f%% (%d gaps)\n", state.Matrix.Score(), len(state.Matrix.Gaps()))
		}
		cmd.Printf("Cost:       $%.4f of $%.2f\n", state.CostSummary.TotalCost, state.CostSummary.BudgetLimit)
		for format, path := range state.GeneratedFiles {
			cmd.Printf("Output:     %s -> %s\n", format, path)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runTemplate, "template", "corporate", "proposal template name")
	runCmd.Flags().StringSliceVar(&runFormats, "formats", nil, "output formats (default from config)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full run state as JSON")
	rootCmd.AddCommand(runCmd)
}
