package main

import (
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kplw-group/proposal-cli/internal/cost"
	"github.com/kplw-group/proposal-cli/internal/model"
)

var (
	batchTemplate string
	batchBudget   float64
)

var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Run the pipeline for several RFPs under one shared budget",
	Long:  "Each argument is one RFP document; runs execute concurrently but draw reservations from a single shared cost ledger, so the joint spend never exceeds the batch budget.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		budget := batchBudget
		if budget == 0 {
			budget = cfg.Budget.LimitUSD
		}
		shared := cost.NewLedger(budget)
		env.Service.UseSharedLedger(shared)

		var validated, escalated, failed atomic.Int64

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Batch.MaxConcurrentRuns)
		for _, path := range args {
			g.Go(func() error {
				state, runErr := env.Service.RunSync(gCtx, []string{path}, batchTemplate, nil)
				if runErr != nil {
					failed.Add(1)
					zap.L().Error("batch run failed", zap.String("file", path), zap.Error(runErr))
					return nil // one failed RFP does not stop the batch
				}
				switch state.Status {
				case model.StatusValidated:
					validated.Add(1)
				case model.StatusEscalated:
					escalated.Add(1)
				default:
					failed.Add(1)
				}
				zap.L().Info("batch run finished",
					zap.String("file", path),
					zap.String("project_id", state.ProjectID),
					zap.String("status", string(state.Status)),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		cmd.Printf("batch complete: %d validated, %d escalated, %d failed, $%.4f of $%.2f spent\n",
			validated.Load(), escalated.Load(), failed.Load(), shared.Total(), budget)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchTemplate, "template", "corporate", "proposal template name")
	batchCmd.Flags().Float64Var(&batchBudget, "budget", 0, "shared budget in USD (default from config)")
	rootCmd.AddCommand(batchCmd)
}
