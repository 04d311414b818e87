package main

import (
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		views, err := env.Service.ListRuns(ctx)
		if err != nil {
			return err
		}
		if len(views) == 0 {
			cmd.Println("no runs recorded")
			return nil
		}
		for _, v := range views {
			cmd.Printf("%s  %-10s  stage=%-26s  score=%.0f  progress=%d%%\n",
				v.ProjectID, v.Status, v.Stage, v.LastScore, v.ProgressPercent)
		}
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [project-id]",
	Short: "Delete a persisted run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Service.DeleteRun(ctx, args[0]); err != nil {
			return err
		}
		cmd.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}
