package main

import (
	"github.com/spf13/cobra"

	"github.com/kplw-group/proposal-cli/internal/template"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available proposal templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, t := range template.List() {
			cmd.Printf("%-26s %s (%d sections, %d required)\n",
				t.Name, t.DisplayName, len(t.Sections), len(t.RequiredSections()))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}
