package cmd

import (
	"github.com/qaforum/engagement/internal/output"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the event and content tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, appOptions{migrate: true})
		if err != nil {
			return err
		}
		defer a.close()

		output.Success(cmd.OutOrStdout(), "Migrations applied (%s)", cfg.Database.Driver)
		return nil
	},
}
