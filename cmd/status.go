package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tanq16/hiruko/internal/jobstore"
	"github.com/tanq16/hiruko/internal/output"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the job queue",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			store, err := jobstore.Open(cfg.DatabasePath())
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			defer store.Close()
			jobs, err := store.ListJobs()
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			output.PrintJobTable(jobs)
		},
	}
}
