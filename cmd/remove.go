package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanq16/hiruko/internal/jobstore"
	"github.com/tanq16/hiruko/internal/output"
	"github.com/tanq16/hiruko/internal/storage"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id>",
		Short: "Remove a job from the queue",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			store, err := jobstore.Open(cfg.DatabasePath())
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			defer store.Close()
			job, err := store.GetJob(args[0])
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			if job.State == jobstore.StateRunning {
				output.PrintError("Job is running, pause or cancel it first")
				os.Exit(1)
			}
			if job.State != jobstore.StateCompleted && job.OutputPath != "" {
				os.Remove(storage.TempPath(job.OutputPath))
			}
			if err := store.RemoveJob(job.ID); err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("Job %s removed", job.ID))
		},
	}
}
