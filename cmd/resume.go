package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanq16/hiruko/internal/jobstore"
	"github.com/tanq16/hiruko/internal/output"
	"github.com/tanq16/hiruko/internal/storage"
)

func newResumeCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "resume <job-id>",
		Short: "Requeue a paused or failed job",
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
			if job.State != jobstore.StatePaused && job.State != jobstore.StateError {
				output.PrintWarning(fmt.Sprintf("Job %s is %s, nothing to resume", job.ID, job.State))
				return
			}
			if force {
				// Drop the stored plan and partial file so the next
				// run starts clean against whatever the server has now.
				if err := store.UpdateMetadata(job.ID, jobstore.Metadata{TotalSize: -1}); err != nil {
					output.PrintError(err.Error())
					os.Exit(1)
				}
				if err := store.UpdateBitmap(job.ID, nil); err != nil {
					output.PrintError(err.Error())
					os.Exit(1)
				}
				if job.OutputPath != "" {
					os.Remove(storage.TempPath(job.OutputPath))
				}
			}
			if err := store.SetState(job.ID, jobstore.StateQueued, ""); err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("Job %s requeued, start it with hiruko run", job.ID))
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Discard partial progress and restart from scratch")
	return cmd
}
