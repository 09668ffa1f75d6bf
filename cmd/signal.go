package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanq16/hiruko/internal/control"
	"github.com/tanq16/hiruko/internal/jobstore"
	"github.com/tanq16/hiruko/internal/output"
	"github.com/tanq16/hiruko/internal/storage"
)

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <job-id>",
		Short: "Pause a running or queued job",
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
			switch job.State {
			case jobstore.StateRunning:
				if err := control.SendSignal(cfg.SocketPath(), "pause", job.ID); err != nil {
					output.PrintError(err.Error())
					os.Exit(1)
				}
				output.PrintSuccess(fmt.Sprintf("Pause signal sent for %s", job.ID))
			case jobstore.StateQueued:
				if err := store.SetState(job.ID, jobstore.StatePaused, ""); err != nil {
					output.PrintError(err.Error())
					os.Exit(1)
				}
				output.PrintSuccess(fmt.Sprintf("Job %s paused", job.ID))
			default:
				output.PrintWarning(fmt.Sprintf("Job %s is %s, nothing to pause", job.ID, job.State))
			}
		},
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a job and discard its partial data",
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
				// Running jobs get a socket signal first so the
				// transfer stops writing before we delete its file.
				if err := control.SendSignal(cfg.SocketPath(), "cancel", job.ID); err != nil {
					output.PrintError(err.Error())
					os.Exit(1)
				}
			}
			if job.OutputPath != "" {
				os.Remove(storage.TempPath(job.OutputPath))
			}
			if err := store.RemoveJob(job.ID); err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("Job %s cancelled", job.ID))
		},
	}
}
