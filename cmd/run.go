package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanq16/hiruko/internal/control"
	"github.com/tanq16/hiruko/internal/jobstore"
	"github.com/tanq16/hiruko/internal/output"
	"github.com/tanq16/hiruko/internal/scheduler"
	"github.com/tanq16/hiruko/internal/utils"
)

func newRunCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run queued downloads until the queue is empty",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			log := utils.GetLogger("cli")
			store, err := jobstore.Open(cfg.DatabasePath())
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			defer store.Close()

			recovered, err := store.RecoverStaleRunning()
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			if recovered > 0 {
				output.PrintWarning(fmt.Sprintf("Requeued %d job(s) left running by a previous process", recovered))
			}

			sched := scheduler.New(cfg, store)
			defer sched.Hosts.Stop()

			go func() {
				if err := control.Serve(sched.Registry, cfg.SocketPath()); err != nil {
					log.Error().Str("op", "control").Err(err).Msg("control socket stopped")
				}
			}()

			display := output.NewDisplay()
			sched.Progress = func(jobID string, received, total int64) {
				display.Update(jobID, received)
			}
			jobs, err := store.ListJobs()
			if err == nil {
				for _, job := range jobs {
					if job.State == jobstore.StateQueued {
						name := job.OutputPath
						if name == "" {
							name = job.URL
						}
						display.Register(job.ID, name, job.Metadata.TotalSize)
					}
				}
			}
			display.Start()
			failed := sched.RunQueued(workers)
			syncDisplayStates(display, store)
			display.Stop()

			if failed > 0 {
				output.PrintError(fmt.Sprintf("%d job(s) did not complete, see hiruko status", failed))
				os.Exit(1)
			}
			output.PrintSuccess("All queued jobs completed")
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Number of jobs to run in parallel")
	return cmd
}

func syncDisplayStates(display *output.Display, store jobstore.Store) {
	jobs, err := store.ListJobs()
	if err != nil {
		return
	}
	for _, job := range jobs {
		display.SetState(job.ID, job.State)
	}
}
