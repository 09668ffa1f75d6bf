package output

import (
	"fmt"
	"strings"

	"github.com/tanq16/hiruko/internal/jobstore"
)

var stateGlyphs = map[string]func(string) string{
	jobstore.StateQueued:    FInfo,
	jobstore.StateRunning:   FDetail,
	jobstore.StatePaused:    FWarning,
	jobstore.StateCompleted: FSuccess,
	jobstore.StateError:     FError,
}

// PrintJobTable renders the job queue as a table.
func PrintJobTable(jobs []*jobstore.Job) {
	if len(jobs) == 0 {
		PrintInfo("No jobs in the queue")
		return
	}
	PrintHeader(fmt.Sprintf("%-36s  %-9s  %-10s  %s", "ID", "STATE", "SIZE", "TARGET"))
	maxTarget := getTerminalWidth() - 63
	if maxTarget < 16 {
		maxTarget = 16
	}
	for _, job := range jobs {
		size := "-"
		if job.Metadata.TotalSize >= 0 {
			size = FormatBytes(uint64(job.Metadata.TotalSize))
		}
		target := job.OutputPath
		if job.State == jobstore.StateError && job.Error != "" {
			target = job.Error
		}
		if len(target) > maxTarget {
			target = "..." + target[len(target)-maxTarget+3:]
		}
		styled := FDebug
		if f, ok := stateGlyphs[job.State]; ok {
			styled = f
		}
		fmt.Printf("%s  %s  %-10s  %s\n", FDebug(job.ID),
			styled(fmt.Sprintf("%-9s", strings.ToUpper(job.State))), size, target)
	}
}
