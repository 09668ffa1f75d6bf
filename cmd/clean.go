package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanq16/hiruko/internal/output"
	"github.com/tanq16/hiruko/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [dir]",
		Short: "Remove orphaned partial download files",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			dir := cfg.DownloadDir
			if len(args) == 1 {
				dir = args[0]
			}
			removed, err := utils.CleanParts(dir)
			if err != nil {
				output.PrintError(fmt.Sprintf("Error cleaning %s: %v", dir, err))
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d partial file(s) from %s", removed, dir))
		},
	}
}
