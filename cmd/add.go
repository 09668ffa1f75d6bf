package cmd

import (
	"fmt"
	u "net/url"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tanq16/hiruko/internal/jobstore"
	"github.com/tanq16/hiruko/internal/output"
	"github.com/tanq16/hiruko/internal/utils"
)

type jobEntry struct {
	URL        string            `yaml:"url"`
	OutputPath string            `yaml:"output"`
	Backend    string            `yaml:"backend"`
	Headers    map[string]string `yaml:"headers"`
	Overwrite  bool              `yaml:"overwrite"`
}

func newAddCmd() *cobra.Command {
	var outputPath string
	var backend string
	var listFile string
	var headerArgs []string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "add [url]",
		Short: "Queue one or more downloads",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			var entries []jobEntry
			switch {
			case listFile != "" && len(args) > 0:
				output.PrintError("Cannot specify url argument and --list together, choose one")
				os.Exit(1)
			case listFile != "":
				data, err := os.ReadFile(listFile)
				if err != nil {
					output.PrintError(fmt.Sprintf("Failed to read list file: %v", err))
					os.Exit(1)
				}
				if err := yaml.Unmarshal(data, &entries); err != nil {
					output.PrintError(fmt.Sprintf("Failed to parse list file: %v", err))
					os.Exit(1)
				}
			case len(args) == 1:
				entries = []jobEntry{{
					URL:        args[0],
					OutputPath: outputPath,
					Backend:    backend,
					Headers:    utils.ParseHeaderArgs(headerArgs),
					Overwrite:  overwrite,
				}}
			default:
				output.PrintError("No URL or --list provided")
				os.Exit(1)
			}

			store, err := jobstore.Open(cfg.DatabasePath())
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			defer store.Close()

			for _, entry := range entries {
				parsed, err := u.Parse(entry.URL)
				if err != nil || parsed.Scheme == "" || parsed.Host == "" {
					output.PrintError(fmt.Sprintf("Invalid URL: %s", entry.URL))
					os.Exit(1)
				}
				if entry.Backend == "" {
					entry.Backend = cfg.Backend
				}
				if entry.Backend != "pool" && entry.Backend != "loop" {
					output.PrintError(fmt.Sprintf("Unknown backend %q for %s", entry.Backend, entry.URL))
					os.Exit(1)
				}
				job := &jobstore.Job{
					ID:         uuid.New().String(),
					URL:        entry.URL,
					OutputPath: entry.OutputPath,
					Backend:    entry.Backend,
					Settings: jobstore.Settings{
						Headers:   entry.Headers,
						Overwrite: entry.Overwrite,
					},
				}
				if err := store.AddJob(job); err != nil {
					output.PrintError(err.Error())
					os.Exit(1)
				}
				output.PrintSuccess(fmt.Sprintf("Queued %s %s %s", job.ID, output.StyleSymbols["arrow"], job.URL))
			}
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (inferred from the server if not provided)")
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "Transfer backend: pool or loop")
	cmd.Flags().StringVarP(&listFile, "list", "l", "", "Path to YAML file with url/output entries")
	cmd.Flags().StringSliceVarP(&headerArgs, "header", "H", nil, "Custom header as 'Name: value' (repeatable)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite the destination file if it exists")
	return cmd
}
