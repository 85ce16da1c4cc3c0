package cli

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kacey/internal/adapters/driving/watch"
	"github.com/custodia-labs/kacey/internal/core/domain"
)

var (
	watchScope    string
	watchScan     bool
	watchDebounce = watch.DefaultDebounce
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Ingest files dropped into a directory",
	Long: `Watches a directory and ingests every file created or saved in it.

Saving a file again re-ingests it under the same title, replacing the
earlier version. Hidden files and editor temp files are ignored. Runs until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchScope, "scope", "", "scope for ingested artifacts")
	watchCmd.Flags().BoolVar(&watchScan, "scan", false, "ingest files already in the directory on start")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "wait for writes to settle")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Ingestion == nil {
		return errors.New("ingestion service not configured")
	}

	opts := []watch.Option{
		watch.WithScope(watchScope),
		watch.WithDebounce(watchDebounce),
		watch.WithOnIngest(func(path string, result *domain.IngestResult, err error) {
			name := filepath.Base(path)
			switch {
			case err != nil && (result == nil || result.Artifact == nil):
				cmd.Printf("%s: %v\n", name, err)
			case result.Unchanged:
				cmd.Printf("%s: unchanged\n", name)
			default:
				cmd.Printf("%s: %d chunks, %d embedded\n", name, result.Chunks, result.Embedded)
			}
		}),
	}
	if watchScan {
		opts = append(opts, watch.WithInitialScan())
	}

	w := watch.New(svc.Ingestion, args[0], opts...)
	defer w.Close()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(commandContext(cmd))
}
