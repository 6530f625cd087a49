package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/adapters/driving/watch"
)

var (
	watchNamespace string
	watchNoScan    bool
	watchDebounce  time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Keep the index in sync with directories",
	Long: `Ingests every supported file under the given directories, then watches
them. Created and modified files are re-ingested once they stop changing;
removed files have their vectors deleted. Hidden files and directories
are ignored. Stop with Ctrl+C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchNamespace, "namespace", "n", "", "vector store namespace")
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "skip the initial ingestion of existing files")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a changed file is processed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(cmd); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	w, err := watch.New(documentService, watch.Config{
		Debounce:  watchDebounce,
		Namespace: watchNamespace,
		OnEvent: func(ev watch.Event) {
			if ev.Err != nil {
				cmd.PrintErrf("%s %s: %v\n", ev.Op, ev.Path, ev.Err)
				return
			}
			cmd.Printf("%s %s (%d chunks)\n", ev.Op, ev.Path, ev.Chunks)
		},
	})
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range args {
		if err := w.Add(dir); err != nil {
			return err
		}
	}

	if !watchNoScan {
		for _, dir := range args {
			if err := w.Scan(ctx, dir); err != nil {
				return fmt.Errorf("scan %s: %w", dir, err)
			}
		}
	}

	cmd.Printf("Watching %d director%s, press Ctrl+C to stop\n", len(args), plural(len(args), "y", "ies"))
	return w.Run(ctx)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
