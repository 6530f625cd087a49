package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector store statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := requireRAG(cmd); err != nil {
		return err
	}

	stats, err := ragService.Stats(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	if statsJSON {
		return outputJSON(cmd, stats)
	}

	cmd.Printf("Index:      %s\n", stats.IndexName)
	cmd.Printf("Vectors:    %d\n", stats.TotalVectors)
	cmd.Printf("Dimension:  %d\n", stats.Dimension)

	if len(stats.Namespaces) > 0 {
		cmd.Println("Namespaces:")
		names := make([]string, 0, len(stats.Namespaces))
		for ns := range stats.Namespaces {
			names = append(names, ns)
		}
		slices.Sort(names)
		for _, ns := range names {
			cmd.Printf("  %-20s %d\n", ns, stats.Namespaces[ns])
		}
	}
	return nil
}
