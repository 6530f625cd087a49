package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the embedding service, vector store and LLM",
	RunE:  runHealth,
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if err := requireRAG(cmd); err != nil {
		return err
	}

	health := ragService.Health(commandContext(cmd))
	if healthJSON {
		if err := outputJSON(cmd, health); err != nil {
			return err
		}
	} else {
		outputHealth(cmd, health)
	}

	if health.Status != domain.HealthHealthy {
		return fmt.Errorf("status %s", health.Status)
	}
	return nil
}

func outputHealth(cmd *cobra.Command, health domain.HealthStatus) {
	cmd.Printf("Status: %s\n", health.Status)

	names := make([]string, 0, len(health.Components))
	for name := range health.Components {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		c := health.Components[name]
		state := "ok"
		if !c.OK {
			state = "unavailable"
		}
		line := fmt.Sprintf("  %-13s %s", name, state)
		if c.Latency != "" {
			line += " (" + c.Latency + ")"
		}
		if c.Detail != "" {
			line += ": " + c.Detail
		}
		cmd.Println(line)
	}
}
