package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

var (
	queryTopK         int
	queryJSON         bool
	queryConversation string
	queryNamespace    string
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about indexed documents",
	Long: `Retrieves the chunks most similar to the question and asks the LLM to
answer from them. The answer cites its sources as [1], [2], ...

Pass --conversation with the id printed by an earlier query to ask a
follow-up question in the same conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve (0 = from settings)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the full turn as JSON")
	queryCmd.Flags().StringVarP(&queryConversation, "conversation", "c", "", "continue a conversation")
	queryCmd.Flags().StringVarP(&queryNamespace, "namespace", "n", "", "restrict retrieval to a namespace")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := requireRAG(cmd); err != nil {
		return err
	}

	turn, err := ragService.Query(commandContext(cmd), driving.QueryRequest{
		Text:           strings.Join(args, " "),
		ConversationID: queryConversation,
		Namespace:      queryNamespace,
		TopK:           queryTopK,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, turn)
	}
	outputTurn(cmd, turn)
	return nil
}

func outputTurn(cmd *cobra.Command, turn *domain.ConversationTurn) {
	cmd.Println(turn.Answer)
	cmd.Println()

	if len(turn.Citations) > 0 {
		cmd.Println("Sources:")
		for _, c := range turn.Citations {
			cmd.Printf("  %s %s (%.2f)\n", c.Label, citationSource(c), c.Score)
		}
		cmd.Println()
	}

	cmd.Printf("Conversation: %s\n", turn.ConversationID)
}

// citationSource names a citation for display.
func citationSource(c domain.Citation) string {
	name := c.Source
	if name == "" {
		name = c.DocumentID
	}
	if c.Page > 0 {
		return fmt.Sprintf("%s, page %d", name, c.Page)
	}
	return name
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
