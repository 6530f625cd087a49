package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

var (
	ingestID        string
	ingestTitle     string
	ingestText      string
	ingestNamespace string
	ingestJSON      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Add documents to the index",
	Long: `Chunks, embeds and stores documents so they can be queried.

Files (.txt, .md) are identified by their absolute path, so ingesting a file
again replaces its earlier version. Use --text to ingest a string, or
--text - to read it from stdin.`,
	Example: `  ragline ingest notes.md handbook.txt
  ragline ingest --text "Paris is the capital of France." --title Geography
  cat report.txt | ragline ingest --text - --id report-2024`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document id (single document only)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "title used in citations")
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "ingest this text instead of files ('-' reads stdin)")
	ingestCmd.Flags().StringVarP(&ingestNamespace, "namespace", "n", "", "vector store namespace")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	switch {
	case ingestText != "" && len(args) > 0:
		return errors.New("use either --text or file arguments, not both")
	case ingestText == "" && len(args) == 0:
		return errors.New("nothing to ingest: pass files or --text")
	case ingestID != "" && len(args) > 1:
		return errors.New("--id can only be used with a single document")
	}

	if ingestText != "" {
		return runIngestText(cmd)
	}
	return runIngestFiles(cmd, args)
}

func runIngestText(cmd *cobra.Command) error {
	if err := requireRAG(cmd); err != nil {
		return err
	}

	text := ingestText
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is empty", domain.ErrInvalidInput)
	}

	result, err := ragService.Ingest(commandContext(cmd), driving.IngestRequest{
		DocumentID: ingestID,
		Text:       text,
		Title:      ingestTitle,
		Namespace:  ingestNamespace,
		Replace:    ingestID != "",
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		return outputJSON(cmd, []*driving.IngestResult{result})
	}
	cmd.Printf("Ingested %s: %d chunks\n", result.DocumentID, result.ChunksCreated)
	return nil
}

func runIngestFiles(cmd *cobra.Command, paths []string) error {
	if err := requireDocuments(cmd); err != nil {
		return err
	}

	var (
		results []*driving.IngestResult
		failed  int
	)
	for _, path := range paths {
		result, err := documentService.IngestFile(commandContext(cmd), path, driving.FileOptions{
			DocumentID: ingestID,
			Title:      ingestTitle,
			Namespace:  ingestNamespace,
		})
		if err != nil {
			failed++
			cmd.PrintErrf("Failed %s: %v\n", path, err)
			continue
		}
		results = append(results, result)
		if !ingestJSON {
			cmd.Printf("Ingested %s (%s): %d chunks\n", path, result.DocumentID, result.ChunksCreated)
		}
	}

	if ingestJSON {
		if err := outputJSON(cmd, results); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}
