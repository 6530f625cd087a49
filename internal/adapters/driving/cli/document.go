package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `Remove documents from the index.`,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document's vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentRemoveFileCmd = &cobra.Command{
	Use:   "remove [file]",
	Short: "Delete the vectors of an ingested file",
	Long:  `Removes a file that was ingested by path; the file itself is left alone.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentRemoveFile,
}

func init() {
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentRemoveFileCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if err := requireRAG(cmd); err != nil {
		return err
	}

	n, err := ragService.DeleteDocument(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Deleted %s: %d vectors\n", args[0], n)
	return nil
}

func runDocumentRemoveFile(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(cmd); err != nil {
		return err
	}

	n, err := documentService.RemoveFile(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	cmd.Printf("Removed %s: %d vectors\n", args[0], n)
	return nil
}
