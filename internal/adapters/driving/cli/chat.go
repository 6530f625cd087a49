package cli

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/adapters/driving/tui"
	"github.com/custodia-labs/ragline/internal/logger"
)

var (
	chatNamespace string
	chatTopK      int
	chatLogFile   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your documents in the terminal",
	Long: `Opens an interactive chat. Each question is answered from the indexed
documents and follow-up questions keep the conversation's context.

Controls:
  enter    - Ask
  tab      - Inspect the sources of the last answer
  ctrl+n   - Start a new conversation
  pgup/dn  - Scroll the transcript
  f1       - Help
  ctrl+c   - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatNamespace, "namespace", "n", "", "restrict retrieval to a namespace")
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "number of chunks to retrieve (0 = from settings)")
	chatCmd.Flags().StringVar(&chatLogFile, "log-file", "", "write logs here while the chat is open")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\nStack trace:\n%s\n", r, debug.Stack())
			err = fmt.Errorf("chat crashed: %v", r)
		}
	}()

	if err := requireRAG(cmd); err != nil {
		return err
	}

	restore, err := redirectLogs(chatLogFile)
	if err != nil {
		return err
	}
	defer restore()

	app, err := tui.NewApp(&tui.Ports{RAG: ragService}, tui.Options{
		Namespace: chatNamespace,
		TopK:      chatTopK,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	app.WithContext(commandContext(cmd))

	if err := app.Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}

// redirectLogs keeps log lines off the alternate screen. They go to path
// when set and are dropped otherwise.
func redirectLogs(path string) (func(), error) {
	if path == "" {
		logger.SetOutput(io.Discard)
		return func() { logger.SetOutput(os.Stderr) }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)
	return func() {
		logger.SetOutput(os.Stderr)
		_ = f.Close()
	}, nil
}
