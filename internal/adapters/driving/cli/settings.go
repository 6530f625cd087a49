package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

var errNoSettings = errors.New("settings service not configured")

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change ragline settings.

Settings are stored as dotted keys (e.g. rag.retrieval_top_k) in the config
file. Each key can be overridden by an environment variable, e.g.
RAGLINE_RAG_RETRIEVAL_TOP_K.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a setting",
	Long: `Set one setting. When the value is omitted for a secret key
(such as embedding.api_key) it is read from the terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Restore a setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List recognised setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	rag := settings.RAG
	cmd.Println("[RAG]")
	cmd.Printf("  Chunk size: %d chars (overlap %d)\n", rag.MaxChunkChars, rag.OverlapChars)
	cmd.Printf("  Embedding batches: %d per batch, %d concurrent\n",
		rag.EmbeddingBatchSize, rag.MaxConcurrentEmbeddingBatches)
	cmd.Printf("  Retrieval: top %d, min score %.2f\n", rag.RetrievalTopK, rag.RetrievalMinScore)
	cmd.Printf("  Max context: %d chars\n", rag.MaxContextChars)
	cmd.Printf("  Generation timeout: %s\n", rag.GenerationTimeout)
	cmd.Printf("  Retry: %d attempts, backoff %s to %s\n",
		rag.RetryMaxAttempts, rag.RetryBackoffBase, rag.RetryBackoffMax)
	cmd.Printf("  Empty retrieval: %s\n", rag.EmptyRetrievalPolicy.Description())
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	printProviderAccess(cmd, settings.Embedding.Provider, settings.Embedding.BaseURL,
		settings.Embedding.APIKey, settings.Embedding.Region)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	printProviderAccess(cmd, settings.LLM.Provider, settings.LLM.BaseURL,
		settings.LLM.APIKey, settings.LLM.Region)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	vs := settings.VectorStore
	cmd.Println("[Vector Store]")
	cmd.Printf("  Backend: %s\n", vs.Backend)
	cmd.Printf("  Index: %s\n", vs.IndexName)
	cmd.Printf("  Dimensions: %d\n", vs.Dimensions)
	switch vs.Backend {
	case domain.StoreSQLite:
		if vs.Path != "" {
			cmd.Printf("  Path: %s\n", vs.Path)
		}
	case domain.StorePostgres:
		cmd.Printf("  DSN: %s\n", maskOrUnset(vs.DSN))
	}
	cmd.Println()

	conv := settings.Conversation
	cmd.Println("[Conversation]")
	cmd.Printf("  Backend: %s\n", conv.Backend)
	if conv.Backend == domain.ConversationRedis {
		cmd.Printf("  Address: %s (db %d)\n", conv.Addr, conv.DB)
	}
	cmd.Printf("  TTL: %s, max %d turns\n", conv.TTL, conv.MaxTurns)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Printf("  Allowed origins: %s\n", strings.Join(settings.Server.AllowedOrigins, ", "))
	cmd.Printf("  Requests per minute: %d\n", settings.RateLimit.RequestsPerMinute)
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'ragline settings set <key> <value>' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func printProviderAccess(cmd *cobra.Command, p domain.AIProvider, baseURL, apiKey, region string) {
	if p.IsLocal() || (p == domain.AIProviderOpenAI && baseURL != "") {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if p.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskOrUnset(apiKey))
	}
	if p == domain.AIProviderBedrock && region != "" {
		cmd.Printf("  Region: %s\n", region)
	}
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func maskOrUnset(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return maskAPIKey(secret)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}

	key := args[0]
	secret := settingsService.IsSecret(key)

	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		if !secret {
			return fmt.Errorf("%w: value required for %s", domain.ErrInvalidInput, key)
		}
		cmd.Printf("%s: ", key)
		value = readPassword(cmd.InOrStdin())
		cmd.Println()
		if value == "" {
			return fmt.Errorf("%w: empty value for %s", domain.ErrInvalidInput, key)
		}
	}

	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	shown := value
	if secret {
		shown = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	if err := settingsService.Unset(args[0]); err != nil {
		return err
	}
	cmd.Printf("Unset %s (default restored)\n", args[0])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	for _, key := range settingsService.Keys() {
		if settingsService.IsSecret(key) {
			cmd.Printf("%s (secret)\n", key)
			continue
		}
		cmd.Println(key)
	}
	return nil
}

// readPassword reads a line without echo when in is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	input, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
