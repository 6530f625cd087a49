package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/logger"
)

func TestChatCmd_Flags(t *testing.T) {
	assert.Equal(t, "chat", chatCmd.Use)
	for _, name := range []string{"namespace", "top-k", "log-file"} {
		assert.NotNil(t, chatCmd.Flags().Lookup(name), name)
	}
}

func TestChatCmd_RejectsArgs(t *testing.T) {
	_, err := execute(t, "chat", "extra")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestChatCmd_RequiresRAG(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	ragService = nil

	_, err := execute(t, "chat")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rag service not configured")
}

func TestRedirectLogs_ToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.log")

	restore, err := redirectLogs(path)
	require.NoError(t, err)
	logger.Info("written while chatting")
	restore()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written while chatting")
}

func TestRedirectLogs_BadPath(t *testing.T) {
	_, err := redirectLogs(filepath.Join(t.TempDir(), "missing", "chat.log"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "open log file")
}

func TestRedirectLogs_Discard(t *testing.T) {
	restore, err := redirectLogs("")
	require.NoError(t, err)
	defer restore()

	assert.NotNil(t, restore)
	logger.Error("dropped")
}
