package cli

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range documentCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"delete", "remove"}, names)
}

func TestDocumentDeleteCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, "document", "delete")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestDocumentDeleteCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "delete", "doc-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, testMocks.rag.deleted)
	assert.Contains(t, out, "Deleted doc-1: 4 vectors")
}

func TestDocumentDeleteCmd_NotFound(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.rag.err = fmt.Errorf("%w: document doc-x", domain.ErrNotFound)

	_, err := execute(t, "document", "delete", "doc-x")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentRemoveCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "remove", "notes/a.md")

	require.NoError(t, err)
	assert.Equal(t, []string{"notes/a.md"}, testMocks.docs.removed)
	assert.Contains(t, out, "Removed notes/a.md: 2 vectors")
}
