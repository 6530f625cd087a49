package cli

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query [question]", queryCmd.Use)
}

func TestQueryCmd_RequiresQuestion(t *testing.T) {
	_, err := execute(t, "query")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestQueryCmd_PrintsAnswerAndSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "query", "what", "is", "the", "capital?")

	require.NoError(t, err)
	assert.Equal(t, "what is the capital?", testMocks.rag.lastQuery.Text)
	assert.Contains(t, out, "Paris is the capital of France [1].")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] geo.md (0.91)")
	assert.Contains(t, out, "Conversation: conv-1")
}

func TestQueryCmd_PassesFlags(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "query", "-k", "3", "-c", "conv-9", "-n", "docs", "follow up")

	require.NoError(t, err)
	req := testMocks.rag.lastQuery
	assert.Equal(t, 3, req.TopK)
	assert.Equal(t, "conv-9", req.ConversationID)
	assert.Equal(t, "docs", req.Namespace)
}

func TestQueryCmd_NoSourcesWhenUngrounded(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.rag.turn = &domain.ConversationTurn{
		ConversationID: "conv-2",
		Answer:         domain.DefaultNoInfoMessage,
	}

	out, err := execute(t, "query", "unknown")

	require.NoError(t, err)
	assert.Contains(t, out, domain.DefaultNoInfoMessage)
	assert.NotContains(t, out, "Sources:")
}

func TestQueryCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "query", "--json", "capital")

	require.NoError(t, err)
	var turn domain.ConversationTurn
	require.NoError(t, json.Unmarshal([]byte(out), &turn))
	assert.Equal(t, "turn-1", turn.ID)
	assert.Len(t, turn.Citations, 1)
}

func TestQueryCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.rag.err = fmt.Errorf("%w: timeout", domain.ErrGenerationService)

	_, err := execute(t, "query", "capital")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationService)
	assert.Contains(t, err.Error(), "query failed")
}

func TestCitationSource(t *testing.T) {
	tests := []struct {
		name     string
		citation domain.Citation
		expected string
	}{
		{"source", domain.Citation{Source: "a.md", DocumentID: "doc"}, "a.md"},
		{"falls back to document", domain.Citation{DocumentID: "doc"}, "doc"},
		{"with page", domain.Citation{Source: "a.pdf", Page: 4}, "a.pdf, page 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, citationSource(tt.citation))
		})
	}
}
