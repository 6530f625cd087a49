package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func TestHealthCmd_Healthy(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "health")

	require.NoError(t, err)
	assert.Contains(t, out, "Status: healthy")
	assert.Contains(t, out, "embedding")
	assert.Contains(t, out, "ok (40ms)")
	assert.Less(t, strings.Index(out, "embedding"), strings.Index(out, "vector_store"))
}

func TestHealthCmd_DegradedReturnsError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.rag.health = domain.HealthStatus{
		Status: domain.HealthDegraded,
		Components: map[string]domain.ComponentHealth{
			domain.ComponentVectorStore: {OK: false, Detail: "connection refused"},
		},
	}

	out, err := execute(t, "health")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "degraded")
	assert.Contains(t, out, "unavailable: connection refused")
}

func TestHealthCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "health", "--json")

	require.NoError(t, err)
	var health domain.HealthStatus
	require.NoError(t, json.Unmarshal([]byte(out), &health))
	assert.Equal(t, domain.HealthHealthy, health.Status)
}

func TestStatsCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Index:      ragline_chunks")
	assert.Contains(t, out, "Vectors:    42")
	assert.Contains(t, out, "Dimension:  768")
	assert.Contains(t, out, "docs")
}

func TestStatsCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "stats", "--json")

	require.NoError(t, err)
	var stats domain.IndexStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 42, stats.TotalVectors)
}

func TestStatsCmd_StoreUnavailable(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	testMocks.rag.err = fmt.Errorf("%w: dial", domain.ErrStoreUnavailable)

	_, err := execute(t, "stats")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
