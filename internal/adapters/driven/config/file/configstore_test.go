package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	store, err := NewConfigStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	assert.DirExists(t, filepath.Dir(path))
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "openai"))

	val, ok := store.Get("llm.provider")
	assert.True(t, ok)
	assert.Equal(t, "openai", val)

	_, ok = store.Get("nonexistent")
	assert.False(t, ok)
}

func TestConfigStore_WritesNestedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	store, err := NewConfigStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Set("rag.retrieval_top_k", 8))
	require.NoError(t, store.Set("llm.provider", "anthropic"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[rag]")
	assert.Contains(t, string(data), "retrieval_top_k = 8")
	assert.Contains(t, string(data), "[llm]")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Persistence(t *testing.T) {
	for _, name := range []string{"config.toml", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			store1, err := NewConfigStore(path)
			require.NoError(t, err)
			require.NoError(t, store1.Set("llm.provider", "ollama"))
			require.NoError(t, store1.Set("rag.retrieval_top_k", 7))
			require.NoError(t, store1.Set("server.allowed_origins", []string{"a", "b"}))

			store2, err := NewConfigStore(path)
			require.NoError(t, err)

			v, ok := store2.Get("llm.provider")
			require.True(t, ok)
			assert.Equal(t, "ollama", v)

			v, ok = store2.Get("rag.retrieval_top_k")
			require.True(t, ok)
			assert.EqualValues(t, 7, v)

			v, ok = store2.Get("server.allowed_origins")
			require.True(t, ok)
			assert.Len(t, v, 2)
		})
	}
}

func TestConfigStore_ReadsHandWrittenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragline.yml")
	content := "rag:\n  max_chunk_chars: 800\nembedding:\n  provider: openai\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	store, err := NewConfigStore(path)
	require.NoError(t, err)

	v, ok := store.Get("rag.max_chunk_chars")
	require.True(t, ok)
	assert.EqualValues(t, 800, v)
	assert.Equal(t, []string{"embedding.provider", "rag.max_chunk_chars"}, store.Keys())
}

func TestConfigStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	store, err := NewConfigStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.api_key", "secret"))
	require.NoError(t, store.Delete("llm.api_key"))
	require.NoError(t, store.Delete("missing"))

	reloaded, err := NewConfigStore(path)
	require.NoError(t, err)
	_, ok := reloaded.Get("llm.api_key")
	assert.False(t, ok)
}

func TestConfigStore_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0600))

	_, err := NewConfigStore(path)
	assert.Error(t, err)
}

func TestFlattenMap(t *testing.T) {
	nested := map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": map[string]any{"d": "x"},
		},
		"e": true,
	}
	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "e": true}, flattenMap(nested, ""))
}

func TestUnflattenMap(t *testing.T) {
	tree, err := unflattenMap(map[string]any{"a.b": 1, "a.c.d": "x", "e": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
	}, tree)

	_, err = unflattenMap(map[string]any{"a": 1, "a.b": 2})
	assert.Error(t, err)
}
