package knowledge

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tempStore(t *testing.T) *Store {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "kb.json"), discardLogger())
}

func TestDocumentID(t *testing.T) {
	id := DocumentID("hello world")
	assert.Len(t, id, 16)
	assert.Equal(t, id, DocumentID("hello world"))
	assert.NotEqual(t, id, DocumentID("hello world!"))
}

func TestAddDocumentIdempotentOnContent(t *testing.T) {
	store := tempStore(t)

	first := store.AddDocument("same content", map[string]any{"rev": 1})
	second := store.AddDocument("same content", map[string]any{"rev": 2})

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Count())

	doc, ok := store.Get(first)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"rev": 2}, doc.Metadata)
}

func TestAddDocumentNilMetadata(t *testing.T) {
	store := tempStore(t)
	id := store.AddDocument("content without metadata", nil)

	doc, ok := store.Get(id)
	require.True(t, ok)
	assert.NotNil(t, doc.Metadata)
	assert.Empty(t, doc.Metadata)
}

func TestRetrieveScoring(t *testing.T) {
	store := tempStore(t)
	store.AddDocument("the quick brown fox jumps over the lazy dog", nil)
	store.AddDocument("quick brown foxes are quick", nil)
	store.AddDocument("completely unrelated text", nil)

	docs := store.Retrieve("quick brown fox", 5)
	require.Len(t, docs, 2)
	// Both fox documents score 3; unrelated scores 0 and is dropped.
	for _, doc := range docs {
		assert.Contains(t, doc.Content, "quick")
	}
}

func TestRetrieveDescendingWithTopK(t *testing.T) {
	store := tempStore(t)
	store.AddDocument("alpha", nil)
	store.AddDocument("alpha beta", nil)
	store.AddDocument("alpha beta gamma", nil)

	docs := store.Retrieve("alpha beta gamma", 2)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha beta gamma", docs[0].Content)
	assert.Equal(t, "alpha beta", docs[1].Content)
}

func TestRetrieveSubstringSemantics(t *testing.T) {
	store := tempStore(t)
	store.AddDocument("a big party tonight", nil)

	// "art" is a substring of "party": matched by design for compatibility.
	docs := store.Retrieve("art", 5)
	require.Len(t, docs, 1)
}

func TestRetrieveRepeatedTokensScorePerOccurrence(t *testing.T) {
	store := tempStore(t)
	store.AddDocument("dark matter", nil)
	store.AddDocument("matter of fact", nil)

	// "dark dark matter" scores 3 against the first document and 1 against
	// the second: repeated query words are scanned independently.
	docs := store.Retrieve("dark dark matter", 5)
	require.Len(t, docs, 2)
	assert.Equal(t, "dark matter", docs[0].Content)
}

func TestRetrieveTieBreakInsertionOrder(t *testing.T) {
	store := tempStore(t)
	store.AddDocument("shared token first", nil)
	store.AddDocument("shared token second", nil)

	docs := store.Retrieve("shared token", 5)
	require.Len(t, docs, 2)
	assert.Equal(t, "shared token first", docs[0].Content)
	assert.Equal(t, "shared token second", docs[1].Content)
}

func TestRetrieveZeroAndNegativeTopK(t *testing.T) {
	store := tempStore(t)
	store.AddDocument("anything at all", nil)

	assert.Empty(t, store.Retrieve("anything", 0))
	assert.Empty(t, store.Retrieve("anything", -1))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	store := Open(path, discardLogger())

	idA := store.AddDocument("first document body", map[string]any{
		"source": "crawler",
		"nested": map[string]any{"depth": float64(2), "ok": true},
	})
	idB := store.AddDocument("second document body", map[string]any{
		"score": 1.5,
	})
	require.NoError(t, store.Save())

	reloaded := Open(path, discardLogger())
	require.Equal(t, 2, reloaded.Count())

	docA, ok := reloaded.Get(idA)
	require.True(t, ok)
	assert.Equal(t, "first document body", docA.Content)
	assert.Equal(t, map[string]any{
		"source": "crawler",
		"nested": map[string]any{"depth": float64(2), "ok": true},
	}, docA.Metadata)

	docB, ok := reloaded.Get(idB)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"score": 1.5}, docB.Metadata)
}

func TestSaveReplacesPreviousState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")

	store := Open(path, discardLogger())
	store.AddDocument("ephemeral", nil)
	require.NoError(t, store.Save())

	fresh := Open(path, discardLogger())
	require.Equal(t, 1, fresh.Count())

	empty := &Store{path: path, logger: discardLogger(), docs: map[string]*Document{}}
	require.NoError(t, empty.Save())

	assert.Equal(t, 0, Open(path, discardLogger()).Count())
}

func TestOpenMissingFile(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), "absent.json"), discardLogger())
	assert.Equal(t, 0, store.Count())
}

func TestOpenCorruptFileDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o644))

	store := Open(path, discardLogger())
	assert.Equal(t, 0, store.Count())

	// The store stays usable after a failed load.
	store.AddDocument("recovered", nil)
	require.NoError(t, store.Save())
	assert.Equal(t, 1, Open(path, discardLogger()).Count())
}

func TestSeedDefaults(t *testing.T) {
	store := tempStore(t)
	require.NoError(t, SeedDefaults(store))
	assert.Equal(t, 4, store.Count())

	docs := store.Retrieve("dark matter", 5)
	assert.NotEmpty(t, docs)
}
