package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAugmentWithoutHitsReturnsQueryUnchanged(t *testing.T) {
	rag := NewRAG(tempStore(t))
	assert.Equal(t, "what is dark matter", rag.Augment("what is dark matter", 3))
}

func TestAugmentBuildsNumberedContexts(t *testing.T) {
	store := tempStore(t)
	store.AddDocument("dark matter is invisible", nil)
	store.AddDocument("dark energy expands the universe", nil)

	prompt := NewRAG(store).Augment("dark", 3)

	assert.Contains(t, prompt, "[Context 1]\ndark matter is invisible")
	assert.Contains(t, prompt, "[Context 2]\ndark energy expands the universe")
	assert.Contains(t, prompt, "Query: dark")
	assert.True(t, strings.HasPrefix(prompt, "Based on the following context"))
	assert.True(t, strings.HasSuffix(prompt, "informed by the context above."))
}

func TestGenerateSurfacesRetrievalProvenance(t *testing.T) {
	store := tempStore(t)
	id := store.AddDocument("dark matter is invisible", map[string]any{"topic": "physics"})

	result := NewRAG(store).Generate("dark matter", 3)

	assert.Equal(t, "dark matter", result.Query)
	assert.Equal(t, 1, result.NumRetrieved)
	require.Len(t, result.RetrievedDocuments, 1)
	assert.Equal(t, id, result.RetrievedDocuments[0].ID)
	assert.Equal(t, "physics", result.RetrievedDocuments[0].Metadata["topic"])
	assert.Contains(t, result.AugmentedPrompt, "[Context 1]")
}

func TestGenerateWithEmptyStore(t *testing.T) {
	result := NewRAG(tempStore(t)).Generate("anything", 3)

	assert.Equal(t, "anything", result.AugmentedPrompt)
	assert.Zero(t, result.NumRetrieved)
	assert.Empty(t, result.RetrievedDocuments)
}
