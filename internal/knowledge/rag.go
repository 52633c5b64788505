package knowledge

import (
	"fmt"
	"strings"
)

// RAG builds retrieval-augmented prompt strings over a Store. It never
// calls a model; the augmented prompt is a string artifact only.
type RAG struct {
	store *Store
}

// NewRAG wraps a store for prompt augmentation.
func NewRAG(store *Store) *RAG {
	return &RAG{store: store}
}

// RetrievedDocument surfaces a retrieved document with its id and metadata.
type RetrievedDocument struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// GenerateResult carries the augmented prompt plus retrieval provenance.
type GenerateResult struct {
	Query              string              `json:"query"`
	AugmentedPrompt    string              `json:"augmented_prompt"`
	RetrievedDocuments []RetrievedDocument `json:"retrieved_documents"`
	NumRetrieved       int                 `json:"num_retrieved"`
}

// Augment retrieves the top-K documents for the query and folds them into a
// prompt under numbered context headings. With no hits the query is
// returned unchanged.
func (r *RAG) Augment(query string, topK int) string {
	docs := r.store.Retrieve(query, topK)
	if len(docs) == 0 {
		return query
	}

	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		parts = append(parts, fmt.Sprintf("[Context %d]\n%s\n", i+1, doc.Content))
	}
	context := strings.Join(parts, "\n")

	return fmt.Sprintf(`Based on the following context from the dark knowledge base:

%s

Query: %s

Please provide a response informed by the context above.`, context, query)
}

// Generate returns the augmented prompt together with each retrieved
// document's id and metadata.
func (r *RAG) Generate(query string, topK int) GenerateResult {
	docs := r.store.Retrieve(query, topK)

	retrieved := make([]RetrievedDocument, 0, len(docs))
	for _, doc := range docs {
		retrieved = append(retrieved, RetrievedDocument{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
	}

	return GenerateResult{
		Query:              query,
		AugmentedPrompt:    r.Augment(query, topK),
		RetrievedDocuments: retrieved,
		NumRetrieved:       len(retrieved),
	}
}
