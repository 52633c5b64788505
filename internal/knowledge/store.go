package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Document is a unit of stored content with an open metadata map. The
// embedding slot exists for a future semantic-retrieval upgrade and is
// never populated by this package.
type Document struct {
	ID        string         `json:"-"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float64      `json:"-"`
}

// DocumentID derives the content-addressed identifier: the first 16 hex
// characters of the SHA-256 of the content alone. Metadata does not
// participate, so identical content always collapses to one id.
func DocumentID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// Store is a content-addressed document store persisted as a single JSON
// file mapping id to {content, metadata}. The in-memory copy is loaded at
// construction; mutations reach disk only through Save. All operations are
// serialized behind one mutex (single-writer discipline).
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	docs  map[string]*Document
	order []string // insertion order, the documented retrieval tie-break
}

type persistedDocument struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Open loads (or lazily creates) a store backed by the file at path. A
// missing file yields an empty store; a corrupt file is logged and whatever
// state was reconstructed before the error is kept. Construction never
// fails.
func Open(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		logger: logger,
		docs:   make(map[string]*Document),
	}
	s.load()
	return s
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("read knowledge store", "path", s.path, "error", err)
		}
		return
	}

	var data map[string]persistedDocument
	if err := json.Unmarshal(raw, &data); err != nil {
		// Degrade to whatever was reconstructed; never abort construction.
		s.logger.Error("parse knowledge store, keeping partial state",
			"path", s.path, "error", err)
	}

	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	// Sorted-id insertion keeps retrieval tie-breaks deterministic across
	// restarts.
	sort.Strings(ids)
	for _, id := range ids {
		doc := data[id]
		metadata := doc.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		s.docs[id] = &Document{ID: id, Content: doc.Content, Metadata: metadata}
		s.order = append(s.order, id)
	}
}

// AddDocument upserts content under its content-derived id and returns the
// id. Re-adding identical content overwrites the stored metadata.
func (s *Store) AddDocument(content string, metadata map[string]any) string {
	if metadata == nil {
		metadata = map[string]any{}
	}

	id := DocumentID(content)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[id]; !exists {
		s.order = append(s.order, id)
	}
	s.docs[id] = &Document{ID: id, Content: content, Metadata: metadata}
	return id
}

// Get returns a copy of the document under id, if present.
func (s *Store) Get(id string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// Count reports the number of stored documents.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Retrieve ranks documents by keyword overlap with the query and returns at
// most topK of them, best first.
//
// The query is lower-cased and split on whitespace; a document scores one
// point for every query token that occurs as a substring of its lower-cased
// content. Tokens are not de-duplicated (a repeated query word scores per
// occurrence), and substring matching means "art" matches "party" — both
// behaviours are preserved deliberately for compatibility with existing
// stores. Zero-score documents are dropped; ties break by insertion order.
func (s *Store) Retrieve(query string, topK int) []Document {
	tokens := strings.Fields(strings.ToLower(query))

	s.mu.Lock()
	defer s.mu.Unlock()

	type scoredDocument struct {
		score int
		doc   Document
	}

	var scored []scoredDocument
	for _, id := range s.order {
		doc := s.docs[id]
		contentLower := strings.ToLower(doc.Content)
		score := 0
		for _, token := range tokens {
			if strings.Contains(contentLower, token) {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, scoredDocument{score: score, doc: *doc})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if topK < 0 {
		topK = 0
	}
	if topK > len(scored) {
		topK = len(scored)
	}
	out := make([]Document, 0, topK)
	for _, sd := range scored[:topK] {
		out = append(out, sd.doc)
	}
	return out
}

// Save serializes the full id → {content, metadata} mapping to the backing
// file, replacing any previous state. The write goes through a temp file
// and rename so readers never observe a torn file. Save failures propagate:
// silent data loss is unacceptable.
func (s *Store) Save() error {
	s.mu.Lock()
	data := make(map[string]persistedDocument, len(s.docs))
	for id, doc := range s.docs {
		data[id] = persistedDocument{Content: doc.Content, Metadata: doc.Metadata}
	}
	s.mu.Unlock()

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode knowledge store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".knowledge-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write knowledge store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close knowledge store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace knowledge store: %w", err)
	}
	return nil
}
