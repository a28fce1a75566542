// Package models defines core data structures for indexes, documents, and results.
package models

import "fmt"

// IndexKind distinguishes the two backend families an index can live in.
type IndexKind string

const (
	// IndexKindLocal is an on-disk flat binary index with a sidecar metadata file.
	IndexKindLocal IndexKind = "local"
	// IndexKindRemote is a collection in the remote document service.
	IndexKindRemote IndexKind = "remote"
)

// IndexDescriptor identifies a discovered index. Descriptors are re-derived
// on every discovery pass and carry no persisted identity beyond name+kind.
type IndexDescriptor struct {
	Name string    `json:"name"`
	Kind IndexKind `json:"kind"`
	// Path is the index directory for local indexes.
	Path string `json:"path,omitempty"`
	// Collection is the collection name for remote indexes.
	Collection string `json:"collection,omitempty"`
	// Dimensions is the embedding dimension when known (0 = unknown).
	Dimensions int `json:"dimensions,omitempty"`
}

// DocumentRecord is one document with its metadata. Content is always a
// string (coerced from richer legacy values) and Metadata is never nil.
type DocumentRecord struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	// Embedding carries a precomputed vector when available (migration/ingest).
	Embedding []float32 `json:"embedding,omitempty"`
}

// NewDocumentRecord returns a record with a non-nil metadata map.
func NewDocumentRecord(id, content string, metadata map[string]any) DocumentRecord {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return DocumentRecord{ID: id, Content: content, Metadata: metadata}
}

// DocumentStore is the canonical positional mapping from vector rows to
// document contents, metadata, and ids. Documents[i] corresponds to row i of
// the paired binary index. The three slices always have equal length; a
// reload replaces the whole structure, it is never mutated in place.
type DocumentStore struct {
	Documents []string
	Metadatas []map[string]any
	IDs       []string
}

// NewDocumentStore returns an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		Documents: []string{},
		Metadatas: []map[string]any{},
		IDs:       []string{},
	}
}

// Append adds one aligned row. Nil metadata is stored as an empty map.
func (s *DocumentStore) Append(id, content string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	s.Documents = append(s.Documents, content)
	s.Metadatas = append(s.Metadatas, metadata)
	s.IDs = append(s.IDs, id)
}

// Len returns the number of documents.
func (s *DocumentStore) Len() int {
	return len(s.Documents)
}

// Validate checks the positional alignment invariant.
func (s *DocumentStore) Validate() error {
	if len(s.Documents) != len(s.Metadatas) || len(s.Documents) != len(s.IDs) {
		return fmt.Errorf("misaligned store: %d documents, %d metadatas, %d ids",
			len(s.Documents), len(s.Metadatas), len(s.IDs))
	}
	return nil
}

// Record returns row i as a DocumentRecord. Out-of-range rows yield an
// empty-content record with the row index as id, never a panic.
func (s *DocumentStore) Record(i int) DocumentRecord {
	if i < 0 || i >= len(s.Documents) {
		return NewDocumentRecord(fmt.Sprintf("%d", i), "", nil)
	}
	id := fmt.Sprintf("%d", i)
	if i < len(s.IDs) && s.IDs[i] != "" {
		id = s.IDs[i]
	}
	var md map[string]any
	if i < len(s.Metadatas) {
		md = s.Metadatas[i]
	}
	return NewDocumentRecord(id, s.Documents[i], md)
}
