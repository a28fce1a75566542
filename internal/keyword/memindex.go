// Package keyword provides an in-memory keyword index over a document
// store, used as the fallback search path when no embedding model is
// loaded.
package keyword

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/tsunagu/internal/models"
)

// MemIndex is a bleve index built from a DocumentStore. It lives only as
// long as the store it was built from; rebuild after a store reload.
type MemIndex struct {
	index bleve.Index
	store *models.DocumentStore
}

type indexedDoc struct {
	Content string `json:"content"`
}

// NewMemIndex indexes every document of the store in memory. Row indices
// are the bleve document ids, so hits map straight back to store rows.
func NewMemIndex(store *models.DocumentStore) (*MemIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so exact words match.
	textField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textField)
	im.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create in-memory index: %w", err)
	}

	batch := idx.NewBatch()
	for i, content := range store.Documents {
		if err := batch.Index(fmt.Sprintf("%d", i), indexedDoc{Content: content}); err != nil {
			return nil, fmt.Errorf("index document %d: %w", i, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("commit index batch: %w", err)
	}
	return &MemIndex{index: idx, store: store}, nil
}

// Search returns up to limit keyword hits as unified query results. Scores
// are normalized to (0,1] by the top hit.
func (m *MemIndex) Search(ctx context.Context, query string, limit int) ([]models.QueryResult, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	res, err := m.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	maxScore := 0.0
	for _, hit := range res.Hits {
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}

	results := make([]models.QueryResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		var row int
		if _, err := fmt.Sscanf(hit.ID, "%d", &row); err != nil {
			continue
		}
		rec := m.store.Record(row)
		score := hit.Score
		if maxScore > 0 {
			score = hit.Score / maxScore
		}
		source := ""
		if s, ok := rec.Metadata["source"].(string); ok {
			source = s
		}
		results = append(results, models.QueryResult{
			Content:  rec.Content,
			Source:   source,
			Score:    score,
			ID:       rec.ID,
			Metadata: rec.Metadata,
		})
	}
	return results, nil
}

// Close releases the index.
func (m *MemIndex) Close() error {
	return m.index.Close()
}
