// Package local reads on-disk flat indexes and their sidecar stores and
// executes nearest-neighbor queries against them.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/sidecar"
	"github.com/hyperjump/tsunagu/internal/vector"
)

// sourceKeys are the metadata aliases checked for a result's source.
var sourceKeys = []string{"source", "file_path", "path", "filename"}

// pageKeys are the metadata aliases checked for a result's page.
var pageKeys = []string{"page", "page_number", "page_label"}

// Reader loads local indexes and runs similarity queries. It owns the
// per-path cache; entries are invalidated only by ClearCache.
type Reader struct {
	cache  *entryCache
	logger *zap.Logger
}

// NewReader creates a reader with a cache of the given capacity
// (DefaultCacheCapacity when <= 0).
func NewReader(cacheCapacity int, logger *zap.Logger) *Reader {
	return &Reader{
		cache:  newEntryCache(cacheCapacity),
		logger: logger,
	}
}

// Load returns the flat index and document store for an index directory,
// from cache when possible. The sidecar is normalized through the format
// tolerance path, so a malformed sidecar yields a degraded (possibly
// empty) store rather than an error; only a missing or unreadable binary
// index fails the load.
func (r *Reader) Load(dir string) (*vector.FlatIndex, *models.DocumentStore, error) {
	key, err := canonicalPath(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve index path: %w", err)
	}
	if e, ok := r.cache.get(key); ok {
		return e.index, e.store, nil
	}

	indexPath, err := vector.Locate(key)
	if err != nil {
		return nil, nil, fmt.Errorf("locate index: %w", err)
	}
	idx, err := vector.Open(indexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load index: %w", err)
	}

	store := models.NewDocumentStore()
	sidecarPath, err := sidecar.Locate(key)
	if err != nil {
		r.logger.Warn("no sidecar found, documents will be empty",
			zap.String("dir", key), zap.Error(err))
	} else {
		data, err := os.ReadFile(sidecarPath)
		if err != nil {
			r.logger.Warn("sidecar unreadable, documents will be empty",
				zap.String("path", sidecarPath), zap.Error(err))
		} else {
			store = sidecar.Normalize(data, r.logger)
		}
	}

	if store.Len() != idx.Rows() {
		r.logger.Warn("document store and index row counts disagree",
			zap.String("dir", key),
			zap.Int("documents", store.Len()),
			zap.Int("rows", idx.Rows()))
	}

	r.cache.put(key, &entry{index: idx, store: store})
	return idx, store, nil
}

// Search runs a top-k nearest-neighbor query against the index directory.
// Query vectors of the wrong dimension are adapted (truncate or zero-pad)
// rather than rejected. Sentinel rows are skipped.
func (r *Reader) Search(ctx context.Context, dir string, queryVector []float32, topK int) ([]models.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, store, err := r.Load(dir)
	if err != nil {
		return nil, err
	}

	adapted := r.adaptDimension(queryVector, idx.Dimensions())
	rows, distances, err := idx.Search(adapted, topK)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	defaultSource := filepath.Base(dir)
	results := make([]models.QueryResult, 0, len(rows))
	for i, row := range rows {
		if row == vector.NoMatch {
			continue
		}
		results = append(results, r.buildResult(store, row, distances[i], defaultSource))
	}
	return results, nil
}

// ClearCache drops every cached index and store.
func (r *Reader) ClearCache() {
	r.cache.clear()
}

// CachedEntries returns the number of loaded index directories.
func (r *Reader) CachedEntries() int {
	return r.cache.len()
}

// adaptDimension reconciles the query vector with the index dimension:
// longer vectors are truncated, shorter ones zero-padded. Either way wins a
// warning, never an error.
func (r *Reader) adaptDimension(vec []float32, want int) []float32 {
	if len(vec) == want {
		return vec
	}
	r.logger.Warn("query embedding dimension mismatch, adapting",
		zap.Int("got", len(vec)), zap.Int("want", want))
	adapted := make([]float32, want)
	copy(adapted, vec)
	return adapted
}

// buildResult assembles a QueryResult for one matched row, tolerating a
// store shorter than the index.
func (r *Reader) buildResult(store *models.DocumentStore, row int, distance float64, defaultSource string) models.QueryResult {
	content := ""
	if row < len(store.Documents) {
		content = store.Documents[row]
	}
	id := strconv.Itoa(row)
	if row < len(store.IDs) && store.IDs[row] != "" {
		id = store.IDs[row]
	}
	var metadata map[string]any
	if row < len(store.Metadatas) {
		metadata = store.Metadatas[row]
	}

	source := defaultSource
	var page any
	if metadata != nil {
		for _, key := range sourceKeys {
			if s, ok := metadata[key].(string); ok && s != "" {
				source = s
				break
			}
		}
		for _, key := range pageKeys {
			if v, ok := metadata[key]; ok {
				page = v
				break
			}
		}
	}

	return models.QueryResult{
		Content:  content,
		Source:   source,
		Score:    vector.DistanceToScore(distance),
		ID:       id,
		Page:     page,
		Metadata: metadata,
	}
}

// canonicalPath resolves dir to a stable cache key.
func canonicalPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
