package sidecar

import (
	"bytes"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

// Normalize turns a raw sidecar payload of unknown shape into a canonical
// DocumentStore. It never fails: unrecognized or corrupted payloads degrade
// to a single stringified document or, on a genuine panic during parsing,
// to an empty store. The caller is responsible for bounds-checking against
// the paired index's row count.
func Normalize(data []byte, logger *zap.Logger) (store *models.DocumentStore) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("sidecar parse panicked, degrading to empty store", zap.Any("panic", r))
			store = models.NewDocumentStore()
		}
	}()

	raw := Classify(data)
	switch raw.Shape {
	case ShapeCanonical:
		return normalizeCanonical(raw.Canonical, logger)
	case ShapeDocstoreTuple:
		return normalizeTuple(raw.Tuple, logger)
	case ShapeBareList:
		return normalizeBareList(raw.List)
	default:
		return normalizeOpaque(raw.Opaque, logger)
	}
}

// normalizeCanonical handles the already-canonical object shape, including
// the key aliases (texts, metadata) and the known corruption where the
// documents list's first element is itself a docstore tuple.
func normalizeCanonical(obj map[string]json.RawMessage, logger *zap.Logger) *models.DocumentStore {
	docsRaw, ok := obj["documents"]
	if !ok {
		docsRaw = obj["texts"]
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(docsRaw, &docs); err != nil {
		logger.Warn("canonical sidecar has non-list documents, degrading", zap.Error(err))
		return normalizeOpaque(docsRaw, logger)
	}

	// A buggy legacy writer nested a whole docstore tuple as documents[0].
	if len(docs) > 0 {
		var first []json.RawMessage
		if err := json.Unmarshal(docs[0], &first); err == nil {
			if tup := asTuple(first); tup != nil {
				logger.Warn("detected nested docstore tuple in documents[0], renormalizing")
				return normalizeTuple(tup, logger)
			}
		}
	}

	var metadatas []map[string]any
	if mdRaw, ok := obj["metadatas"]; ok {
		_ = json.Unmarshal(mdRaw, &metadatas)
	} else if mdRaw, ok := obj["metadata"]; ok {
		_ = json.Unmarshal(mdRaw, &metadatas)
	}
	var ids []string
	if idsRaw, ok := obj["ids"]; ok {
		_ = json.Unmarshal(idsRaw, &ids)
	}

	store := models.NewDocumentStore()
	for i, doc := range docs {
		id := ""
		if i < len(ids) {
			id = ids[i]
		}
		var md map[string]any
		if i < len(metadatas) {
			md = metadatas[i]
		}
		store.Append(id, coerceString(doc), md)
	}
	return store
}

// normalizeTuple rebuilds a store from the legacy (docstore, index->id map)
// pair. Entries are walked in ascending index order; ids the docstore
// cannot resolve become empty-content records rather than errors.
func normalizeTuple(tup *Tuple, logger *zap.Logger) *models.DocumentStore {
	lookup := newDocLookup(tup.Docstore)
	store := models.NewDocumentStore()
	missing := 0
	for _, pair := range sortByIndex(tup.IDMap) {
		id := coerceID(pair.Value)
		rec, ok := lookup.Get(id)
		if !ok {
			missing++
			rec = models.NewDocumentRecord(id, "", nil)
		}
		store.Append(id, rec.Content, rec.Metadata)
	}
	if missing > 0 {
		logger.Warn("docstore could not resolve some ids",
			zap.Int("missing", missing),
			zap.Int("total", len(tup.IDMap)))
	}
	return store
}

// normalizeBareList wraps a plain sequence as documents with placeholder
// metadata and row-index ids.
func normalizeBareList(items []json.RawMessage) *models.DocumentStore {
	store := models.NewDocumentStore()
	for i, item := range items {
		store.Append(strconv.Itoa(i), coerceString(item), nil)
	}
	return store
}

// normalizeOpaque is the last-resort degradation: the stringified payload
// becomes a single-document store. Empty input yields an empty store.
func normalizeOpaque(data []byte, logger *zap.Logger) *models.DocumentStore {
	store := models.NewDocumentStore()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return store
	}
	logger.Warn("unrecognized sidecar shape, wrapping as single document",
		zap.String("head", utils.Truncate(string(trimmed), 80)))
	store.Append("0", coerceString(trimmed), nil)
	return store
}
