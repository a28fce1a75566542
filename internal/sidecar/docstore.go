package sidecar

import (
	"bytes"
	"encoding/json"

	"github.com/hyperjump/tsunagu/internal/models"
)

// DocLookup resolves an opaque document id against a legacy docstore shape.
// One implementation exists per known layout, chosen during classification.
type DocLookup interface {
	Get(id string) (models.DocumentRecord, bool)
}

// dictKeys are the candidate field names under which legacy docstores kept
// their id -> document map, tried in this order.
var dictKeys = []string{"_dict", "docstore", "docs", "documents", "store"}

// contentKeys are the accepted field names for a document's text.
var contentKeys = []string{"content", "page_content", "text"}

// newDocLookup builds a DocLookup for the given docstore payload. Unknown
// layouts yield an emptyLookup so resolution degrades instead of failing.
func newDocLookup(raw json.RawMessage) DocLookup {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return emptyLookup{}
	}

	for _, key := range dictKeys {
		val, ok := obj[key]
		if !ok {
			continue
		}
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(val, &entries); err == nil {
			return dictLookup{entries: entries}
		}
	}

	// The object may itself be the id -> document map.
	if looksLikeDict(obj) {
		return dictLookup{entries: obj}
	}

	// Last resort: probe every nested object for the ids, the moral
	// equivalent of the legacy docstore's search method.
	return newProbeLookup(raw)
}

// looksLikeDict reports whether every value of obj is an object carrying a
// recognized content field.
func looksLikeDict(obj map[string]json.RawMessage) bool {
	if len(obj) == 0 {
		return false
	}
	for _, val := range obj {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(val, &doc); err != nil {
			return false
		}
		found := false
		for _, ck := range contentKeys {
			if _, ok := doc[ck]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// dictLookup resolves ids through a flat id -> document map.
type dictLookup struct {
	entries map[string]json.RawMessage
}

func (d dictLookup) Get(id string) (models.DocumentRecord, bool) {
	raw, ok := d.entries[id]
	if !ok {
		return models.DocumentRecord{}, false
	}
	return parseDocument(id, raw), true
}

// probeLookup scans nested objects, in document order, for one that
// contains the requested id.
type probeLookup struct {
	nested []map[string]json.RawMessage
}

func newProbeLookup(raw json.RawMessage) DocLookup {
	pairs, ok := decodeOrdered(raw)
	if !ok {
		return emptyLookup{}
	}
	var p probeLookup
	for _, pair := range pairs {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(pair.Value, &nested); err == nil && len(nested) > 0 {
			p.nested = append(p.nested, nested)
		}
	}
	return p
}

func (p probeLookup) Get(id string) (models.DocumentRecord, bool) {
	for _, nested := range p.nested {
		if raw, ok := nested[id]; ok {
			return parseDocument(id, raw), true
		}
	}
	return models.DocumentRecord{}, false
}

// emptyLookup never resolves anything.
type emptyLookup struct{}

func (emptyLookup) Get(string) (models.DocumentRecord, bool) {
	return models.DocumentRecord{}, false
}

// parseDocument coerces a raw docstore value into a DocumentRecord.
// Objects are read through the content key aliases; plain strings become the
// content directly; anything else is stringified.
func parseDocument(id string, raw json.RawMessage) models.DocumentRecord {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			content := ""
			for _, ck := range contentKeys {
				if val, ok := obj[ck]; ok {
					content = coerceString(val)
					break
				}
			}
			var metadata map[string]any
			if md, ok := obj["metadata"]; ok {
				_ = json.Unmarshal(md, &metadata)
			}
			return models.NewDocumentRecord(id, content, metadata)
		}
	}
	return models.NewDocumentRecord(id, coerceString(trimmed), nil)
}

// coerceString renders a raw JSON value as document text: strings decode,
// everything else keeps its JSON rendering.
func coerceString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// coerceID renders a raw id-map value as a string id.
func coerceID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(bytes.TrimSpace(raw))
}
