// Package sidecar normalizes legacy sidecar metadata files into the
// canonical DocumentStore. The same logical set of indexed documents has
// been serialized in four incompatible shapes over time; classification
// maps a raw payload onto a tagged union and one normalizer per variant
// does the rest.
package sidecar

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// Shape tags the recognized legacy sidecar layouts.
type Shape int

const (
	// ShapeCanonical is an object with a documents (or texts) key.
	ShapeCanonical Shape = iota
	// ShapeBareList is a plain ordered sequence with no metadata.
	ShapeBareList
	// ShapeDocstoreTuple is the legacy 2-tuple of (docstore, index->id map).
	ShapeDocstoreTuple
	// ShapeOpaque is anything else; degrades to a single stringified document.
	ShapeOpaque
)

// Raw is the classified sidecar payload. Exactly one variant field is
// populated, selected by Shape.
type Raw struct {
	Shape     Shape
	Canonical map[string]json.RawMessage
	List      []json.RawMessage
	Tuple     *Tuple
	Opaque    []byte
}

// Tuple is the legacy docstore/id-map pair.
type Tuple struct {
	Docstore json.RawMessage
	IDMap    []Pair
}

// Pair is one id-map entry in original decode order.
type Pair struct {
	Key   string
	Value json.RawMessage
}

// Classify inspects a raw sidecar payload and returns its tagged variant.
// Classification is pure: it never fails, falling through to ShapeOpaque.
func Classify(data []byte) Raw {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Raw{Shape: ShapeOpaque, Opaque: trimmed}
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return Raw{Shape: ShapeOpaque, Opaque: trimmed}
		}
		if _, ok := obj["documents"]; ok {
			return Raw{Shape: ShapeCanonical, Canonical: obj}
		}
		if _, ok := obj["texts"]; ok {
			return Raw{Shape: ShapeCanonical, Canonical: obj}
		}
		return Raw{Shape: ShapeOpaque, Opaque: trimmed}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Raw{Shape: ShapeOpaque, Opaque: trimmed}
		}
		if tup := asTuple(items); tup != nil {
			return Raw{Shape: ShapeDocstoreTuple, Tuple: tup}
		}
		return Raw{Shape: ShapeBareList, List: items}
	default:
		return Raw{Shape: ShapeOpaque, Opaque: trimmed}
	}
}

// asTuple reports whether items is the legacy 2-tuple: exactly two elements
// with an object first element and a non-empty map second element.
func asTuple(items []json.RawMessage) *Tuple {
	if len(items) != 2 {
		return nil
	}
	first := bytes.TrimSpace(items[0])
	if len(first) == 0 || first[0] != '{' {
		return nil
	}
	pairs, ok := decodeOrdered(items[1])
	if !ok || len(pairs) == 0 {
		return nil
	}
	return &Tuple{Docstore: items[0], IDMap: pairs}
}

// decodeOrdered decodes a JSON object into key/value pairs preserving the
// document order of the keys, which encoding/json maps discard.
func decodeOrdered(data []byte) ([]Pair, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false
	}
	var pairs []Pair
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, false
		}
		pairs = append(pairs, Pair{Key: key, Value: val})
	}
	return pairs, true
}

// sortByIndex orders id-map pairs by ascending integer key. String-digit
// keys are coerced for ordering; all other keys sort after the numeric ones
// in their original order.
func sortByIndex(pairs []Pair) []Pair {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		ni, errI := strconv.Atoi(sorted[i].Key)
		nj, errJ := strconv.Atoi(sorted[j].Key)
		if errI == nil && errJ == nil {
			return ni < nj
		}
		// Numeric keys before non-numeric; non-numeric keep original order.
		return errI == nil && errJ != nil
	})
	return sorted
}
