// Package vector provides a read-only flat binary similarity index and
// distance/score helpers.
package vector

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// NoMatch is the row sentinel reported when a search slot has no result
// (fewer rows in the index than requested). Callers skip these rows.
const NoMatch = -1

// FlatIndex is an immutable flat vector index loaded from disk. Rows are
// positionally aligned with the sidecar DocumentStore of the same directory.
// File layout, little-endian: dimensions uint32, count uint32, then
// count*dimensions float32 values.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
}

// Open reads a flat index file. The whole file is deserialized eagerly;
// callers cache the result (see internal/local).
func Open(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if dim == 0 || dim > 1<<16 {
		return nil, fmt.Errorf("implausible dimension %d in %s", dim, filepath.Base(path))
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}

	idx := &FlatIndex{dimensions: int(dim)}
	idx.vectors = make([][]float32, 0, n)
	for i := uint32(0); i < n; i++ {
		vec := make([]float32, dim)
		if err := binary.Read(f, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		idx.vectors = append(idx.vectors, vec)
	}
	return idx, nil
}

// Dimensions returns the configured vector dimension.
func (x *FlatIndex) Dimensions() int { return x.dimensions }

// Rows returns the number of vectors.
func (x *FlatIndex) Rows() int { return len(x.vectors) }

// Vector returns row i, or nil when out of range. The returned slice is the
// index's own storage and must not be modified.
func (x *FlatIndex) Vector(i int) []float32 {
	if i < 0 || i >= len(x.vectors) {
		return nil
	}
	return x.vectors[i]
}

// Search returns the k nearest rows to query by squared L2 distance,
// ascending. The query must already match the index dimension. When k
// exceeds the row count, the tail is padded with the NoMatch sentinel.
func (x *FlatIndex) Search(query []float32, k int) (rows []int, distances []float64, err error) {
	if len(query) != x.dimensions {
		return nil, nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), x.dimensions)
	}
	if k <= 0 {
		return nil, nil, nil
	}

	type scored struct {
		row  int
		dist float64
	}
	scores := make([]scored, len(x.vectors))
	for i, vec := range x.vectors {
		scores[i] = scored{row: i, dist: L2Distance(query, vec)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].dist < scores[j].dist })

	rows = make([]int, k)
	distances = make([]float64, k)
	for i := 0; i < k; i++ {
		if i < len(scores) {
			rows[i] = scores[i].row
			distances[i] = scores[i].dist
		} else {
			rows[i] = NoMatch
			distances[i] = 0
		}
	}
	return rows, distances, nil
}

// ReadHeader returns the dimension and row count of a flat index file
// without loading its vectors.
func ReadHeader(path string) (dimensions, rows int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return 0, 0, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return 0, 0, fmt.Errorf("read count: %w", err)
	}
	return int(dim), int(n), nil
}

// WriteFlat writes vectors to path in the flat index layout. Used by
// fixture tooling and tests; the provider itself never writes indexes.
func WriteFlat(path string, dimensions int, vectors [][]float32) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, vec := range vectors {
		if len(vec) != dimensions {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vec), dimensions)
		}
		if err := binary.Write(f, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return nil
}
