package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// preferredNames are the recognized index basenames, in preference order.
var preferredNames = []string{"index.bin", "vectors.bin"}

// Ext is the expected index file extension.
const Ext = ".bin"

// Locate returns the flat index file path inside an index directory,
// preferring the recognized basenames and falling back to the first file
// with the expected extension.
func Locate(dir string) (string, error) {
	for _, name := range preferredNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read index dir: %w", err)
	}
	var candidates []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), Ext) {
			candidates = append(candidates, entry.Name())
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no index file in %s", dir)
	}
	sort.Strings(candidates)
	return filepath.Join(dir, candidates[0]), nil
}
