package sidecar

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// preferredNames are the recognized sidecar basenames, in preference order.
var preferredNames = []string{"docstore.json", "documents.json", "metadata.json"}

// Ext is the expected sidecar file extension.
const Ext = ".json"

// Locate returns the sidecar file path inside an index directory. One of
// the preferred basenames wins; otherwise the first file with the expected
// extension (lexicographic) is used. A directory with no candidate at all
// is not a valid index.
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
		return "", fmt.Errorf("no sidecar file in %s", dir)
	}
	sort.Strings(candidates)
	return filepath.Join(dir, candidates[0]), nil
}
