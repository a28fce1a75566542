package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/local"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/vector"
)

// fakeUpserter batches like the real client: a fixed batch size, with
// chosen batch numbers failing.
type fakeUpserter struct {
	batchSize   int
	failBatches map[int]bool
	collection  string
	docs        []models.DocumentRecord
}

func (f *fakeUpserter) UpsertBatch(_ context.Context, collection string, docs []models.DocumentRecord) models.BatchStats {
	f.collection = collection
	f.docs = docs
	stats := models.BatchStats{}
	for start := 0; start < len(docs); start += f.batchSize {
		end := start + f.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		stats.Batches++
		if f.failBatches[stats.Batches] {
			stats.Warnings = append(stats.Warnings, fmt.Sprintf("batch %d failed", stats.Batches))
			continue
		}
		stats.Processed += end - start
	}
	return stats
}

func writeIndexDir(t *testing.T, dir string, contents []string, vecs [][]float32) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	dims := 1
	if len(vecs) > 0 {
		dims = len(vecs[0])
	}
	if err := vector.WriteFlat(filepath.Join(dir, "index.bin"), dims, vecs); err != nil {
		t.Fatal(err)
	}
	docs := "["
	ids := "["
	metas := "["
	for i, c := range contents {
		if i > 0 {
			docs += ","
			ids += ","
			metas += ","
		}
		docs += fmt.Sprintf("%q", c)
		ids += fmt.Sprintf("%q", fmt.Sprint(i))
		metas += "{}"
	}
	sidecar := fmt.Sprintf(`{"documents":%s],"metadatas":%s],"ids":%s]}`, docs, metas, ids)
	if err := os.WriteFile(filepath.Join(dir, "docstore.json"), []byte(sidecar), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunMigratesAllDocuments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "manuals")
	writeIndexDir(t, dir,
		[]string{"alpha", "beta", "gamma"},
		[][]float32{{1, 0}, {0, 1}, {1, 1}})

	remote := &fakeUpserter{batchSize: 100}
	engine := New(local.NewReader(4, zap.NewNop()), remote, zap.NewNop())

	report := engine.Run(context.Background(), dir, "target")
	if !report.Success {
		t.Fatalf("Success = false, reason %q", report.Reason)
	}
	if report.TotalDocuments != 3 || report.MigratedDocuments != 3 {
		t.Errorf("counts = %d/%d, want 3/3", report.MigratedDocuments, report.TotalDocuments)
	}
	if report.MigrationRate != 1.0 {
		t.Errorf("MigrationRate = %v, want 1.0", report.MigrationRate)
	}
	if remote.collection != "target" {
		t.Errorf("collection = %q", remote.collection)
	}

	// Embeddings come straight off the index rows.
	if len(remote.docs) != 3 {
		t.Fatalf("remote got %d docs", len(remote.docs))
	}
	if got := remote.docs[1].Embedding; len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("doc 1 embedding = %v, want [0 1]", got)
	}
	if remote.docs[0].Content != "alpha" {
		t.Errorf("doc 0 content = %q", remote.docs[0].Content)
	}
}

func TestRunBatchIsolation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "manuals")
	contents := make([]string, 6)
	vecs := make([][]float32, 6)
	for i := range contents {
		contents[i] = fmt.Sprintf("doc-%d", i)
		vecs[i] = []float32{float32(i), 1}
	}
	writeIndexDir(t, dir, contents, vecs)

	// Three batches of two; the middle one fails.
	remote := &fakeUpserter{batchSize: 2, failBatches: map[int]bool{2: true}}
	engine := New(local.NewReader(4, zap.NewNop()), remote, zap.NewNop())

	report := engine.Run(context.Background(), dir, "target")
	if !report.Success {
		t.Fatal("partial migration should still report success")
	}
	if report.MigratedDocuments != 4 {
		t.Errorf("MigratedDocuments = %d, want 4 (batches 1 and 3)", report.MigratedDocuments)
	}
	if report.TotalDocuments != 6 {
		t.Errorf("TotalDocuments = %d, want 6", report.TotalDocuments)
	}
	if want := 4.0 / 6.0; report.MigrationRate != want {
		t.Errorf("MigrationRate = %v, want %v", report.MigrationRate, want)
	}
	if len(report.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one entry", report.Warnings)
	}
}

func TestRunZeroDocuments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "empty")
	writeIndexDir(t, dir, nil, nil)

	remote := &fakeUpserter{batchSize: 100}
	engine := New(local.NewReader(4, zap.NewNop()), remote, zap.NewNop())

	report := engine.Run(context.Background(), dir, "target")
	if report.Success {
		t.Fatal("zero-document migration must not report success")
	}
	if report.Reason != "no documents found" {
		t.Errorf("Reason = %q", report.Reason)
	}
}

func TestRunMissingIndex(t *testing.T) {
	remote := &fakeUpserter{batchSize: 100}
	engine := New(local.NewReader(4, zap.NewNop()), remote, zap.NewNop())

	report := engine.Run(context.Background(), filepath.Join(t.TempDir(), "nope"), "target")
	if report.Success {
		t.Fatal("missing index must not report success")
	}
	if report.Reason == "" {
		t.Error("Reason should name the load failure")
	}
}

func TestRunAllBatchesFail(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "manuals")
	writeIndexDir(t, dir, []string{"a", "b"}, [][]float32{{1}, {2}})

	remote := &fakeUpserter{batchSize: 2, failBatches: map[int]bool{1: true}}
	engine := New(local.NewReader(4, zap.NewNop()), remote, zap.NewNop())

	report := engine.Run(context.Background(), dir, "target")
	if report.Success {
		t.Fatal("migration with zero migrated documents must not report success")
	}
	if report.Reason != "no documents migrated" {
		t.Errorf("Reason = %q", report.Reason)
	}
}
