// Package migrate moves documents from a local index into a remote
// collection. Migration is at-least-effort: a failed batch is recorded and
// skipped, never rolled back.
package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/local"
	"github.com/hyperjump/tsunagu/internal/models"
)

// Upserter is the remote side of a migration. Implementations batch the
// documents themselves and isolate per-batch failures.
type Upserter interface {
	UpsertBatch(ctx context.Context, collection string, docs []models.DocumentRecord) models.BatchStats
}

// Engine runs migrations of local indexes into remote collections.
type Engine struct {
	reader *local.Reader
	remote Upserter
	logger *zap.Logger
}

// New creates a migration engine.
func New(reader *local.Reader, remote Upserter, logger *zap.Logger) *Engine {
	return &Engine{reader: reader, remote: remote, logger: logger}
}

// Run migrates every document in the index directory at dir into the target
// collection. Row embeddings are read back from the flat index so the remote
// service stores the exact vectors the local index held instead of
// recomputing them.
func (e *Engine) Run(ctx context.Context, dir, target string) models.MigrationReport {
	index, store, err := e.reader.Load(dir)
	if err != nil {
		return models.MigrationReport{
			Success: false,
			Reason:  fmt.Sprintf("load index: %v", err),
		}
	}

	total := store.Len()
	if total == 0 {
		return models.MigrationReport{
			Success: false,
			Reason:  "no documents found",
		}
	}

	docs := make([]models.DocumentRecord, 0, total)
	for i := 0; i < total; i++ {
		rec := store.Record(i)
		if i < index.Rows() {
			rec.Embedding = index.Vector(i)
		}
		docs = append(docs, rec)
	}

	e.logger.Info("migration starting",
		zap.String("dir", dir),
		zap.String("target", target),
		zap.Int("documents", total))

	stats := e.remote.UpsertBatch(ctx, target, docs)

	report := models.MigrationReport{
		Success:           stats.Processed > 0,
		TotalDocuments:    total,
		MigratedDocuments: stats.Processed,
		Warnings:          stats.Warnings,
	}
	if total > 0 {
		report.MigrationRate = float64(stats.Processed) / float64(total)
	}
	if stats.Processed == 0 {
		report.Reason = "no documents migrated"
	}

	e.logger.Info("migration finished",
		zap.String("target", target),
		zap.Int("migrated", stats.Processed),
		zap.Int("total", total),
		zap.Int("warnings", len(stats.Warnings)))
	return report
}
