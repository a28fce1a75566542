// Package provider exposes the unified retrieval surface: one Search entry
// point routed across local flat indexes and remote collections, plus
// discovery, status, ingest, and migration. Routine operational failures
// never escape this package as errors; callers get empty results and the
// failure is recorded in the last-error slot and the query counters.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/discovery"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/keyword"
	"github.com/hyperjump/tsunagu/internal/local"
	"github.com/hyperjump/tsunagu/internal/migrate"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/remote"
)

// RemoteBackend is the remote vector service as the provider consumes it.
// A nil backend means the remote side is disabled.
type RemoteBackend interface {
	ListCollections(ctx context.Context) []string
	HybridSearch(ctx context.Context, collection, query string, queryVector []float32, topK int) ([]models.QueryResult, error)
	UpsertBatch(ctx context.Context, collection string, docs []models.DocumentRecord) models.BatchStats
}

// Options wires a Provider's collaborators. Zero values get defaults.
type Options struct {
	Roots        []string
	DefaultTopK  int
	CacheSize    int
	DiscoveryTTL time.Duration
	Remote       RemoteBackend
	Embedder     embedding.Embedder
	Logger       *zap.Logger
}

// Provider is the unified retrieval entry point. Safe for concurrent use.
type Provider struct {
	roots       []string
	defaultTopK int
	disc        *discovery.Discovery
	reader      *local.Reader
	remote      RemoteBackend
	embedder    embedding.Embedder
	engine      *migrate.Engine
	metrics     queryMetrics
	logger      *zap.Logger

	mu       sync.Mutex
	lastErr  string
	keywords map[string]*keyword.MemIndex
}

// New creates a Provider from explicit collaborators.
func New(opts Options) *Provider {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 4
	}
	reader := local.NewReader(opts.CacheSize, opts.Logger)
	var lister discovery.RemoteLister
	if opts.Remote != nil {
		lister = opts.Remote
	}
	p := &Provider{
		roots:       opts.Roots,
		defaultTopK: opts.DefaultTopK,
		disc:        discovery.New(opts.Roots, lister, opts.DiscoveryTTL, opts.Logger),
		reader:      reader,
		remote:      opts.Remote,
		embedder:    opts.Embedder,
		logger:      opts.Logger,
		keywords:    map[string]*keyword.MemIndex{},
	}
	if opts.Remote != nil {
		p.engine = migrate.New(reader, opts.Remote, opts.Logger)
	}
	return p
}

// FromConfig builds a Provider from configuration. An embedding model that
// fails to load is a warning, not a startup failure: the provider comes up
// without an embedder and local searches fall back to keyword matching.
func FromConfig(cfg *config.Config, logger *zap.Logger) *Provider {
	var backend RemoteBackend
	if cfg.Remote.Enabled {
		client, err := remote.NewClient(remote.Config{
			Endpoint:  cfg.Remote.Endpoint,
			APIKey:    cfg.Remote.APIKey,
			Timeout:   time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
			BatchSize: cfg.Remote.BatchSize,
		}, logger)
		if err != nil {
			logger.Warn("remote backend disabled", zap.Error(err))
		} else {
			backend = client
		}
	}

	var embedder embedding.Embedder
	if cfg.Embedding.Model != "" {
		emb, err := embedding.New(cfg.Embedding.Model, cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens, cfg.Embedding.CacheSize)
		if err != nil {
			logger.Warn("embedding model not loaded", zap.Error(err))
		} else {
			embedder = emb
		}
	}

	return New(Options{
		Roots:        cfg.Retrieval.Roots,
		DefaultTopK:  cfg.Retrieval.DefaultTopK,
		CacheSize:    cfg.Retrieval.CacheCapacity,
		DiscoveryTTL: time.Duration(cfg.Retrieval.DiscoveryTTLSeconds) * time.Second,
		Remote:       backend,
		Embedder:     embedder,
		Logger:       logger,
	})
}

// Discovery exposes the underlying discovery for cache invalidation hooks.
func (p *Provider) Discovery() *discovery.Discovery { return p.disc }

// ListIndexes returns the names of all known indexes, local and remote.
func (p *Provider) ListIndexes(ctx context.Context, forceRefresh bool) []string {
	return p.disc.List(ctx, forceRefresh)
}

// Search runs a top-k query against the named index. It always returns a
// slice, never an error: an unknown index, a backend failure, or a missing
// embedder all degrade to an empty result with the cause recorded.
func (p *Provider) Search(ctx context.Context, query, indexName string, topK int) []models.QueryResult {
	start := time.Now()
	ok := false
	defer func() {
		p.metrics.record(time.Since(start), ok)
	}()

	if topK <= 0 {
		topK = p.defaultTopK
	}

	desc, found := p.disc.Descriptor(ctx, indexName)
	if !found {
		p.setLastError(fmt.Sprintf("unknown index %q", indexName))
		return []models.QueryResult{}
	}

	var (
		results []models.QueryResult
		err     error
	)
	switch desc.Kind {
	case models.IndexKindRemote:
		results, err = p.searchRemote(ctx, desc, query, topK)
	default:
		results, err = p.searchLocal(ctx, desc, query, topK)
	}
	if err != nil {
		p.setLastError(err.Error())
		p.logger.Warn("search failed",
			zap.String("index", indexName), zap.Error(err))
		return []models.QueryResult{}
	}

	ok = true
	if results == nil {
		results = []models.QueryResult{}
	}
	return results
}

func (p *Provider) searchRemote(ctx context.Context, desc models.IndexDescriptor, query string, topK int) ([]models.QueryResult, error) {
	if p.remote == nil {
		return nil, fmt.Errorf("remote backend disabled for collection %q", desc.Collection)
	}
	var vec []float32
	if p.embedder != nil {
		v, err := p.embedder.Embed(ctx, query)
		if err != nil {
			// Hybrid search still works keyword-side without a vector.
			p.logger.Warn("query embedding failed", zap.Error(err))
		} else {
			vec = v
		}
	}
	return p.remote.HybridSearch(ctx, desc.Collection, query, vec, topK)
}

func (p *Provider) searchLocal(ctx context.Context, desc models.IndexDescriptor, query string, topK int) ([]models.QueryResult, error) {
	if p.embedder != nil {
		vec, err := p.embedder.Embed(ctx, query)
		if err == nil {
			return p.reader.Search(ctx, desc.Path, vec, topK)
		}
		p.logger.Warn("query embedding failed, falling back to keyword search", zap.Error(err))
	}
	return p.searchKeyword(ctx, desc.Path, query, topK)
}

// searchKeyword serves local queries when no embedder is available. The
// in-memory index is built from the sidecar on first use and kept per path.
func (p *Provider) searchKeyword(ctx context.Context, dir, query string, topK int) ([]models.QueryResult, error) {
	p.mu.Lock()
	idx, cached := p.keywords[dir]
	p.mu.Unlock()

	if !cached {
		_, store, err := p.reader.Load(dir)
		if err != nil {
			return nil, err
		}
		idx, err = keyword.NewMemIndex(store)
		if err != nil {
			return nil, fmt.Errorf("build keyword index: %w", err)
		}
		p.mu.Lock()
		if existing, race := p.keywords[dir]; race {
			_ = idx.Close()
			idx = existing
		} else {
			p.keywords[dir] = idx
		}
		p.mu.Unlock()
	}
	return idx.Search(ctx, query, topK)
}

// Status reports the provider's health as a tri-state plus a diagnostic
// message. The message distinguishes "nothing configured" from "configured
// but empty" from "operational".
func (p *Provider) Status(ctx context.Context) (models.ProviderState, string) {
	if len(p.roots) == 0 && p.remote == nil {
		return models.StateError, "no vector databases configured"
	}
	names := p.disc.List(ctx, false)
	if len(names) == 0 {
		// Sources are configured but none produced an index: unreadable
		// roots or an unreachable remote service.
		return models.StateError, "configured sources have no usable indexes"
	}
	if p.embedder == nil {
		return models.StateWarning, fmt.Sprintf("embedding model not loaded; keyword search only (%d indexes)", len(names))
	}
	return models.StateReady, fmt.Sprintf("%d indexes available", len(names))
}

// Ingest upserts documents into a remote collection. Missing ids are
// assigned, and contents are embedded client-side when an embedder is
// loaded. Returns true when every document was accepted.
func (p *Provider) Ingest(ctx context.Context, docs []models.DocumentRecord, collection string) bool {
	if p.remote == nil {
		p.setLastError("ingest requires the remote backend")
		return false
	}
	if len(docs) == 0 {
		p.setLastError("ingest called with no documents")
		return false
	}

	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = uuid.NewString()
		}
	}
	if p.embedder != nil {
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Content
		}
		vecs, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			p.logger.Warn("ingest embedding failed, upserting without vectors", zap.Error(err))
		} else {
			for i := range docs {
				if len(docs[i].Embedding) == 0 {
					docs[i].Embedding = vecs[i]
				}
			}
		}
	}

	stats := p.remote.UpsertBatch(ctx, collection, docs)
	if len(stats.Warnings) > 0 {
		p.setLastError(stats.Warnings[len(stats.Warnings)-1])
	}
	return stats.Processed == len(docs)
}

// Migrate moves a local index's documents into a remote collection.
func (p *Provider) Migrate(ctx context.Context, indexName, targetCollection string) models.MigrationReport {
	if p.engine == nil {
		return models.MigrationReport{Success: false, Reason: "remote backend disabled"}
	}
	desc, found := p.disc.Descriptor(ctx, indexName)
	if !found {
		return models.MigrationReport{Success: false, Reason: fmt.Sprintf("unknown index %q", indexName)}
	}
	if desc.Kind != models.IndexKindLocal {
		return models.MigrationReport{Success: false, Reason: fmt.Sprintf("index %q is not local", indexName)}
	}
	report := p.engine.Run(ctx, desc.Path, targetCollection)
	if !report.Success {
		p.setLastError(report.Reason)
	}
	return report
}

// Metrics returns a snapshot of the query counters.
func (p *Provider) Metrics() models.MetricsSnapshot {
	return p.metrics.snapshot()
}

// LastError returns the most recently recorded failure, or "" when none.
func (p *Provider) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// ClearCache drops the local reader cache, the keyword fallback indexes,
// and the discovery scan.
func (p *Provider) ClearCache() {
	p.reader.ClearCache()
	p.disc.Invalidate()
	p.mu.Lock()
	for dir, idx := range p.keywords {
		_ = idx.Close()
		delete(p.keywords, dir)
	}
	p.mu.Unlock()
}

// Close releases the embedder and any keyword indexes.
func (p *Provider) Close() error {
	p.ClearCache()
	if p.embedder != nil {
		return p.embedder.Close()
	}
	return nil
}

func (p *Provider) setLastError(msg string) {
	p.mu.Lock()
	p.lastErr = msg
	p.mu.Unlock()
}
