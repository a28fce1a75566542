// Package discovery enumerates the indexes available to the provider:
// local index directories under the configured roots, merged with the
// remote service's collections.
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/sidecar"
	"github.com/hyperjump/tsunagu/internal/vector"
)

// DefaultTTL is how long a discovery pass stays cached.
const DefaultTTL = 5 * time.Minute

// RemoteLister lists remote collection names. A nil value disables the
// remote side of discovery.
type RemoteLister interface {
	ListCollections(ctx context.Context) []string
}

// Discovery scans roots and the remote service, caching the merged result.
type Discovery struct {
	roots  []string
	remote RemoteLister
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	names  []string
	descs  map[string]models.IndexDescriptor
	scanAt time.Time
}

// New creates a Discovery over the given roots. remote may be nil.
func New(roots []string, remote RemoteLister, ttl time.Duration, logger *zap.Logger) *Discovery {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Discovery{
		roots:  roots,
		remote: remote,
		ttl:    ttl,
		logger: logger,
		descs:  map[string]models.IndexDescriptor{},
	}
}

// List returns the ordered set of known index names. Results are cached
// for the TTL; forceRefresh bypasses the cache unconditionally.
func (d *Discovery) List(ctx context.Context, forceRefresh bool) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !forceRefresh && !d.scanAt.IsZero() && time.Since(d.scanAt) < d.ttl {
		return append([]string(nil), d.names...)
	}
	d.refreshLocked(ctx)
	return append([]string(nil), d.names...)
}

// Descriptor resolves an index name to its descriptor, refreshing the
// cache only when it is stale. An unknown name within a fresh scan stays
// unknown until the TTL expires or the cache is invalidated, so repeated
// lookups of a bad name cannot force rescans.
func (d *Discovery) Descriptor(ctx context.Context, name string) (models.IndexDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scanAt.IsZero() || time.Since(d.scanAt) >= d.ttl {
		d.refreshLocked(ctx)
	}
	desc, ok := d.descs[name]
	return desc, ok
}

// Invalidate drops the cached scan so the next call rescans.
func (d *Discovery) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scanAt = time.Time{}
}

// refreshLocked rescans everything. Remote collections claim their names
// first; a local directory with the same name is shadowed, so an index
// migrated into a collection of the same name keeps resolving remotely.
// Failures in one root never abort the others.
func (d *Discovery) refreshLocked(ctx context.Context) {
	names := make([]string, 0)
	descs := make(map[string]models.IndexDescriptor)

	if d.remote != nil {
		for _, col := range d.remote.ListCollections(ctx) {
			if _, exists := descs[col]; exists {
				continue
			}
			descs[col] = models.IndexDescriptor{
				Name:       col,
				Kind:       models.IndexKindRemote,
				Collection: col,
			}
			names = append(names, col)
		}
	}

	for _, root := range d.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			d.logger.Warn("skipping unreadable index root",
				zap.String("root", root), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(root, entry.Name())
			desc, ok := d.validateLocal(entry.Name(), dir)
			if !ok {
				continue
			}
			if _, exists := descs[desc.Name]; exists {
				continue
			}
			descs[desc.Name] = desc
			names = append(names, desc.Name)
		}
	}

	d.names = names
	d.descs = descs
	d.scanAt = time.Now()
	d.logger.Debug("discovery refreshed", zap.Int("indexes", len(names)))
}

// validateLocal checks that dir holds both a binary index and a sidecar.
// Directories missing either are excluded.
func (d *Discovery) validateLocal(name, dir string) (models.IndexDescriptor, bool) {
	indexPath, err := vector.Locate(dir)
	if err != nil {
		return models.IndexDescriptor{}, false
	}
	if _, err := sidecar.Locate(dir); err != nil {
		return models.IndexDescriptor{}, false
	}

	dims := 0
	if dim, _, err := vector.ReadHeader(indexPath); err == nil {
		dims = dim
	} else {
		d.logger.Warn("index header unreadable",
			zap.String("path", indexPath), zap.Error(err))
	}
	return models.IndexDescriptor{
		Name:       name,
		Kind:       models.IndexKindLocal,
		Path:       dir,
		Dimensions: dims,
	}, true
}
