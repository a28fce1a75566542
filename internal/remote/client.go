// Package remote talks to the document-collection service over HTTP:
// schema discovery, hybrid/vector search, and batched object upserts.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/vector"
)

const (
	// DefaultTimeout bounds every round-trip so a slow service cannot hang
	// the caller.
	DefaultTimeout = 30 * time.Second
	// DefaultBatchSize is the upsert batch size.
	DefaultBatchSize = 100

	modeHybrid = "hybrid"
	modeVector = "vector"
)

// Config holds the process-wide client configuration. Connections are
// per-request; only this configuration is long-lived.
type Config struct {
	Endpoint  string
	APIKey    string
	Timeout   time.Duration
	BatchSize int
}

// Client is the HTTP client for the remote backend.
type Client struct {
	baseURL   string
	apiKey    string
	batchSize int
	http      *http.Client
	logger    *zap.Logger
}

// NewClient creates a client for the given endpoint.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > DefaultTimeout {
		timeout = DefaultTimeout
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Client{
		baseURL:   cfg.Endpoint,
		apiKey:    cfg.APIKey,
		batchSize: batchSize,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}, nil
}

// BatchSize returns the configured upsert batch size.
func (c *Client) BatchSize() int { return c.batchSize }

// ListCollections returns the collection names from schema introspection.
// Unreachable or misbehaving services yield an empty list, never an error,
// so local indexes stay usable.
func (c *Client) ListCollections(ctx context.Context) []string {
	var schema schemaResponse
	if err := c.do(ctx, http.MethodGet, "/v1/schema", nil, &schema); err != nil {
		c.logger.Warn("schema discovery failed", zap.Error(err))
		return nil
	}
	names := make([]string, 0, len(schema.Collections))
	for _, col := range schema.Collections {
		names = append(names, col.Name)
	}
	return names
}

// HybridSearch queries a collection with combined keyword+vector relevance.
// Services that reject the hybrid mode (older schemas) are retried with a
// pure vector query; callers never see the distinction.
func (c *Client) HybridSearch(ctx context.Context, collection, query string, queryVector []float32, topK int) ([]models.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}
	path := fmt.Sprintf("/v1/collections/%s/search", collection)

	req := searchRequest{Query: query, Vector: queryVector, Limit: topK, Mode: modeHybrid}
	var resp searchResponse
	err := c.do(ctx, http.MethodPost, path, req, &resp)
	if err != nil {
		c.logger.Debug("hybrid mode rejected, falling back to vector search",
			zap.String("collection", collection), zap.Error(err))
		req.Mode = modeVector
		req.Query = ""
		resp = searchResponse{}
		if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
			return nil, fmt.Errorf("search collection %s: %w", collection, err)
		}
	}

	results := make([]models.QueryResult, 0, len(resp.Results))
	for _, hit := range resp.Results {
		source := collection
		if hit.Metadata != nil {
			if s, ok := hit.Metadata["source"].(string); ok && s != "" {
				source = s
			}
		}
		results = append(results, models.QueryResult{
			Content:  hit.Content,
			Source:   source,
			Score:    vector.DistanceToScore(hit.Distance),
			ID:       hit.ID,
			Page:     pageOf(hit.Metadata),
			Metadata: hit.Metadata,
		})
	}
	return results, nil
}

// EnsureCollection creates the collection if it does not exist. A conflict
// response means it already exists and is treated as success.
func (c *Client) EnsureCollection(ctx context.Context, name string) error {
	path := fmt.Sprintf("/v1/collections/%s", name)
	err := c.do(ctx, http.MethodPut, path, nil, nil)
	if err == nil {
		return nil
	}
	var httpErr *statusError
	if asStatusError(err, &httpErr) && httpErr.code == http.StatusConflict {
		return nil
	}
	return fmt.Errorf("create collection %s: %w", name, err)
}

// UpsertBatch writes documents to a collection in fixed-size batches. The
// target collection is created first if needed. A failing batch is recorded
// as a warning and does not abort the remaining batches.
func (c *Client) UpsertBatch(ctx context.Context, collection string, docs []models.DocumentRecord) models.BatchStats {
	stats := models.BatchStats{}
	if len(docs) == 0 {
		return stats
	}
	if err := c.EnsureCollection(ctx, collection); err != nil {
		stats.Warnings = append(stats.Warnings, err.Error())
		return stats
	}

	path := fmt.Sprintf("/v1/collections/%s/objects", collection)
	for start := 0; start < len(docs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]
		stats.Batches++

		req := upsertRequest{Objects: make([]upsertObject, len(batch))}
		for i, doc := range batch {
			req.Objects[i] = upsertObject{
				ID:       doc.ID,
				Content:  doc.Content,
				Vector:   doc.Embedding,
				Metadata: doc.Metadata,
			}
		}

		var resp upsertResponse
		if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
			c.logger.Warn("upsert batch failed, continuing",
				zap.String("collection", collection),
				zap.Int("batch_start", start),
				zap.Error(err))
			stats.Warnings = append(stats.Warnings, fmt.Sprintf("batch %d: %v", stats.Batches, err))
			continue
		}
		accepted := resp.Accepted
		if accepted == 0 && len(resp.Errors) == 0 {
			// Older servers omit the acceptance count on success.
			accepted = len(batch)
		}
		stats.Processed += accepted
		for _, e := range resp.Errors {
			stats.Warnings = append(stats.Warnings, fmt.Sprintf("batch %d: %s", stats.Batches, e))
		}
	}

	c.logger.Info("batch upsert finished",
		zap.String("collection", collection),
		zap.Int("processed", stats.Processed),
		zap.Int("batches", stats.Batches),
		zap.Int("warnings", len(stats.Warnings)))
	return stats
}

// do runs one JSON round-trip. Non-2xx responses become statusError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, detail: string(detail)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func pageOf(metadata map[string]any) any {
	if metadata == nil {
		return nil
	}
	for _, key := range []string{"page", "page_number", "page_label"} {
		if v, ok := metadata[key]; ok {
			return v
		}
	}
	return nil
}
