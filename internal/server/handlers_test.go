package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/provider"
	"github.com/hyperjump/tsunagu/internal/vector"
)

func newTestServer(t *testing.T, root string) *Server {
	t.Helper()
	emb := embedding.NewMockEmbedder(8)
	p := provider.New(provider.Options{
		Roots:       []string{root},
		DefaultTopK: 3,
		Embedder:    emb,
		Logger:      zap.NewNop(),
	})
	t.Cleanup(func() { _ = p.Close() })
	return NewServer(p, &config.ServerConfig{Host: "localhost", Port: 0}, zap.NewNop())
}

func writeIndexDir(t *testing.T, root, name string, contents []string) {
	t.Helper()
	emb := embedding.NewMockEmbedder(8)
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	vecs := make([][]float32, len(contents))
	docs := make([]string, len(contents))
	ids := make([]string, len(contents))
	metas := make([]string, len(contents))
	for i, c := range contents {
		v, err := emb.Embed(context.Background(), c)
		if err != nil {
			t.Fatal(err)
		}
		vecs[i] = v
		docs[i] = fmt.Sprintf("%q", c)
		ids[i] = fmt.Sprintf("%q", fmt.Sprint(i))
		metas[i] = "{}"
	}
	if err := vector.WriteFlat(filepath.Join(dir, "index.bin"), 8, vecs); err != nil {
		t.Fatal(err)
	}
	sidecar := fmt.Sprintf(`{"documents":[%s],"metadatas":[%s],"ids":[%s]}`,
		strings.Join(docs, ","), strings.Join(metas, ","), strings.Join(ids, ","))
	if err := os.WriteFile(filepath.Join(dir, "docstore.json"), []byte(sidecar), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestHandleSearch(t *testing.T) {
	root := t.TempDir()
	writeIndexDir(t, root, "manuals", []string{"install the pump", "replace the filter"})
	srv := newTestServer(t, root)
	router := srv.Router()

	body, _ := json.Marshal(map[string]any{"query": "install the pump", "index": "manuals", "top_k": 1})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Results []struct {
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || len(resp.Results) != 1 {
		t.Fatalf("count = %d, results %v", resp.Count, resp.Results)
	}
	if resp.Results[0].Content != "install the pump" {
		t.Errorf("content = %q", resp.Results[0].Content)
	}
	if resp.Results[0].Score <= 0 || resp.Results[0].Score > 1 {
		t.Errorf("score = %v, want (0,1]", resp.Results[0].Score)
	}
}

func TestHandleSearchValidation(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query: status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("not json"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d, want 400", rec.Code)
	}
}

func TestHandleSearchUnknownIndexReturnsEmpty(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	router := srv.Router()

	body := `{"query":"q","index":"missing"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with empty results", rec.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0", resp.Count)
	}
}

func TestHandleListIndexes(t *testing.T) {
	root := t.TempDir()
	writeIndexDir(t, root, "manuals", []string{"doc"})
	srv := newTestServer(t, root)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/indexes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Indexes []string `json:"indexes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Indexes) != 1 || resp.Indexes[0] != "manuals" {
		t.Errorf("indexes = %v", resp.Indexes)
	}
}

func TestHandleStatus(t *testing.T) {
	root := t.TempDir()
	writeIndexDir(t, root, "manuals", []string{"doc"})
	srv := newTestServer(t, root)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		State   string `json:"state"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.State != "ready" {
		t.Errorf("state = %q, message %q", resp.State, resp.Message)
	}
}

func TestHandleStats(t *testing.T) {
	root := t.TempDir()
	writeIndexDir(t, root, "manuals", []string{"doc"})
	srv := newTestServer(t, root)
	router := srv.Router()

	body := `{"query":"doc","index":"manuals"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var snap struct {
		Queries           int64 `json:"queries"`
		SuccessfulQueries int64 `json:"successful_queries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Queries != 1 || snap.SuccessfulQueries != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestHandleMigrateWithoutRemote(t *testing.T) {
	root := t.TempDir()
	writeIndexDir(t, root, "manuals", []string{"doc"})
	srv := newTestServer(t, root)
	router := srv.Router()

	body := `{"index":"manuals","collection":"archive"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/migrate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 when remote is disabled", rec.Code)
	}
	var report struct {
		Success bool   `json:"success"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Success || report.Reason == "" {
		t.Errorf("report = %+v", report)
	}
}

func TestHandleIngestValidation(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader(`{"documents":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing collection", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleClearCache(t *testing.T) {
	root := t.TempDir()
	writeIndexDir(t, root, "manuals", []string{"doc"})
	srv := newTestServer(t, root)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cache/clear", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
