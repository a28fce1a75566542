package keyword

import (
	"context"
	"testing"

	"github.com/hyperjump/tsunagu/internal/models"
)

func buildStore() *models.DocumentStore {
	s := models.NewDocumentStore()
	s.Append("a", "the quick brown fox", map[string]any{"source": "animals.txt"})
	s.Append("b", "gradient descent converges slowly", nil)
	s.Append("c", "the lazy dog sleeps", nil)
	return s
}

func TestMemIndex_Search(t *testing.T) {
	idx, err := NewMemIndex(buildStore())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	results, err := idx.Search(context.Background(), "gradient descent", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one hit")
	}
	if results[0].ID != "b" {
		t.Errorf("top hit = %+v", results[0])
	}
	if results[0].Score <= 0 || results[0].Score > 1 {
		t.Errorf("score out of (0,1]: %f", results[0].Score)
	}
}

func TestMemIndex_SourceFromMetadata(t *testing.T) {
	idx, err := NewMemIndex(buildStore())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	results, err := idx.Search(context.Background(), "quick fox", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].Source != "animals.txt" {
		t.Errorf("results = %+v", results)
	}
}

func TestMemIndex_NoMatches(t *testing.T) {
	idx, err := NewMemIndex(buildStore())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	results, err := idx.Search(context.Background(), "zyzzyva", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no hits, got %+v", results)
	}
}

func TestMemIndex_EmptyStore(t *testing.T) {
	idx, err := NewMemIndex(models.NewDocumentStore())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	results, err := idx.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v", results)
	}
}
