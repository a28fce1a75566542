package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(8)
	ctx := context.Background()

	a, err := e.Embed(ctx, "hello world")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "hello world")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text must embed identically")
		}
	}

	c, _ := e.Embed(ctx, "something else")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should embed differently")
	}
}

func TestMockEmbedder_Normalized(t *testing.T) {
	e := NewMockEmbedder(16)
	vec, err := e.Embed(context.Background(), "normalize me")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 16 {
		t.Fatalf("len = %d", len(vec))
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("norm = %f, want 1.0", norm)
	}
}

func TestMockEmbedder_Batch(t *testing.T) {
	e := NewMockEmbedder(4)
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d", len(out))
	}
}

func TestNew_MockSelection(t *testing.T) {
	for _, model := range []string{"", ModelMock} {
		e, err := New(model, 4, 16, 8)
		if err != nil {
			t.Fatalf("New(%q): %v", model, err)
		}
		if e.Dimensions() != 4 {
			t.Errorf("Dimensions = %d", e.Dimensions())
		}
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	// a was just used, so adding c evicts b.
	c.Set("c", []float32{3})
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestSimpleTokenizer(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, mask, types := tok.Tokenize("one two three", 8)
	if len(ids) != 8 || len(mask) != 8 || len(types) != 8 {
		t.Fatal("all outputs must be maxTokens long")
	}
	if ids[0] != 101 {
		t.Errorf("ids[0] = %d, want CLS", ids[0])
	}
	if ids[4] != 102 {
		t.Errorf("ids[4] = %d, want SEP after 3 words", ids[4])
	}
	if mask[5] != 0 {
		t.Error("padding positions must be masked out")
	}
}
