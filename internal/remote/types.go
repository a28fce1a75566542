package remote

// schemaResponse is the schema introspection payload.
type schemaResponse struct {
	Collections []collectionSchema `json:"collections"`
}

// collectionSchema describes one collection and its declared properties.
type collectionSchema struct {
	Name       string   `json:"name"`
	Properties []string `json:"properties,omitempty"`
}

// searchRequest is the query body. Mode "hybrid" combines keyword and
// vector relevance; "vector" is pure similarity.
type searchRequest struct {
	Query  string    `json:"query,omitempty"`
	Vector []float32 `json:"vector,omitempty"`
	Limit  int       `json:"limit"`
	Mode   string    `json:"mode"`
}

// searchResponse carries ranked hits. Distance is the service's native
// distance (lower = better); conversion to a similarity happens client-side.
type searchResponse struct {
	Results []searchHit `json:"results"`
}

type searchHit struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Distance float64        `json:"distance"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// upsertRequest is the batch object-upsert body.
type upsertRequest struct {
	Objects []upsertObject `json:"objects"`
}

type upsertObject struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Vector   []float32      `json:"vector,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// upsertResponse reports per-batch acceptance.
type upsertResponse struct {
	Accepted int      `json:"accepted"`
	Errors   []string `json:"errors,omitempty"`
}
