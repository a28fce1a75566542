package models

// QueryResult is a single search hit in the unified result shape shared by
// both backends. Score is a similarity in (0,1], higher is better, even when
// the underlying index reports a distance.
type QueryResult struct {
	Content  string         `json:"content"`
	Source   string         `json:"source"`
	Score    float64        `json:"score"`
	ID       string         `json:"id"`
	Page     any            `json:"page,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BatchStats reports the outcome of a batched upsert. A failed batch is
// recorded as a warning and does not abort the remaining batches.
type BatchStats struct {
	Processed int      `json:"processed"`
	Batches   int      `json:"batches"`
	Warnings  []string `json:"warnings,omitempty"`
}

// MigrationReport is the outcome of migrating a local index into a remote
// collection. MigrationRate is MigratedDocuments/TotalDocuments (0 when the
// source is empty).
type MigrationReport struct {
	Success           bool     `json:"success"`
	TotalDocuments    int      `json:"total_documents"`
	MigratedDocuments int      `json:"migrated_documents"`
	MigrationRate     float64  `json:"migration_rate"`
	Reason            string   `json:"reason,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// ProviderState is the tri-state health of the provider.
type ProviderState string

const (
	StateReady   ProviderState = "ready"
	StateWarning ProviderState = "warning"
	StateError   ProviderState = "error"
)

// MetricsSnapshot is a point-in-time copy of the provider's query counters.
type MetricsSnapshot struct {
	Queries           int64   `json:"queries"`
	SuccessfulQueries int64   `json:"successful_queries"`
	FailedQueries     int64   `json:"failed_queries"`
	AvgQueryTime      float64 `json:"avg_query_time"`
	LastQueryTime     float64 `json:"last_query_time"`
	SuccessRate       float64 `json:"success_rate"`
}
