package events

// Entry is one append-only accountability record, written at the end of every
// orchestration run and never read back by the pipeline.
type Entry struct {
	Timestamp string `json:"timestamp"` // RFC3339 string
	RunID     string `json:"run_id"`
	SourceLen int    `json:"source_len"`
	TestsLen  int    `json:"tests_len"`
	// GeneratorMetadata and Governance are stored as-is so the log keeps the
	// exact shape the caller saw.
	GeneratorMetadata any `json:"generator_metadata"`
	Governance        any `json:"governance"`
}
