// Package api holds the JSON request/response shapes of the HTTP surface.
// The mapping to pipeline types is deliberately 1:1 and field-for-field.
package api

// GenerateTestsRequest asks for unit tests for one source snippet.
// Absent decoding fields take the configured defaults; max_tokens is always
// capped server-side.
type GenerateTestsRequest struct {
	SourceCode  string   `json:"source_code"`
	Provider    string   `json:"provider,omitempty"` // remote | local | mock
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
}

// GeneratorMetadata describes how the returned text was produced.
type GeneratorMetadata struct {
	RunID           string  `json:"run_id"`
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	DurationSeconds float64 `json:"duration_s"`
	RawPreview      string  `json:"raw_preview"`
}

// GenerateMetadata extends GeneratorMetadata with the quick quality verdicts
// the plain generate endpoint reports inline.
type GenerateMetadata struct {
	GeneratorMetadata
	SyntacticOK   bool    `json:"syntactic_ok"`
	SyntaxError   *string `json:"syntax_error"`
	Status        string  `json:"status"` // ok | failed
	Reason        string  `json:"reason,omitempty"`
	Hallucination bool    `json:"hallucination"`
}

type GenerateTestsResponse struct {
	Tests    string           `json:"tests"`
	Prompt   string           `json:"prompt"`
	Metadata GenerateMetadata `json:"metadata"`
}

type GenerateTestsValidatedRequest struct {
	GenerateTestsRequest
	// RunPytest defaults to true when absent.
	RunPytest *bool `json:"run_pytest,omitempty"`
}

// GovernanceReport is the terminal accept/reject verdict for one run.
type GovernanceReport struct {
	Safe          bool     `json:"safe"`
	SyntaxOK      bool     `json:"syntax_ok"`
	SyntaxError   *string  `json:"syntax_error"`
	Reasons       []string `json:"reasons"`
	Warnings      []string `json:"warnings"`
	PytestPassed  *bool    `json:"pytest_passed"`
	Hallucination bool     `json:"hallucination"`
}

type GenerateTestsValidatedResponse struct {
	Tests             string            `json:"tests"`
	Prompt            string            `json:"prompt"`
	GeneratorMetadata GeneratorMetadata `json:"generator_metadata"`
	Governance        GovernanceReport  `json:"governance"`
	PytestOutput      *string           `json:"pytest_output,omitempty"`
}

type EvaluateDatasetRequest struct {
	FunctionsDir      string `json:"functions_dir,omitempty"`
	ExpectedTestsDir  string `json:"expected_tests_dir,omitempty"`
	GeneratedTestsDir string `json:"generated_tests_dir,omitempty"`
	Regenerate        bool   `json:"regenerate,omitempty"`
	// RunPytest defaults to true when absent.
	RunPytest *bool `json:"run_pytest,omitempty"`
	MaxPairs  int   `json:"max_pairs,omitempty"`
}

type PairMetrics struct {
	File                  string   `json:"file"`
	Status                string   `json:"status"`
	BLEU                  *float64 `json:"bleu"`
	EmbeddingCosine       *float64 `json:"embedding_cosine"`
	PossibleHallucination *bool    `json:"possible_hallucination"`
}

type EvaluationSummary struct {
	NumPairs           int      `json:"num_pairs"`
	AvgBLEU            *float64 `json:"avg_bleu"`
	AvgEmbeddingCosine *float64 `json:"avg_embedding_cosine"`
	HallucinationRate  *float64 `json:"hallucination_rate"`
}

type EvaluateDatasetResponse struct {
	Summary      EvaluationSummary `json:"summary"`
	Pairs        []PairMetrics     `json:"pairs"`
	PytestPassed *bool             `json:"pytest_passed"`
	PytestOutput *string           `json:"pytest_output"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
