package provider

import (
	"context"
	"fmt"
	"regexp"
)

// MockGenerator is a deterministic, dependency-free backend for tests and CI.
// It finds the function under test in the prompt and emits a minimal pytest
// skeleton whose only check is the intentionally trivial "assert True", which
// downstream validation flags as a hallucination.
type MockGenerator struct{}

var defRe = regexp.MustCompile(`def\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\(`)

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (m *MockGenerator) Name() string { return "mock" }

func (m *MockGenerator) Generate(_ context.Context, promptText string, _ Params) (Result, error) {
	funcName := "func_under_test"
	if match := defRe.FindStringSubmatch(promptText); match != nil {
		funcName = match[1]
	}
	tests := fmt.Sprintf("import pytest\n\n\n"+
		"# Mock-generated tests for %s\n\n"+
		"def test_%s_simple_case():\n"+
		"    # TODO: replace with project-specific assertions\n"+
		"    assert True\n", funcName, funcName)
	return Result{
		Text:       tests,
		Model:      "mock",
		RawPreview: `{"provider":"mock","note":"mock generator used (no external model loaded)"}`,
	}, nil
}
