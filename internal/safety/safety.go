// Package safety applies rule-based checks to generated test code before it
// is accepted. The rules are heuristic pattern matches, not enforced
// isolation.
package safety

import (
	"fmt"
	"strings"
)

// Report is the outcome of the static checks over one generated test file.
// Safe is derived: true iff Reasons is empty. Warnings never affect Safe.
type Report struct {
	Safe          bool     `json:"safe"`
	Reasons       []string `json:"reasons"`
	Warnings      []string `json:"warnings"`
	Hallucination bool     `json:"hallucination"`
}

// defaultUnsafePatterns flags capabilities a unit test has no business using:
// filesystem mutation, process spawning, network access, raw file opens.
var defaultUnsafePatterns = []string{
	"import os",
	"import subprocess",
	"open(",
	"os.remove",
	"shutil.rmtree",
	"requests.",
	"httpx.",
	"import socket",
}

// tautologyPattern is the degenerate always-true assertion a model emits when
// it produced a placeholder instead of a real test.
const tautologyPattern = "assert True"

type Analyzer struct {
	unsafePatterns []string
	tautology      string
}

// Option overrides one of the heuristic constants. The defaults mirror the
// values the original service shipped with.
type Option func(*Analyzer)

func WithUnsafePatterns(patterns []string) Option {
	return func(a *Analyzer) { a.unsafePatterns = patterns }
}

func WithTautologyPattern(p string) Option {
	return func(a *Analyzer) { a.tautology = p }
}

func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		unsafePatterns: defaultUnsafePatterns,
		tautology:      tautologyPattern,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scans the generated text and returns a Report. Unsafe patterns are
// matched case-insensitively as substrings over the whole text; each match
// appends one reason. A missing assert is a warning, not a failure.
func (a *Analyzer) Analyze(tests string) Report {
	var r Report
	r.Reasons = []string{}
	r.Warnings = []string{}

	lowered := strings.ToLower(tests)
	for _, pattern := range a.unsafePatterns {
		if strings.Contains(lowered, strings.ToLower(pattern)) {
			r.Reasons = append(r.Reasons, fmt.Sprintf("Detected potentially unsafe pattern: %s", pattern))
		}
	}

	if !strings.Contains(tests, "assert ") {
		r.Warnings = append(r.Warnings, "No assert statements found in generated tests.")
	}

	if strings.Contains(tests, a.tautology) {
		r.Hallucination = true
		r.Reasons = append(r.Reasons,
			fmt.Sprintf("Meaningless assertion detected: %q found in generated tests.", a.tautology))
	}

	r.Safe = len(r.Reasons) == 0
	return r
}
