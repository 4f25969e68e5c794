// Package provider unifies the generation backends (remote chat-completion
// APIs, a local inference server, and a deterministic mock) behind one
// Generator contract.
package provider

import (
	"context"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// Kind is the closed set of provider variants.
type Kind string

const (
	KindRemote Kind = "remote"
	KindLocal  Kind = "local"
	KindMock   Kind = "mock"
)

// ParseKind validates a provider tag. Unknown values are a configuration
// error, never silently defaulted.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindRemote, KindLocal, KindMock:
		return Kind(s), nil
	}
	return "", errors.Newf("unknown provider %q (want remote, local or mock)", s)
}

// Params are the decoding parameters passed to every backend.
type Params struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// maxTokensCeiling is enforced on every call regardless of caller input.
const maxTokensCeiling = 2048

// Clamp returns a copy with MaxTokens and Temperature forced into range.
func (p Params) Clamp() Params {
	if p.MaxTokens <= 0 {
		p.MaxTokens = 512
	}
	if p.MaxTokens < 16 {
		p.MaxTokens = 16
	}
	if p.MaxTokens > maxTokensCeiling {
		p.MaxTokens = maxTokensCeiling
	}
	if p.Temperature < 0 {
		p.Temperature = 0
	}
	if p.Temperature > 1 {
		p.Temperature = 1
	}
	return p
}

// Result is one completed generation. It is never mutated after return.
type Result struct {
	Text string
	// Model is the concrete model that produced the text.
	Model string
	// RawPreview is a truncated rendering of the raw backend response,
	// kept for the accountability log.
	RawPreview string
}

// Generator is the single call contract every backend implements.
type Generator interface {
	Generate(ctx context.Context, prompt string, params Params) (Result, error)
	Name() string
}

// Set holds the configured generators, one slot per Kind. Slots may be nil
// when the corresponding backend is not configured.
type Set struct {
	Remote Generator
	Local  Generator
	Mock   Generator
}

// ForKind resolves a Kind to its generator.
func (s *Set) ForKind(k Kind) (Generator, error) {
	var g Generator
	switch k {
	case KindRemote:
		g = s.Remote
	case KindLocal:
		g = s.Local
	case KindMock:
		g = s.Mock
	default:
		return nil, errors.Newf("unknown provider %q", string(k))
	}
	if g == nil {
		return nil, errors.Mark(errors.Newf("provider %q is not configured", string(k)), ErrNotConfigured)
	}
	return g, nil
}

const maxRawPreview = 2000

// preview bounds raw backend responses before they reach logs, cutting on a
// rune boundary.
func preview(s string) string {
	if len(s) <= maxRawPreview {
		return s
	}
	n := maxRawPreview
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
