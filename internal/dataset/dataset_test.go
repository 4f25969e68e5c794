package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/artaoheed/testgate/internal/pipeline"
	"github.com/artaoheed/testgate/internal/provider"
	"github.com/artaoheed/testgate/internal/safety"
	"github.com/artaoheed/testgate/internal/sandbox"
)

func newMockGenerator() *Generator {
	log := zap.NewNop().Sugar()
	pipe := pipeline.New(&provider.Set{Mock: provider.NewMockGenerator()}, provider.KindMock,
		provider.Params{MaxTokens: 512}, false, 0,
		safety.NewAnalyzer(), sandbox.NewRunner("true", time.Minute, log), nil, log)
	return NewGenerator(pipe, log)
}

func TestRunWritesOneTestFilePerSource(t *testing.T) {
	functions := t.TempDir()
	out := filepath.Join(t.TempDir(), "generated")
	require.NoError(t, os.WriteFile(filepath.Join(functions, "add.py"),
		[]byte("def add(a, b):\n    return a + b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(functions, "mul.py"),
		[]byte("def mul(a, b):\n    return a * b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(functions, "notes.txt"),
		[]byte("ignored"), 0o644))

	g := newMockGenerator()
	results, err := g.Run(context.Background(), functions, out, false)

	require.NoError(t, err)
	require.Len(t, results, 2)

	// sorted by source file name
	assert.Equal(t, filepath.Join(out, "add_test.py"), results[0].OutputFile)
	assert.Equal(t, filepath.Join(out, "mul_test.py"), results[1].OutputFile)

	content, err := os.ReadFile(results[0].OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "def test_add_simple_case():")

	// mock output is syntactically valid but flagged as a hallucination
	assert.True(t, results[0].SyntaxOK)
	assert.False(t, results[0].Safe)
}

func TestRunEmptyFunctionsDir(t *testing.T) {
	g := newMockGenerator()

	_, err := g.Run(context.Background(), t.TempDir(), t.TempDir(), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .py files")
}

func TestRunCreatesOutputDir(t *testing.T) {
	functions := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(functions, "add.py"),
		[]byte("def add(a, b):\n    return a + b\n"), 0o644))
	out := filepath.Join(t.TempDir(), "deeply", "nested", "generated")

	g := newMockGenerator()
	_, err := g.Run(context.Background(), functions, out, false)

	require.NoError(t, err)
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
