package scoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubEmbedder returns canned vectors keyed by text, defaulting to a fixed
// vector so any two texts look identical.
type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 1, 1}, nil
}

const referenceTests = "def test_add():\n    assert add(3, 5) == 8\n"

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestEvaluatePairsIdenticalPair(t *testing.T) {
	expected, generated := t.TempDir(), t.TempDir()
	writeFiles(t, expected, map[string]string{"test_add.py": referenceTests})
	writeFiles(t, generated, map[string]string{"test_add.py": referenceTests})

	opts := DefaultOptions()
	opts.Embedder = &stubEmbedder{}
	pairs, summary, err := EvaluatePairs(context.Background(), expected, generated, opts, zap.NewNop().Sugar())

	require.NoError(t, err)
	require.Len(t, pairs, 1)

	p := pairs[0]
	assert.Equal(t, "test_add.py", p.File)
	assert.Equal(t, StatusOK, p.Status)
	require.NotNil(t, p.BLEU)
	assert.InDelta(t, 1.0, *p.BLEU, 1e-9)
	require.NotNil(t, p.EmbeddingCosine)
	assert.InDelta(t, 1.0, *p.EmbeddingCosine, 1e-9)
	require.NotNil(t, p.PossibleHallucination)
	assert.False(t, *p.PossibleHallucination)

	assert.Equal(t, 1, summary.NumPairs)
	require.NotNil(t, summary.AvgBLEU)
	assert.InDelta(t, 1.0, *summary.AvgBLEU, 1e-9)
	require.NotNil(t, summary.HallucinationRate)
	assert.Zero(t, *summary.HallucinationRate)
}

func TestEvaluatePairsMissingGenerated(t *testing.T) {
	expected, generated := t.TempDir(), t.TempDir()
	writeFiles(t, expected, map[string]string{
		"test_add.py": referenceTests,
		"test_mul.py": "def test_mul():\n    assert mul(2, 3) == 6\n",
	})
	writeFiles(t, generated, map[string]string{"test_add.py": referenceTests})

	pairs, summary, err := EvaluatePairs(context.Background(), expected, generated, DefaultOptions(), zap.NewNop().Sugar())

	require.NoError(t, err)
	require.Len(t, pairs, 2)

	var missing PairMetrics
	for _, p := range pairs {
		if p.File == "test_mul.py" {
			missing = p
		}
	}
	assert.Equal(t, StatusMissingGenerated, missing.Status)
	assert.Nil(t, missing.BLEU)
	require.NotNil(t, missing.PossibleHallucination)
	assert.True(t, *missing.PossibleHallucination)

	require.NotNil(t, summary.HallucinationRate)
	assert.InDelta(t, 0.5, *summary.HallucinationRate, 1e-9)
}

func TestEvaluatePairsFlagsLowSimilarity(t *testing.T) {
	expected, generated := t.TempDir(), t.TempDir()
	writeFiles(t, expected, map[string]string{"test_add.py": referenceTests})
	writeFiles(t, generated, map[string]string{"test_add.py": "completely unrelated words entirely different here\n"})

	pairs, _, err := EvaluatePairs(context.Background(), expected, generated, DefaultOptions(), zap.NewNop().Sugar())

	require.NoError(t, err)
	require.Len(t, pairs, 1)
	require.NotNil(t, pairs[0].BLEU)
	assert.Less(t, *pairs[0].BLEU, 0.2)
	require.NotNil(t, pairs[0].PossibleHallucination)
	assert.True(t, *pairs[0].PossibleHallucination)
}

func TestEvaluatePairsEmbedderFailureIsSkipped(t *testing.T) {
	expected, generated := t.TempDir(), t.TempDir()
	writeFiles(t, expected, map[string]string{"test_add.py": referenceTests})
	writeFiles(t, generated, map[string]string{"test_add.py": referenceTests})

	opts := DefaultOptions()
	opts.Embedder = &stubEmbedder{err: errors.New("embeddings server down")}
	pairs, summary, err := EvaluatePairs(context.Background(), expected, generated, opts, zap.NewNop().Sugar())

	require.NoError(t, err, "a failing embedder must not abort the run")
	require.Len(t, pairs, 1)
	assert.Nil(t, pairs[0].EmbeddingCosine)
	assert.NotNil(t, pairs[0].BLEU)
	assert.Nil(t, summary.AvgEmbeddingCosine)
}

func TestEvaluatePairsRespectsMaxPairs(t *testing.T) {
	expected, generated := t.TempDir(), t.TempDir()
	writeFiles(t, expected, map[string]string{
		"test_a.py": referenceTests,
		"test_b.py": referenceTests,
		"test_c.py": referenceTests,
	})
	writeFiles(t, generated, map[string]string{
		"test_a.py": referenceTests,
		"test_b.py": referenceTests,
		"test_c.py": referenceTests,
	})

	opts := DefaultOptions()
	opts.MaxPairs = 2
	pairs, summary, err := EvaluatePairs(context.Background(), expected, generated, opts, zap.NewNop().Sugar())

	require.NoError(t, err)
	assert.Len(t, pairs, 2)
	assert.Equal(t, 2, summary.NumPairs)
	// deterministic selection: lexicographically first files
	assert.Equal(t, "test_a.py", pairs[0].File)
	assert.Equal(t, "test_b.py", pairs[1].File)
}

func TestEvaluatePairsMissingDir(t *testing.T) {
	_, _, err := EvaluatePairs(context.Background(), "/nonexistent/expected", t.TempDir(), DefaultOptions(), zap.NewNop().Sugar())
	assert.Error(t, err)

	_, _, err = EvaluatePairs(context.Background(), t.TempDir(), "/nonexistent/generated", DefaultOptions(), zap.NewNop().Sugar())
	assert.Error(t, err)
}
