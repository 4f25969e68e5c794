package scoring

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Pair statuses.
const (
	StatusOK               = "ok"
	StatusMissingGenerated = "missing_generated"
)

// PairMetrics scores one (expected, generated) test-file pair. Nil metric
// values mean the metric could not be computed for this pair.
type PairMetrics struct {
	File                  string   `json:"file"`
	Status                string   `json:"status"`
	BLEU                  *float64 `json:"bleu"`
	EmbeddingCosine       *float64 `json:"embedding_cosine"`
	PossibleHallucination *bool    `json:"possible_hallucination"`
}

// Summary aggregates pair metrics over one evaluation run.
type Summary struct {
	NumPairs           int      `json:"num_pairs"`
	AvgBLEU            *float64 `json:"avg_bleu"`
	AvgEmbeddingCosine *float64 `json:"avg_embedding_cosine"`
	HallucinationRate  *float64 `json:"hallucination_rate"`
}

// Options bound and tune one evaluation run. The thresholds default to the
// values the original analysis used; they are deliberately configurable.
type Options struct {
	MaxPairs        int
	BLEUThreshold   float64
	CosineThreshold float64
	// Embedder may be nil, in which case the cosine metric is skipped.
	Embedder Embedder
}

func DefaultOptions() Options {
	return Options{
		MaxPairs:        50,
		BLEUThreshold:   0.2,
		CosineThreshold: 0.5,
	}
}

// EvaluatePairs pairs expected test files with generated ones by file name
// and scores each pair. A missing generated file counts as a hallucination.
// Metric computation is best-effort: a failing metric leaves a nil value and
// never aborts the run.
func EvaluatePairs(ctx context.Context, expectedDir, generatedDir string, opts Options, log *zap.SugaredLogger) ([]PairMetrics, Summary, error) {
	if err := checkDir(expectedDir); err != nil {
		return nil, Summary{}, err
	}
	if err := checkDir(generatedDir); err != nil {
		return nil, Summary{}, err
	}
	if opts.MaxPairs <= 0 {
		opts.MaxPairs = DefaultOptions().MaxPairs
	}

	expected, err := filepath.Glob(filepath.Join(expectedDir, "*.py"))
	if err != nil {
		return nil, Summary{}, errors.Wrapf(err, "glob %s", expectedDir)
	}
	sort.Strings(expected)
	if len(expected) > opts.MaxPairs {
		expected = expected[:opts.MaxPairs]
	}

	pairs := make([]PairMetrics, 0, len(expected))
	var bleuValues, cosineValues []float64
	hallucinated := 0

	for _, expPath := range expected {
		name := filepath.Base(expPath)
		expText, err := os.ReadFile(expPath)
		if err != nil {
			return nil, Summary{}, errors.Wrapf(err, "read %s", expPath)
		}

		genPath := filepath.Join(generatedDir, name)
		genText, err := os.ReadFile(genPath)
		if err != nil {
			flag := true
			pairs = append(pairs, PairMetrics{
				File:                  name,
				Status:                StatusMissingGenerated,
				PossibleHallucination: &flag,
			})
			hallucinated++
			continue
		}

		pm := PairMetrics{File: name, Status: StatusOK}

		bleu := BLEU(string(expText), string(genText))
		pm.BLEU = &bleu
		bleuValues = append(bleuValues, bleu)

		if opts.Embedder != nil {
			cos, err := EmbeddingCosine(ctx, opts.Embedder, string(expText), string(genText))
			if err != nil {
				log.Warnw("embedding cosine failed for pair", "file", name, "error", err)
			} else {
				pm.EmbeddingCosine = &cos
				cosineValues = append(cosineValues, cos)
			}
		}

		flag := false
		if pm.BLEU != nil && *pm.BLEU < opts.BLEUThreshold {
			flag = true
		}
		if pm.EmbeddingCosine != nil && *pm.EmbeddingCosine < opts.CosineThreshold {
			flag = true
		}
		pm.PossibleHallucination = &flag
		if flag {
			hallucinated++
		}
		pairs = append(pairs, pm)
	}

	summary := Summary{NumPairs: len(pairs)}
	if v := mean(bleuValues); v != nil {
		summary.AvgBLEU = v
	}
	if v := mean(cosineValues); v != nil {
		summary.AvgEmbeddingCosine = v
	}
	if len(pairs) > 0 {
		rate := float64(hallucinated) / float64(len(pairs))
		summary.HallucinationRate = &rate
	}
	return pairs, summary, nil
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, "stat %s", dir)
	}
	if !info.IsDir() {
		return errors.Newf("%s is not a directory", dir)
	}
	return nil
}
