// Package dataset runs the generation pipeline over a directory of source
// functions, writing one generated test file per source file.
package dataset

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/artaoheed/testgate/internal/pipeline"
)

// FileResult records one generated file.
type FileResult struct {
	SourceFile string `json:"source_file"`
	OutputFile string `json:"output_file"`
	Safe       bool   `json:"safe"`
	SyntaxOK   bool   `json:"syntax_ok"`
}

type Generator struct {
	pipe *pipeline.Pipeline
	log  *zap.SugaredLogger
}

func NewGenerator(pipe *pipeline.Pipeline, log *zap.SugaredLogger) *Generator {
	return &Generator{pipe: pipe, log: log}
}

// Run generates tests for every .py file in functionsDir and writes
// <stem>_test.py into outDir. A generation failure aborts the batch; every
// completed run is already accountability-logged by the pipeline.
func (g *Generator) Run(ctx context.Context, functionsDir, outDir string, runPytest bool) ([]FileResult, error) {
	files, err := filepath.Glob(filepath.Join(functionsDir, "*.py"))
	if err != nil {
		return nil, errors.Wrapf(err, "glob %s", functionsDir)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, errors.Newf("no .py files found in %s", functionsDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output dir %s", outDir)
	}

	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return results, errors.Wrapf(err, "read %s", f)
		}

		res, err := g.pipe.Run(ctx, pipeline.Request{
			SourceCode: string(src),
			RunPytest:  runPytest,
		})
		if err != nil {
			return results, errors.Wrapf(err, "generate tests for %s", f)
		}

		stem := strings.TrimSuffix(filepath.Base(f), ".py")
		outFile := filepath.Join(outDir, stem+"_test.py")
		if err := os.WriteFile(outFile, []byte(res.Tests), 0o644); err != nil {
			return results, errors.Wrapf(err, "write %s", outFile)
		}

		g.log.Infow("generated tests",
			"source", f,
			"output", outFile,
			"provider", res.Metadata.Provider,
			"safe", res.Governance.Safe)
		results = append(results, FileResult{
			SourceFile: f,
			OutputFile: outFile,
			Safe:       res.Governance.Safe,
			SyntaxOK:   res.Governance.SyntaxOK,
		})
	}
	return results, nil
}
