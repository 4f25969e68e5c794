// Package sandbox runs generated tests against the unit under test inside an
// ephemeral directory. Isolation here means a private temp dir and a bounded
// subprocess, not a security boundary.
package sandbox

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Fixed file names so the generated tests can import the unit under test
// without any package configuration.
const (
	moduleFileName = "module_under_test.py"
	testFileName   = "test_module_under_test.py"
)

// DefaultMaxOutput bounds captured pytest output.
const DefaultMaxOutput = 4000

// Outcome is the result of one sandboxed pytest run. A failing test suite is
// a normal Outcome with Passed=false, not an error.
type Outcome struct {
	Passed bool
	Output string
}

type Runner struct {
	pythonBin string
	timeout   time.Duration
	maxOutput int
	log       *zap.SugaredLogger
}

func NewRunner(pythonBin string, timeout time.Duration, log *zap.SugaredLogger) *Runner {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Runner{
		pythonBin: pythonBin,
		timeout:   timeout,
		maxOutput: DefaultMaxOutput,
		log:       log,
	}
}

// Run materializes the source and the generated tests into a fresh temp dir
// and invokes pytest over it. The dir is removed on every exit path. Errors
// are returned only for invocation problems (runner missing, temp dir I/O);
// the caller downgrades those to a warning and treats execution as skipped.
func (r *Runner) Run(ctx context.Context, sourceCode, tests string) (Outcome, error) {
	dir, err := os.MkdirTemp("", "testgate-sandbox-")
	if err != nil {
		return Outcome{}, errors.Wrap(err, "create sandbox dir")
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, moduleFileName), []byte(sourceCode), 0o644); err != nil {
		return Outcome{}, errors.Wrap(err, "write unit under test")
	}
	if err := os.WriteFile(filepath.Join(dir, testFileName), []byte(tests), 0o644); err != nil {
		return Outcome{}, errors.Wrap(err, "write generated tests")
	}

	return r.runPytest(ctx, dir)
}

// RunSuite copies every .py file from functionsDir and testsDir into one temp
// env and runs pytest once over all of it. Used by the dataset evaluation.
func (r *Runner) RunSuite(ctx context.Context, functionsDir, testsDir string) (Outcome, error) {
	dir, err := os.MkdirTemp("", "testgate-suite-")
	if err != nil {
		return Outcome{}, errors.Wrap(err, "create suite dir")
	}
	defer os.RemoveAll(dir)

	for _, src := range []string{functionsDir, testsDir} {
		if err := copyPyFiles(src, dir); err != nil {
			return Outcome{}, err
		}
	}
	return r.runPytest(ctx, dir)
}

func (r *Runner) runPytest(ctx context.Context, dir string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// -q/--disable-warnings/--maxfail=1 bound output volume and stop on the
	// first failing test.
	cmd := exec.CommandContext(ctx, r.pythonBin,
		"-m", "pytest", dir, "-q", "--disable-warnings", "--maxfail=1")
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	output := truncate(string(out), r.maxOutput)

	if err == nil {
		return Outcome{Passed: true, Output: output}, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Tests ran and failed. Normal negative result.
		r.log.Debugw("sandboxed pytest run failed", "exit_code", exitErr.ExitCode())
		return Outcome{Passed: false, Output: output}, nil
	}
	return Outcome{}, errors.Wrap(err, "invoke pytest")
}

func copyPyFiles(srcDir, dstDir string) error {
	matches, err := filepath.Glob(filepath.Join(srcDir, "*.py"))
	if err != nil {
		return errors.Wrapf(err, "glob %s", srcDir)
	}
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			return errors.Wrapf(err, "read %s", m)
		}
		if err := os.WriteFile(filepath.Join(dstDir, filepath.Base(m)), b, 0o644); err != nil {
			return errors.Wrapf(err, "copy %s", m)
		}
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
