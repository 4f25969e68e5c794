package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleEntry(runID string) Entry {
	return Entry{
		Timestamp: "2026-08-23T12:00:00Z",
		RunID:     runID,
		SourceLen: 42,
		TestsLen:  120,
		GeneratorMetadata: map[string]any{
			"provider": "mock",
			"model":    "mock",
		},
		Governance: map[string]any{"safe": true},
	}
}

func TestJSONLEmitterAppendsOneLinePerEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "runs.jsonl")
	e := NewJSONLEmitter(path, zap.NewNop().Sugar())

	e.Emit(sampleEntry("run-1"))
	e.Emit(sampleEntry("run-2"))

	f, err := os.Open(path)
	require.NoError(t, err, "parent dirs must be created on first emit")
	defer f.Close()

	var runIDs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var got Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &got))
		runIDs = append(runIDs, got.RunID)
		assert.Equal(t, 42, got.SourceLen)
		assert.Equal(t, "2026-08-23T12:00:00Z", got.Timestamp)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"run-1", "run-2"}, runIDs)
}

func TestJSONLEmitterSwallowsWriteFailures(t *testing.T) {
	// Using a regular file as a directory component makes every open fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	e := NewJSONLEmitter(filepath.Join(blocker, "runs.jsonl"), zap.NewNop().Sugar())

	assert.NotPanics(t, func() { e.Emit(sampleEntry("run-1")) })
}

type recordingEmitter struct {
	entries []Entry
}

func (r *recordingEmitter) Emit(entry Entry) { r.entries = append(r.entries, entry) }

func TestMultiEmitterFansOut(t *testing.T) {
	a := &recordingEmitter{}
	b := &recordingEmitter{}
	m := NewMultiEmitter(a, b)

	m.Emit(sampleEntry("run-1"))

	require.Len(t, a.entries, 1)
	require.Len(t, b.entries, 1)
	assert.Equal(t, "run-1", a.entries[0].RunID)
}

func TestMultiEmitterEmptyIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { NewMultiEmitter().Emit(sampleEntry("run-1")) })
}
