// Package events is the best-effort accountability log. Emitters never
// return errors: logging must not be able to abort the primary workflow.
package events

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type Emitter interface {
	Emit(entry Entry)
}

// JSONLEmitter appends one JSON line per entry to an append-only file,
// creating parent directories as needed. Any failure (disk full, permission
// denied) is swallowed after a debug log.
type JSONLEmitter struct {
	path string
	log  *zap.SugaredLogger
}

func NewJSONLEmitter(path string, log *zap.SugaredLogger) *JSONLEmitter {
	return &JSONLEmitter{path: path, log: log}
}

func (e *JSONLEmitter) Emit(entry Entry) {
	b, err := json.Marshal(entry)
	if err != nil {
		e.log.Debugw("accountability entry marshal failed", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		e.log.Debugw("accountability log dir create failed", "error", err)
		return
	}
	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		e.log.Debugw("accountability log open failed", "error", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		e.log.Debugw("accountability log write failed", "error", err)
	}
}
