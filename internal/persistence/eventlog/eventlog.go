// Package eventlog persists session lifecycle and chat traffic as
// hour-rotated, zstd-compressed JSONL for later inspection and replay.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Entry is one logged event. Kind is one of "join", "leave", "name", "chat".
type Entry struct {
	TS       int64  `json:"ts"` // unix ms, server clock
	Kind     string `json:"kind"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name,omitempty"`
	Message  string `json:"message,omitempty"`
}

type Writer struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir, prefix: "events"}
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) Write(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Recorder interface over the world's lifecycle hooks. Write errors are not
// the world loop's problem; they are swallowed here.
func (w *Writer) RecordJoin(id, name string, ts int64) {
	_ = w.Write(Entry{TS: ts, Kind: "join", PlayerID: id, Name: name})
}

func (w *Writer) RecordLeave(id string, ts int64) {
	_ = w.Write(Entry{TS: ts, Kind: "leave", PlayerID: id})
}

func (w *Writer) RecordName(id, name string, ts int64) {
	_ = w.Write(Entry{TS: ts, Kind: "name", PlayerID: id, Name: name})
}

func (w *Writer) RecordChat(id, message string, ts int64) {
	_ = w.Write(Entry{TS: ts, Kind: "chat", PlayerID: id, Message: message})
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}
