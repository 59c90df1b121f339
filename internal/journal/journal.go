// Package journal appends committed ledger entries to zstd-compressed JSON lines files,
// one file per UTC day.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zstd"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

const dayLayout = "2006-01-02"

// Writer is safe for concurrent use.
type Writer struct {
	dir    string
	prefix string
	clock  clockwork.Clock

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

// NewWriter creates a Writer that stores files under dir as <prefix>-<day>.jsonl.zst.
// Files are created lazily on the first append.
func NewWriter(dir, prefix string, clock clockwork.Clock) *Writer {
	return &Writer{
		dir:    dir,
		prefix: prefix,
		clock:  clock,
	}
}

// Append writes one entry as a JSON line and flushes it to the file as a
// complete zstd block, so entries survive a crash even though the frame is
// only terminated by Close.
func (w *Writer) Append(entry model.LedgerEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.clock.Now().UTC().Format(dayLayout)
	if day != w.curDay || w.w == nil {
		if err := w.rotateLocked(day); err != nil {
			return fmt.Errorf("rotate journal: %w", err)
		}
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Close finishes the current zstd frame and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Path returns the file that holds entries of the given day.
func (w *Writer) Path(day string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, day))
}

func (w *Writer) rotateLocked(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.Path(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
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
	w.curDay = day
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err
}
