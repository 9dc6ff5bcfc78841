package golang

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// Writer writes rendered files into one directory in parallel.
type Writer struct {
	dir     string
	workers int
	log     *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// Metrics counts the output of a Writer.
type Metrics struct {
	Files int
	Bytes int64
}

// NewWriter returns a writer into dir.
func NewWriter(dir string, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Writer{dir: dir, workers: runtime.GOMAXPROCS(0), log: log}
}

// WithWorkers sets the number of parallel workers.
func (w *Writer) WithWorkers(n int) *Writer {
	if n > 0 {
		w.workers = n
	}
	return w
}

// Metrics returns the output written so far.
func (w *Writer) Metrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Write renders and writes every file. A file rejected by goimports is
// written next to its target with an ".error" suffix.
func (w *Writer) Write(ctx context.Context, files []*File) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("golang: create output directory: %w", err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for _, f := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return w.write(f)
			}
		})
	}
	return eg.Wait()
}

func (w *Writer) write(f *File) error {
	path := filepath.Join(w.dir, f.Name)
	src, err := f.Source()
	if err != nil {
		return err
	}
	formatted, err := imports.Process(path, src, nil)
	if err != nil {
		debug := path + ".error"
		_ = os.WriteFile(debug, src, 0o644)
		return fmt.Errorf("golang: format %s: %w (unformatted written to %s)", f.Name, err, debug)
	}
	if err := os.WriteFile(path, formatted, 0o644); err != nil {
		return fmt.Errorf("golang: write %s: %w", f.Name, err)
	}
	w.mu.Lock()
	w.metrics.Files++
	w.metrics.Bytes += int64(len(formatted))
	w.mu.Unlock()
	w.log.Debug("file written", "path", path, "bytes", len(formatted))
	return nil
}
