package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher ingests raw blobs dropped as files into a directory. Upstream
// tooling writes one generation response per file; a processed file is
// renamed with a .done suffix (.err when rejected) so re-scans skip it.
type Watcher struct {
	dir      string
	pipeline *Pipeline
	log      zerolog.Logger
	fw       *fsnotify.Watcher
	done     chan struct{}
	handlers sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// settleDelay gives the writer time to finish before the file is read.
// Drop files are small (a single generation response), so a short delay
// is enough.
const settleDelay = 200 * time.Millisecond

func NewWatcher(dir string, pipeline *Pipeline, log zerolog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		dir:      dir,
		pipeline: pipeline,
		log:      log,
		fw:       fw,
		done:     make(chan struct{}),
		inFlight: map[string]struct{}{},
	}, nil
}

// Start processes files already present, then watches for new ones until
// ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	w.log.Info().Str("dir", w.dir).Msg("drop folder watcher started")
	w.scanExisting(ctx)

	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) {
					w.dispatch(ctx, ev.Name)
				}
			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				w.log.Error().Err(err).Msg("drop folder watch error")
			}
		}
	}()
}

// Stop closes the underlying watcher and waits for the event loop and any
// in-flight file handlers to finish.
func (w *Watcher) Stop() {
	w.fw.Close()
	<-w.done
	w.handlers.Wait()
	w.log.Info().Msg("drop folder watcher stopped")
}

func (w *Watcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Error().Err(err).Msg("drop folder scan failed")
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.dispatch(ctx, filepath.Join(w.dir, e.Name()))
		}
	}
}

// dispatch hands a drop file to its own goroutine so the settle delay never
// blocks the event loop. A path already being handled is skipped: a Create
// immediately followed by a Write must not ingest the file twice.
func (w *Watcher) dispatch(ctx context.Context, path string) {
	if !isDropFile(filepath.Base(path)) {
		return
	}

	w.mu.Lock()
	if _, busy := w.inFlight[path]; busy {
		w.mu.Unlock()
		return
	}
	w.inFlight[path] = struct{}{}
	w.mu.Unlock()

	w.handlers.Add(1)
	go func() {
		defer w.handlers.Done()
		defer func() {
			w.mu.Lock()
			delete(w.inFlight, path)
			w.mu.Unlock()
		}()
		w.handleFile(ctx, path)
	}()
}

// handleFile ingests one drop file. The filename (without extension) becomes
// the lane, so "whisper-a.json" lands in lane "whisper-a".
func (w *Watcher) handleFile(ctx context.Context, path string) {
	name := filepath.Base(path)

	time.Sleep(settleDelay)

	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn().Err(err).Str("file", name).Msg("drop file unreadable")
		return
	}

	lane := strings.TrimSuffix(name, filepath.Ext(name))
	_, err = w.pipeline.Ingest(ctx, "drop", lane, name, data)

	suffix := ".done"
	if err != nil {
		suffix = ".err"
		w.log.Warn().Err(err).Str("file", name).Msg("drop file rejected")
	}
	if renameErr := os.Rename(path, path+suffix); renameErr != nil {
		w.log.Error().Err(renameErr).Str("file", name).Msg("drop file rename failed")
	}
}

func isDropFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".txt":
		return true
	}
	return false
}
