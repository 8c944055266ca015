// Package watch converts PLY files as they appear in a directory. New or
// rewritten .ply files are debounced and handed to the conversion
// pipeline, so a drop folder becomes a conversion hotfolder.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/philipparndt/goply/internal/convert"
	"github.com/philipparndt/goply/pkg/export"
	"github.com/philipparndt/goply/pkg/mesh"
)

// DefaultDebounce is how long a file must stay quiet before conversion
// starts; uploads and copies write in bursts
const DefaultDebounce = 500 * time.Millisecond

// Options configure a Watcher
type Options struct {
	InputDir  string
	OutputDir string
	Formats   []export.Format
	Smoothing mesh.SmoothingLevel
	Debounce  time.Duration
}

// Watcher converts PLY files dropped into a directory
type Watcher struct {
	opts      Options
	converter *convert.Converter
	logger    *zap.Logger

	mu      sync.Mutex
	stopped bool
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
}

// New creates a Watcher for the given directory
func New(opts Options, converter *convert.Converter, logger *zap.Logger) (*Watcher, error) {
	if opts.InputDir == "" {
		return nil, fmt.Errorf("input directory is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		opts:      opts,
		converter: converter,
		logger:    logger,
		timers:    make(map[string]*time.Timer),
	}, nil
}

// Run watches the input directory until the context is canceled. Files
// already present when the watch starts are not converted; only writes
// observed afterwards trigger the pipeline.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.opts.InputDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.opts.InputDir, err)
	}
	w.logger.Info("watching for PLY files", zap.String("dir", w.opts.InputDir))

	for {
		select {
		case <-ctx.Done():
			w.cancelTimers()
			w.wg.Wait()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".ply") {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// schedule restarts the debounce timer for a path. The wait group is
// incremented here, not in the timer callback, so a shutdown-time Wait
// never races an Add.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if timer, ok := w.timers[path]; ok && timer.Stop() {
		// the stopped timer will never fire, release its slot
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timers[path] = time.AfterFunc(w.opts.Debounce, func() {
		defer w.wg.Done()

		w.mu.Lock()
		stopped := w.stopped
		delete(w.timers, path)
		w.mu.Unlock()

		if !stopped {
			w.convertFile(path)
		}
	})
}

func (w *Watcher) convertFile(path string) {
	log := w.logger.With(zap.String("file", path))
	log.Info("converting")

	outcome, err := w.converter.Convert(convert.Request{
		InputPath: path,
		OutputDir: w.opts.OutputDir,
		Formats:   w.opts.Formats,
		Smoothing: w.opts.Smoothing,
	})
	if err != nil {
		log.Error("conversion failed", zap.Error(err))
		return
	}
	log.Info("converted",
		zap.String("source", outcome.Source),
		zap.Int("outputs", len(outcome.Outputs)))
}

// cancelTimers marks the watcher stopped and drops every pending debounce
// timer; conversions already past the debounce keep running and are waited
// for by Run
func (w *Watcher) cancelTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for _, timer := range w.timers {
		if timer.Stop() {
			w.wg.Done()
		}
	}
	w.timers = make(map[string]*time.Timer)
}
