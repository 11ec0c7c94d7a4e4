// Package watch re-chunks documents as they appear or change in watched
// directories.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/export"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is processed.
const DefaultDebounce = 500 * time.Millisecond

// Config controls which directories are watched.
type Config struct {
	Directories []string
	Recursive   bool
	Debounce    time.Duration
}

// Event records the outcome of one processed file.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"` // "processed", "error"
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Processor handles one changed file and returns the path it wrote.
type Processor interface {
	Process(path string) (string, error)
}

// Watcher monitors directories and hands settled files to a Processor.
type Watcher struct {
	cfg       Config
	processor Processor
	log       *slog.Logger

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	debounce map[string]*time.Timer
	events   []Event
	inflight sync.WaitGroup
}

func New(cfg Config, p Processor, log *slog.Logger) (*Watcher, error) {
	if len(cfg.Directories) == 0 {
		return nil, errors.New("watch: no directories configured")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		cfg:       cfg,
		processor: p,
		log:       log,
		fsw:       fsw,
		debounce:  make(map[string]*time.Timer),
	}, nil
}

// Start watches the configured directories until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.fsw.Close()
	for _, dir := range w.cfg.Directories {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", dir, err)
		}
		if w.cfg.Recursive {
			err = w.addRecursive(abs)
		} else {
			err = w.fsw.Add(abs)
		}
		if err != nil {
			return fmt.Errorf("watch %s: %w", abs, err)
		}
	}
	w.log.Info("watching", "directories", len(w.cfg.Directories), "recursive", w.cfg.Recursive)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.inflight.Wait()
			w.log.Info("watcher stopped")
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "error", err)
		}
	}
}

// Events returns the processed events so far.
func (w *Watcher) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Event(nil), w.events...)
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if w.cfg.Recursive && ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.log.Warn("watch new directory failed", "path", ev.Name, "error", err)
			}
			return
		}
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !Watchable(ev.Name) {
		return
	}

	path, op := ev.Name, ev.Op.String()
	w.mu.Lock()
	if t, ok := w.debounce[path]; ok && t.Stop() {
		w.inflight.Done()
	}
	w.inflight.Add(1)
	w.debounce[path] = time.AfterFunc(w.cfg.Debounce, func() {
		defer w.inflight.Done()
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()
		w.process(path, op)
	})
	w.mu.Unlock()
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.debounce {
		if t.Stop() {
			w.inflight.Done()
		}
		delete(w.debounce, path)
	}
}

func (w *Watcher) process(path, op string) {
	evt := Event{Time: time.Now(), Path: path, Operation: op}
	out, err := w.processor.Process(path)
	if err != nil {
		evt.Status = "error"
		evt.Error = err.Error()
		if errors.Is(err, parser.ErrStructure) {
			w.log.Warn("skipping malformed document", "path", path, "error", err)
		} else {
			w.log.Error("process failed", "path", path, "error", err)
		}
	} else {
		evt.Status = "processed"
		evt.Output = out
		w.log.Info("chunked", "path", path, "output", out)
	}
	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
}

// Watchable reports whether path is a supported document. Editor temp files
// and chunk set outputs are not.
func Watchable(path string) bool {
	base := filepath.Base(path)
	if strings.Contains(base, ".chunks.") {
		return false
	}
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~") || strings.HasPrefix(base, ".#") {
		return false
	}
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return parser.IsSupportedExtension(path)
}

// FileChunker parses a file, chunks it and saves the chunk set into OutDir,
// or next to the source when OutDir is empty.
type FileChunker struct {
	Parse   parser.Options
	Chunker *chunker.Chunker
	OutDir  string
	Format  export.Format
}

func (f *FileChunker) Process(path string) (string, error) {
	doc, err := parser.ParseFile(path, f.Parse)
	if err != nil {
		return "", err
	}
	set := f.Chunker.Chunk(doc)

	format := f.Format
	if format == "" {
		format = export.JSON
	}
	dir := f.OutDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	out := export.OutputPath(dir, path, format)
	if err := export.SaveChunkSet(out, set); err != nil {
		return "", fmt.Errorf("save %s: %w", out, err)
	}
	return out, nil
}
