package schemastore

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher evicts cached schemas when their files change on disk.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	events  chan string
	done    chan struct{}
	once    sync.Once
}

// Watch starts watching the store directory. Every change to a schema file
// evicts its platform and is reported on Events. Call Close to stop.
func (s *Store) Watch(ctx context.Context) (*Watcher, error) {
	if s.dir == "" {
		return nil, errors.New("schemastore: watch requires a directory")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(s.dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{
		store:   s,
		watcher: fw,
		events:  make(chan string, 16),
		done:    make(chan struct{}),
	}
	go w.run(ctx)
	return w, nil
}

// Events reports evicted platform ids. Sends never block; a slow reader
// misses notifications, not evictions.
func (w *Watcher) Events() <-chan string { return w.events }

// Close stops the watcher and waits for its loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer close(w.events)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.store.logger.Warn("schema watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	platform, ok := platformOf(event.Name)
	if !ok {
		return
	}
	w.store.Invalidate(platform)
	w.store.logger.Debug("schema evicted", slog.String("platform", platform), slog.String("op", event.Op.String()))
	select {
	case w.events <- platform:
	default:
	}
}

func platformOf(path string) (string, bool) {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	for _, known := range Extensions {
		if ext == known {
			return strings.TrimSuffix(base, filepath.Ext(base)), true
		}
	}
	return "", false
}
