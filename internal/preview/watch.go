package preview

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports when a single file is rewritten. It watches the parent
// directory so that editors which save through a rename are noticed too.
type Watcher struct {
	w        *fsnotify.Watcher
	target   string
	debounce time.Duration
	log      *slog.Logger

	changes chan struct{}
	quit    chan struct{}
	once    sync.Once
}

// Watch starts watching path. Bursts of events closer together than
// debounce are reported once.
func Watch(path string, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	w := &Watcher{
		w:        fw,
		target:   abs,
		debounce: debounce,
		log:      log,
		changes:  make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) Path() string { return w.target }

// Changes is closed when the watcher stops.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.quit)
		err = w.w.Close()
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.changes)

	timer := time.NewTimer(0)
	<-timer.C

	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Warn("preview watcher", "path", w.target, "err", err)

		case <-w.quit:
			return
		}
	}
}
