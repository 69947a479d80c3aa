package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/viam-labs/superquadric-model/logging"
)

// WatchDebounce is how long a config file must stay unchanged before it is re-read. Editors
// and copies usually produce several events per save.
const WatchDebounce = 100 * time.Millisecond

// Watcher re-reads a configuration file whenever it changes on disk.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   logging.Logger
	debounce func(func())
	reload   chan struct{}

	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// Watch starts watching path. onChange receives every new configuration that reads and
// validates. Bad files are logged and skipped so the last good configuration stays in force.
func Watch(ctx context.Context, path string, logger logging.Logger, onChange func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create file watcher")
	}
	// Watch the directory so editors that replace the file are still seen.
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		utils.UncheckedError(fsw.Close())
		return nil, errors.Wrapf(err, "cannot watch %q", path)
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		path:     abs,
		watcher:  fsw,
		logger:   logger,
		debounce: debounce.New(WatchDebounce),
		reload:   make(chan struct{}, 1),
		cancel:   cancel,
	}
	w.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		w.run(cancelCtx, onChange)
	}, w.activeBackgroundWorkers.Done)
	return w, nil
}

func (w *Watcher) run(ctx context.Context, onChange func(*Config)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.debounce(w.requestReload)
		case <-w.reload:
			cfg, err := Read(w.path, w.logger)
			if err != nil {
				w.logger.Warnw("not applying changed config", "path", w.path, "error", err)
				continue
			}
			w.logger.Infow("config changed", "path", w.path)
			onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) requestReload() {
	select {
	case w.reload <- struct{}{}:
	default:
	}
}

// Close stops watching and waits for the watch loop to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.activeBackgroundWorkers.Wait()
	return err
}
