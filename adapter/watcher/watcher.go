package watcher

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"music-box/pkg/logger"
)

const defaultQuietPeriod = 2 * time.Second

type Config struct {
	Root        string
	QuietPeriod time.Duration
}

// Watcher calls onChange once the library tree has been quiet for QuietPeriod.
type Watcher struct {
	cfg      *Config
	log      *logger.Zerolog
	fsw      *fsnotify.Watcher
	onChange func()
	done     chan struct{}
	wg       sync.WaitGroup
}

func New(cfg *Config, onChange func(), log *logger.Zerolog) (*Watcher, error) {
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = defaultQuietPeriod
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}

	w := &Watcher{
		cfg:      cfg,
		log:      log,
		fsw:      fsw,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	if err := w.addTree(cfg.Root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

func (w *Watcher) Close() {
	close(w.done)
	if err := w.fsw.Close(); err != nil {
		w.log.Error().Msgf("failed to close watcher: %v", err)
	}
	w.wg.Wait()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return errors.Wrap(err, "watch library")
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Debug().Msgf("failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var quiet <-chan time.Time

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				// new subdirectories must be watched too
				_ = w.addTree(ev.Name)
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			quiet = time.After(w.cfg.QuietPeriod)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error().Msgf("watcher error: %v", err)
		case <-quiet:
			quiet = nil
			w.log.Info().Msg("library changed, rescanning")
			w.onChange()
		}
	}
}
