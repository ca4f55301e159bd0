package tiered

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/vnykmshr/gatekeep/pkg/common/validation"
)

// DefaultDebounce is the quiet period before a changed rules file is
// reloaded.
const DefaultDebounce = 100 * time.Millisecond

// WatcherConfig holds configuration for a Watcher.
type WatcherConfig struct {
	// Path is the rules file to watch. Required.
	Path string

	// Debounce collapses bursts of events into one reload. Defaults to
	// DefaultDebounce.
	Debounce time.Duration

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// OnReload, if set, is called after every reload attempt with the
	// loaded rules or the error that kept the previous rules in place.
	OnReload func(*Rules, error)
}

// Watcher reloads a Limiter's rules when the rules file changes. The parent
// directory is watched so that editors replacing the file are noticed.
// A file that fails to parse or validate leaves the previous rules in place.
type Watcher struct {
	limiter  *Limiter
	path     string
	debounce time.Duration
	logger   *zap.Logger
	onReload func(*Rules, error)

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a Watcher for limiter. Call Start to begin watching.
func NewWatcher(limiter *Limiter, config WatcherConfig) (*Watcher, error) {
	if limiter == nil {
		return nil, validation.ValidateNotNil(module, "limiter", nil)
	}
	if err := validation.ValidateNotEmpty(module, "path", config.Path); err != nil {
		return nil, err
	}
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounce
	}
	if err := validation.ValidatePositiveDuration(module, "debounce", config.Debounce); err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	path, err := filepath.Abs(config.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve rules path: %w", err)
	}

	return &Watcher{
		limiter:  limiter,
		path:     path,
		debounce: config.Debounce,
		logger:   config.Logger.Named("watcher"),
		onReload: config.OnReload,
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	w.watcher = fw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.loop(fw, w.stopCh, w.doneCh)

	w.logger.Info("watching rules file",
		zap.String("path", w.path),
		zap.Duration("debounce", w.debounce),
	)
	return nil
}

// Stop ends watching and cancels any pending reload. It is safe to call
// more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	doneCh := w.doneCh
	fw := w.watcher
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	<-doneCh
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Reload loads the rules file and applies it to the limiter.
func (w *Watcher) Reload() error {
	rules, err := LoadRulesFile(w.path)
	if err == nil {
		err = w.limiter.SetRules(rules)
	}

	if err != nil {
		w.logger.Error("rules reload failed, keeping previous rules",
			zap.String("path", w.path),
			zap.Error(err),
		)
	} else {
		w.logger.Info("rules reloaded",
			zap.String("path", w.path),
			zap.Int("services", len(rules.Services)),
		)
	}

	if w.onReload != nil {
		if err != nil {
			rules = nil
		}
		w.onReload(rules, err)
	}
	return err
}

func (w *Watcher) loop(fw *fsnotify.Watcher, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("rules file event", zap.String("op", event.Op.String()))
			w.schedule(stopCh)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// schedule arms or resets the debounce timer.
func (w *Watcher) schedule(stopCh <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-stopCh:
			return
		default:
		}
		_ = w.Reload()
	})
}
