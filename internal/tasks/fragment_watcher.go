package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/models"
)

// DefaultDebounce is the quiet period before a change is validated.
const DefaultDebounce = 500 * time.Millisecond

// ConfigValidator runs the nginx dry run.
type ConfigValidator interface {
	ValidateConfig(ctx context.Context) (string, error)
}

// FragmentWatcher dry-runs the configuration whenever fragment files
// change on disk. It never reloads nginx; the outcome is logged and
// exported through the validator's config_valid gauge.
type FragmentWatcher struct {
	dir       string
	validator ConfigValidator
	debounce  time.Duration
	logger    *logging.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewFragmentWatcher creates a watcher for dir.
func NewFragmentWatcher(dir string, validator ConfigValidator, debounce time.Duration, logger *logging.Logger) *FragmentWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &FragmentWatcher{
		dir:       dir,
		validator: validator,
		debounce:  debounce,
		logger:    logger,
	}
}

// Start begins watching in the background. A missing directory is not an
// error: nothing is watched until the console is restarted.
func (w *FragmentWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return nil
	}
	if _, err := os.Stat(w.dir); errors.Is(err, fs.ErrNotExist) {
		w.logger.Warn("Fragment directory %s not found, watcher disabled", w.dir)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.watcher = watcher
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.run(ctx, watcher, w.done)

	w.logger.Info("Fragment watcher started: %s", w.dir)
	return nil
}

func (w *FragmentWatcher) run(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("Fragment event: %s %s", event.Op, event.Name)
			w.schedule(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Fragment watcher error: %v", err)
		}
	}
}

// relevant ignores hidden files, which covers the store's temp files,
// and anything that is not a fragment.
func relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, models.FragmentExt) {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

func (w *FragmentWatcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}
	w.cancelPending()
	w.wg.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.validate(ctx)
	})
}

// cancelPending stops a debounce timer that has not fired yet. Callers
// hold mu.
func (w *FragmentWatcher) cancelPending() {
	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.timer = nil
}

func (w *FragmentWatcher) validate(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	diagnostic, err := w.validator.ValidateConfig(ctx)
	if err != nil {
		w.logger.Warn("Fragment change left an invalid configuration: %v", err)
		return
	}
	w.logger.Info("Fragment change validated: %s", diagnostic)
}

// Stop stops watching, cancels a pending validation and waits for one
// already running.
func (w *FragmentWatcher) Stop() error {
	w.mu.Lock()
	watcher := w.watcher
	if watcher == nil {
		w.mu.Unlock()
		return nil
	}
	close(w.done)
	w.cancelPending()
	w.watcher = nil
	w.mu.Unlock()

	w.wg.Wait()
	if err := watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.logger.Info("Fragment watcher stopped")
	return nil
}
