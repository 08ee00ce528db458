package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/novelcompanionapp/companion-server/internal/sse"
)

const defaultSettleDelay = 500 * time.Millisecond

// Watcher monitors the backups directory and broadcasts backup.created and
// backup.deleted events for files appearing or vanishing there, whether the
// service wrote them or something else did.
type Watcher struct {
	backupDir string
	logger    *slog.Logger
	emitter   EventEmitter
	fsw       *fsnotify.Watcher

	// settle is how long a file must stay quiet after its last write
	// before it counts as fully arrived.
	settle time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWatcher creates a watcher for backupDir. Call Start to begin watching.
func NewWatcher(backupDir string, emitter EventEmitter, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create backup watcher: %w", err)
	}

	return &Watcher{
		backupDir: backupDir,
		logger:    logger,
		emitter:   emitter,
		fsw:       fsw,
		settle:    defaultSettleDelay,
		timers:    make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the backups directory, creating it first if needed.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.backupDir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	if err := w.fsw.Add(w.backupDir); err != nil {
		return fmt.Errorf("watch backup dir: %w", err)
	}

	w.wg.Add(1)
	go w.run()

	w.logger.Info("backup watcher started", "dir", w.backupDir)
	return nil
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()

		w.mu.Lock()
		for _, timer := range w.timers {
			timer.Stop()
		}
		clear(w.timers)
		w.mu.Unlock()

		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("backup watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	// Temp files from in-flight exports never end in .json, so this also
	// filters them.
	if !strings.HasSuffix(name, fileExt) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.cancelTimer(name)
		w.logger.Info("backup removed", "name", name)
		w.emitter.Emit(sse.NewBackupDeletedEvent(name))
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		w.startSettling(name)
	}
}

// startSettling (re)arms the settle timer for a file. The created event
// fires only after the file has stopped changing for the settle window, so
// a slow copy into the directory produces one event, not one per write.
func (w *Watcher) startSettling(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[name]; ok {
		timer.Stop()
	}
	w.timers[name] = time.AfterFunc(w.settle, func() {
		w.settled(name)
	})
}

func (w *Watcher) settled(name string) {
	select {
	case <-w.done:
		return
	default:
	}

	w.mu.Lock()
	delete(w.timers, name)
	w.mu.Unlock()

	w.logger.Info("backup detected", "name", name)
	w.emitter.Emit(sse.NewBackupCreatedEvent(name))
}

func (w *Watcher) cancelTimer(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[name]; ok {
		timer.Stop()
		delete(w.timers, name)
	}
}
