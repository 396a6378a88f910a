// Package daemon implements tpal's long-running watch mode.
//
// The daemon:
//  1. Keeps the engine's realtime subscription open so changes pushed
//     from other devices land while it runs
//  2. Watches the journal database for writes made by other tpal
//     processes and schedules a push for each (debounced)
//  3. Pulls periodically as a safety net for missed notifications
//  4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tpal-app/tpal/internal/engine"
	"github.com/tpal-app/tpal/internal/store"
)

// Config holds configuration for the daemon.
type Config struct {
	// PullInterval is how often to run a safety-net pull.
	PullInterval time.Duration

	// Debounce is how long to wait after a database change before
	// scheduling a push. Batches rapid CLI edits together.
	Debounce time.Duration

	// ApplyQuiet is how long after an engine write (remote apply or the
	// sync-position record of a push) database changes are ignored. The
	// engine's own writes to the store must not bounce back as pushes.
	ApplyQuiet time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PullInterval: 5 * time.Minute,
		Debounce:     500 * time.Millisecond,
		ApplyQuiet:   2 * time.Second,
		Logger:       log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon keeps a running journal in sync with the cloud.
type Daemon struct {
	engine *engine.Engine
	store  *store.Store
	config *Config

	watcher *fsnotify.Watcher

	mu            sync.Mutex
	changedAt     time.Time // zero = nothing pending
	engineWroteAt time.Time // last engine-originated database write

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon over an engine and its store.
//
// Wire NoteRemoteApply into the engine's OnStateReplaced callback and
// NotePush into OnPushed so the daemon can tell the engine's own
// database writes apart from local edits.
func New(eng *engine.Engine, st *store.Store, config *Config) (*Daemon, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		engine:  eng,
		store:   st,
		config:  config,
		watcher: watcher,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// NoteRemoteApply records that a remote state just replaced the local
// document. Database events inside the quiet window are the engine's own
// write and are not pushed back.
func (d *Daemon) NoteRemoteApply() {
	d.noteEngineWrite()
}

// NotePush records that a push just completed. The push records the sync
// position in the database; without the quiet window that write would be
// mistaken for a new local edit and pushed again, forever.
func (d *Daemon) NotePush() {
	d.noteEngineWrite()
}

func (d *Daemon) noteEngineWrite() {
	d.mu.Lock()
	d.engineWroteAt = time.Now()
	d.changedAt = time.Time{}
	d.mu.Unlock()
}

// Start begins watching and syncing. Blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting watch mode")

	// Catch up first, then stay subscribed.
	d.engine.PullNow(ctx)
	d.engine.EnsureRealtime(ctx)

	dir := filepath.Dir(d.store.Path())
	if err := d.watcher.Add(dir); err != nil {
		d.cancel()
		_ = d.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	d.config.Logger.Printf("Watching: %s", dir)

	d.wg.Add(3)
	go d.watchFileEvents()
	go d.processPending()
	go d.periodicPull()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts the daemon down.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping watch mode")

	d.cancel()
	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}
	d.wg.Wait()

	d.config.Logger.Println("Watch mode stopped")
	return nil
}

// watchFileEvents monitors the data directory and marks the journal
// changed when its database files are written.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	base := filepath.Base(d.store.Path())

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			// The database plus its WAL/SHM sidecars.
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			d.markChanged()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

func (d *Daemon) markChanged() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if time.Since(d.engineWroteAt) < d.config.ApplyQuiet {
		return
	}
	d.changedAt = time.Now()
}

// processPending turns settled database changes into scheduled pushes.
func (d *Daemon) processPending() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.flushIfSettled()
		}
	}
}

func (d *Daemon) flushIfSettled() {
	d.mu.Lock()
	pending := !d.changedAt.IsZero() && time.Since(d.changedAt) >= d.config.Debounce
	if pending {
		d.changedAt = time.Time{}
	}
	d.mu.Unlock()

	if !pending {
		return
	}

	state, err := d.store.LoadState()
	if err != nil {
		d.config.Logger.Printf("Error reading journal: %v", err)
		return
	}
	d.config.Logger.Println("Journal changed, scheduling push")
	d.engine.SchedulePush(state)
}

// periodicPull runs the safety-net pull.
func (d *Daemon) periodicPull() {
	defer d.wg.Done()

	if d.config.PullInterval <= 0 {
		return
	}

	ticker := time.NewTicker(d.config.PullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.engine.PullNow(d.ctx)
		}
	}
}
