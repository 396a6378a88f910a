package engine

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tpal-app/tpal/internal/journal"
	"github.com/tpal-app/tpal/internal/remote"
	"github.com/tpal-app/tpal/internal/store"
)

// AuthMode selects between signing in to an existing account and creating
// a new one.
type AuthMode int

const (
	SignIn AuthMode = iota
	SignUp
)

// Source tags where a reconciliation attempt came from.
type Source string

const (
	SourcePull     Source = "pull"
	SourceRealtime Source = "realtime"
)

// BackendFactory builds a backend adapter for the given connection
// parameters. Swapped for a fake in tests.
type BackendFactory func(url, key string, logger *log.Logger) (remote.Backend, error)

// Config holds engine tunables.
type Config struct {
	// Debounce is the quiet period SchedulePush waits for before pushing.
	Debounce time.Duration

	// EchoWindow is how long after our own push a realtime notification
	// is treated as an echo of that push and ignored.
	EchoWindow time.Duration

	// Clock drives timestamps and the debounce timer.
	Clock Clock

	// NewBackend builds the adapter when Configure runs.
	NewBackend BackendFactory

	// Logger for engine activity.
	Logger *log.Logger

	// OnStatus is invoked with every status change. Optional.
	OnStatus func(string)

	// OnPushed is invoked after every successful push, once the sync
	// position has been recorded locally. Optional.
	OnPushed func()

	// OnStateReplaced is invoked after a remote state wins reconciliation
	// and has been written to the local store, so callers can re-render
	// against the new data. Optional.
	OnStateReplaced func(*journal.State)
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Debounce:   600 * time.Millisecond,
		EchoWindow: 1500 * time.Millisecond,
		Clock:      NewClock(),
		NewBackend: func(url, key string, logger *log.Logger) (remote.Backend, error) {
			return remote.NewClient(url, key, logger)
		},
		Logger: log.New(os.Stderr, "[engine] ", log.LstdFlags),
	}
}

// Engine mediates between the local store and the remote backend. One
// instance per process; all session state lives here.
type Engine struct {
	store  *store.Store
	clock  Clock
	logger *log.Logger
	cfg    *Config

	// clientID identifies this engine instance on outgoing envelopes.
	clientID string

	mu           sync.Mutex
	backend      remote.Backend
	configured   bool
	userID       string
	sub          remote.Subscription
	pushTimer    Timer
	lastPushedAt time.Time
	status       string
	pumpWG       sync.WaitGroup

	// applying serializes reconciliation: concurrent attempts are
	// dropped, not queued.
	applying atomic.Bool
}

// New creates an engine over the local store. Configure must be called
// before any sync operation does useful work.
func New(st *store.Store, cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Clock == nil {
		cfg.Clock = NewClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	if cfg.NewBackend == nil {
		cfg.NewBackend = DefaultConfig().NewBackend
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 600 * time.Millisecond
	}
	if cfg.EchoWindow <= 0 {
		cfg.EchoWindow = 1500 * time.Millisecond
	}

	return &Engine{
		store:    st,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		cfg:      cfg,
		clientID: uuid.NewString(),
		status:   StatusNotConfigured,
	}
}

// Status returns the current human-readable status line.
func (e *Engine) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// ClientID returns this engine instance's envelope id.
func (e *Engine) ClientID() string {
	return e.clientID
}

// setStatus must be called without e.mu held.
func (e *Engine) setStatus(msg string) {
	e.mu.Lock()
	e.status = msg
	fn := e.cfg.OnStatus
	e.mu.Unlock()

	e.logger.Printf("Status: %s", msg)
	if fn != nil {
		fn(msg)
	}
}

// Configure stores connection parameters and (re)initializes the backend
// adapter. Missing or malformed parameters leave the engine inert rather
// than failing: every subsequent operation no-ops with a status
// explaining why.
func (e *Engine) Configure(url, key string) {
	e.mu.Lock()
	e.teardownRealtimeLocked()
	e.backend = nil
	e.configured = false
	e.userID = ""
	e.mu.Unlock()

	backend, err := e.cfg.NewBackend(url, key, e.logger)
	if err != nil {
		e.logger.Printf("Not configured: %v", err)
		e.setStatus(StatusNotConfigured)
		return
	}

	e.mu.Lock()
	e.backend = backend
	e.configured = true
	e.userID = backend.Session()
	signedIn := e.userID != ""
	e.mu.Unlock()

	if signedIn {
		e.setStatus(StatusConnected)
		e.ensureRealtime(context.Background())
	} else {
		e.setStatus(StatusSignedOut)
	}
}

// Authenticate signs in or signs up. The outcome lands on the status
// surface; nothing is returned to the caller.
func (e *Engine) Authenticate(ctx context.Context, email, password string, mode AuthMode) {
	e.mu.Lock()
	backend := e.backend
	e.mu.Unlock()

	if backend == nil {
		e.setStatus(StatusNotConfigured)
		return
	}
	if email == "" {
		e.setStatus(StatusEnterEmail)
		return
	}
	if password == "" {
		e.setStatus(StatusEnterPassword)
		return
	}

	var (
		userID string
		err    error
	)
	switch mode {
	case SignUp:
		e.setStatus(StatusCreatingAccount)
		userID, err = backend.SignUp(ctx, email, password)
	default:
		e.setStatus(StatusSigningIn)
		userID, err = backend.SignIn(ctx, email, password)
	}

	if errors.Is(err, remote.ErrConfirmationRequired) {
		e.setStatus(StatusConfirmEmail)
		return
	}
	if err != nil {
		e.setStatus(statusErrorPrefix + err.Error())
		return
	}

	e.mu.Lock()
	e.userID = userID
	e.mu.Unlock()

	e.setStatus(StatusConnected)
	e.ensureRealtime(ctx)
}

// Logout tears down the realtime subscription and terminates the session.
// Idempotent: logging out while signed out just reports "signed out".
func (e *Engine) Logout(ctx context.Context) {
	e.mu.Lock()
	backend := e.backend
	signedIn := e.userID != ""
	e.teardownRealtimeLocked()
	e.userID = ""
	e.mu.Unlock()

	if backend == nil || !signedIn {
		e.setStatus(StatusLoggedOut)
		return
	}

	e.setStatus(StatusSigningOut)
	if err := backend.SignOut(ctx); err != nil {
		e.setStatus(statusErrorPrefix + err.Error())
		return
	}
	e.setStatus(StatusLoggedOut)
}

// SchedulePush queues a debounced push of state. Calls within the
// debounce window cancel and restart the timer, so a burst of edits
// coalesces into one push carrying the last state. A no-op (with status
// explaining why) when not configured; silent when signed out or while a
// remote apply is in progress.
func (e *Engine) SchedulePush(state *journal.State) {
	e.mu.Lock()
	if !e.configured {
		e.mu.Unlock()
		e.setStatus(StatusNotConfigured)
		return
	}
	if e.backend == nil || e.userID == "" || e.applying.Load() {
		e.mu.Unlock()
		return
	}

	if e.pushTimer != nil {
		e.pushTimer.Stop()
	}
	e.pushTimer = e.clock.AfterFunc(e.cfg.Debounce, func() {
		e.PushNow(context.Background(), state)
	})
	e.mu.Unlock()
}

// PushNow immediately stamps state with the current wall-clock time and
// upserts it as the user's remote row. With a nil state the current local
// document is pushed. No retry on failure.
func (e *Engine) PushNow(ctx context.Context, state *journal.State) {
	e.mu.Lock()
	backend := e.backend
	configured := e.configured
	userID := e.userID
	e.mu.Unlock()

	if !configured || backend == nil {
		e.setStatus(StatusNotConfigured)
		return
	}
	if userID == "" {
		e.setStatus(StatusSignInFirst)
		return
	}

	if state == nil {
		var err error
		state, err = e.store.LoadState()
		if err != nil {
			e.setStatus(statusErrorPrefix + err.Error())
			return
		}
	}

	e.setStatus(StatusPushing)
	env := remote.NewEnvelope(state, e.clock.Now(), e.clientID)
	if err := backend.UpsertRecord(ctx, userID, env); err != nil {
		e.setStatus(statusErrorPrefix + err.Error())
		return
	}

	e.mu.Lock()
	e.lastPushedAt = e.clock.Now()
	e.mu.Unlock()

	// Record the pushed stamp as our local sync position so an older
	// remote copy can't win a later reconciliation.
	if err := e.store.SetLastSyncedAt(env.UpdatedAt); err != nil {
		e.logger.Printf("Warning: failed to record sync position: %v", err)
	}

	e.setStatus(StatusSaved)
	if e.cfg.OnPushed != nil {
		e.cfg.OnPushed()
	}
}

// PullNow fetches the user's remote row and reconciles it against the
// local document. An empty cloud is reported distinctly from a failure.
func (e *Engine) PullNow(ctx context.Context) {
	e.mu.Lock()
	backend := e.backend
	configured := e.configured
	userID := e.userID
	e.mu.Unlock()

	if !configured || backend == nil {
		e.setStatus(StatusNotConfigured)
		return
	}
	if userID == "" {
		e.setStatus(StatusSignInFirst)
		return
	}

	e.setStatus(StatusPulling)
	env, err := backend.SelectRecord(ctx, userID)
	if errors.Is(err, remote.ErrNoRecord) {
		e.setStatus(StatusCloudEmpty)
		return
	}
	if err != nil {
		e.setStatus(statusErrorPrefix + err.Error())
		return
	}

	e.applyRemote(env, SourcePull)
}

// EnsureRealtime opens the realtime subscription if the engine is signed
// in and none is open yet. Exposed for long-running (watch) mode.
func (e *Engine) EnsureRealtime(ctx context.Context) {
	e.ensureRealtime(ctx)
}

func (e *Engine) ensureRealtime(ctx context.Context) {
	e.mu.Lock()
	backend := e.backend
	userID := e.userID
	already := e.sub != nil
	e.mu.Unlock()

	if backend == nil || userID == "" || already {
		return
	}

	sub, err := backend.Subscribe(ctx, userID)
	if err != nil {
		// Realtime is best-effort: pull/push still work without it.
		e.logger.Printf("Realtime unavailable: %v", err)
		return
	}

	e.mu.Lock()
	if e.sub != nil {
		// Lost a race with another ensure; keep the first.
		e.mu.Unlock()
		_ = sub.Close()
		return
	}
	e.sub = sub
	e.pumpWG.Add(1)
	e.mu.Unlock()

	go e.pump(sub)
	e.setStatus(StatusRealtime)
}

// pump feeds realtime notifications into reconciliation until the
// subscription closes.
func (e *Engine) pump(sub remote.Subscription) {
	defer e.pumpWG.Done()

	for env := range sub.Changes() {
		e.applyRemote(env, SourceRealtime)
	}
}

// teardownRealtimeLocked closes the subscription. Caller holds e.mu.
func (e *Engine) teardownRealtimeLocked() {
	if e.sub != nil {
		_ = e.sub.Close()
		e.sub = nil
	}
}

// Close disposes the engine: cancels any pending debounce, closes the
// realtime subscription and waits for the notification pump to drain. An
// in-flight push is not cancelled.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.pushTimer != nil {
		e.pushTimer.Stop()
		e.pushTimer = nil
	}
	e.teardownRealtimeLocked()
	e.mu.Unlock()

	e.pumpWG.Wait()
}

// applyRemote runs the reconciliation decision. Identical for pull and
// realtime; only the echo-suppression step distinguishes the source.
func (e *Engine) applyRemote(env *remote.Envelope, source Source) {
	if !e.applying.CompareAndSwap(false, true) {
		// Another apply is in flight; drop rather than queue.
		e.logger.Printf("Reconciliation from %s dropped: apply in progress", source)
		return
	}
	defer e.applying.Store(false)

	e.mu.Lock()
	sincePush := e.clock.Now().Sub(e.lastPushedAt)
	lastPushed := e.lastPushedAt
	e.mu.Unlock()

	// Echo suppression: a notification hot on the heels of our own push
	// is an echo of that push, not news.
	if source == SourceRealtime && !lastPushed.IsZero() && sincePush < e.cfg.EchoWindow {
		e.logger.Printf("Realtime echo suppressed (%v after push)", sincePush)
		return
	}

	localT, err := e.store.LastSyncedAt()
	if err != nil {
		e.setStatus(statusErrorPrefix + err.Error())
		return
	}

	remoteT := env.UpdatedAt
	// Remote wins when it carries a stamp that is newer-or-equal to ours,
	// or when this journal has never synced. A stampless remote never
	// wins.
	if remoteT.IsZero() || (!localT.IsZero() && remoteT.Before(localT)) {
		e.setStatus(StatusUpToDate)
		return
	}

	payload := env.Payload()
	if err := e.store.Replace(payload, remoteT); err != nil {
		e.setStatus(statusErrorPrefix + err.Error())
		return
	}

	e.setStatus(statusUpdatedFromPrefix + string(source))
	if e.cfg.OnStateReplaced != nil {
		e.cfg.OnStateReplaced(payload)
	}
}
