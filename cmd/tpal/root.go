package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tpal-app/tpal/internal/config"
	"github.com/tpal-app/tpal/internal/engine"
	"github.com/tpal-app/tpal/internal/journal"
	"github.com/tpal-app/tpal/internal/remote"
	"github.com/tpal-app/tpal/internal/store"
)

var dataDirFlag string

var rootCmd = &cobra.Command{
	Use:   "tpal",
	Short: "Trading discipline journal with cloud sync",
	Long: `tpal records morning routine checklists, evening trade reviews and
habit completion, and derives streaks from them.

All data lives locally in ~/.tpal/journal.db. When a remote backend is
configured (tpal config set-remote) and you are signed in, edits sync
across devices with last-writer-wins reconciliation. Sync is best-effort:
a failed push or pull never touches the local journal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default ~/.tpal)")
}

// app bundles the pieces every command needs.
type app struct {
	dir      string
	cfg      *config.Manager
	settings config.Settings
	store    *store.Store
	engine   *engine.Engine

	// client is the backend adapter built for the current settings, nil
	// when not configured. Kept so auth commands can persist the session.
	client *remote.Client

	// onReplaced and onPushed, when set, run after a remote state
	// replaces the local journal and after a successful push. Watch mode
	// uses them to keep its file watcher from pushing the engine's own
	// database writes back out.
	onReplaced func(*journal.State)
	onPushed   func()
}

// openApp wires config, store and engine. logWriter receives engine and
// adapter logs; one-shot commands pass io.Discard and report through the
// status line instead.
func openApp(logWriter io.Writer) (*app, error) {
	dir := dataDirFlag
	if dir == "" {
		var err error
		dir, err = config.DefaultDir()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.New(dir)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(dir, "journal.db"))
	if err != nil {
		return nil, err
	}

	a := &app{dir: dir, cfg: cfg, settings: cfg.Load(), store: st}

	engCfg := engine.DefaultConfig()
	engCfg.Logger = log.New(logWriter, "[engine] ", log.LstdFlags)
	engCfg.OnStateReplaced = func(s *journal.State) {
		if a.onReplaced != nil {
			a.onReplaced(s)
		}
	}
	engCfg.OnPushed = func() {
		if a.onPushed != nil {
			a.onPushed()
		}
	}
	engCfg.NewBackend = func(url, key string, logger *log.Logger) (remote.Backend, error) {
		client, err := remote.NewClient(url, key, logger)
		if err != nil {
			return nil, err
		}
		if sess := loadSession(dir); sess != nil {
			client.RestoreSession(sess.UserID, sess.AccessToken)
		}
		a.client = client
		return client, nil
	}

	a.engine = engine.New(st, engCfg)
	a.engine.Configure(a.settings.URL, a.settings.AnonKey)
	return a, nil
}

func (a *app) close() {
	a.engine.Close()
	_ = a.store.Close()
}

// session is the persisted auth session, the CLI equivalent of the web
// client's persistSession storage. The password itself is never written.
type session struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}

func sessionPath(dir string) string {
	return filepath.Join(dir, "session.json")
}

func loadSession(dir string) *session {
	data, err := os.ReadFile(sessionPath(dir))
	if err != nil {
		return nil
	}
	var s session
	if err := json.Unmarshal(data, &s); err != nil || s.UserID == "" {
		return nil
	}
	return &s
}

func saveSession(dir, userID, token string) error {
	data, err := json.Marshal(session{UserID: userID, AccessToken: token})
	if err != nil {
		return err
	}
	if err := os.WriteFile(sessionPath(dir), data, 0600); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func clearSession(dir string) {
	_ = os.Remove(sessionPath(dir))
}

// fail prints an error and exits.
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
