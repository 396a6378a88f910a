// Package config manages the sync connection settings.
//
// Settings live in ~/.tpal/config.yaml and can be overridden through
// TPAL_* environment variables (TPAL_REMOTE_URL, TPAL_REMOTE_ANON_KEY,
// TPAL_REMOTE_EMAIL). The account password is NEVER persisted; it is read
// interactively at login and held only for the duration of the auth call.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	keyURL   = "remote.url"
	keyAnon  = "remote.anon_key"
	keyEmail = "remote.email"
)

// Settings holds the remote connection parameters.
type Settings struct {
	// URL is the base URL of the managed backend project.
	URL string
	// AnonKey is the project's public API key.
	AnonKey string
	// Email is the last-used sign-in email, kept as a convenience default.
	Email string
}

// Configured reports whether the settings are complete enough to sync.
// The URL must carry an http or https scheme.
func (s Settings) Configured() bool {
	if s.URL == "" || s.AnonKey == "" {
		return false
	}
	return strings.HasPrefix(s.URL, "http://") || strings.HasPrefix(s.URL, "https://")
}

// Manager reads and writes settings through viper.
type Manager struct {
	v    *viper.Viper
	path string
}

// DefaultDir returns the tpal data directory (~/.tpal).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".tpal"), nil
}

// New creates a Manager rooted at dir. The config file is created lazily
// on first Save; a missing file is not an error.
func New(dir string) (*Manager, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("tpal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return &Manager{v: v, path: filepath.Join(dir, "config.yaml")}, nil
}

// Load returns the current settings, trimmed.
func (m *Manager) Load() Settings {
	return Settings{
		URL:     strings.TrimSpace(m.v.GetString(keyURL)),
		AnonKey: strings.TrimSpace(m.v.GetString(keyAnon)),
		Email:   strings.TrimSpace(m.v.GetString(keyEmail)),
	}
}

// SetRemote stores the backend URL and API key.
func (m *Manager) SetRemote(url, anonKey string) error {
	m.v.Set(keyURL, strings.TrimSpace(url))
	m.v.Set(keyAnon, strings.TrimSpace(anonKey))
	return m.save()
}

// SetEmail stores the last-used sign-in email.
func (m *Manager) SetEmail(email string) error {
	m.v.Set(keyEmail, strings.TrimSpace(email))
	return m.save()
}

// Path returns the config file location.
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := m.v.WriteConfigAs(m.path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
