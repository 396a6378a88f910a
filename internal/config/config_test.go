package config

import (
	"testing"
)

func TestConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     bool
	}{
		{
			name:     "complete https",
			settings: Settings{URL: "https://abc.supabase.co", AnonKey: "anon-key"},
			want:     true,
		},
		{
			name:     "complete http",
			settings: Settings{URL: "http://localhost:54321", AnonKey: "anon-key"},
			want:     true,
		},
		{
			name:     "missing url",
			settings: Settings{AnonKey: "anon-key"},
			want:     false,
		},
		{
			name:     "missing key",
			settings: Settings{URL: "https://abc.supabase.co"},
			want:     false,
		},
		{
			name:     "url without scheme",
			settings: Settings{URL: "abc.supabase.co", AnonKey: "anon-key"},
			want:     false,
		},
		{
			name:     "empty",
			settings: Settings{},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManagerRoundTrip(t *testing.T) {
	dir := t.TempDir()

	m, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if s := m.Load(); s.Configured() {
		t.Errorf("fresh config should not be configured, got %+v", s)
	}

	if err := m.SetRemote("https://abc.supabase.co", "anon-key"); err != nil {
		t.Fatalf("SetRemote failed: %v", err)
	}
	if err := m.SetEmail("trader@example.com"); err != nil {
		t.Fatalf("SetEmail failed: %v", err)
	}

	// A new manager over the same dir sees the persisted values.
	m2, err := New(dir)
	if err != nil {
		t.Fatalf("New (reopen) failed: %v", err)
	}
	s := m2.Load()
	if !s.Configured() {
		t.Errorf("expected configured settings, got %+v", s)
	}
	if s.Email != "trader@example.com" {
		t.Errorf("Email = %q, want trader@example.com", s.Email)
	}
}

func TestManagerTrimsWhitespace(t *testing.T) {
	dir := t.TempDir()

	m, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := m.SetRemote("  https://abc.supabase.co  ", " anon-key\n"); err != nil {
		t.Fatalf("SetRemote failed: %v", err)
	}

	s := m.Load()
	if s.URL != "https://abc.supabase.co" {
		t.Errorf("URL not trimmed: %q", s.URL)
	}
	if s.AnonKey != "anon-key" {
		t.Errorf("AnonKey not trimmed: %q", s.AnonKey)
	}
}
