package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tpal-app/tpal/internal/ui"
)

var (
	remoteURLFlag string
	remoteKeyFlag string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sync connection settings",
}

var configSetRemoteCmd = &cobra.Command{
	Use:   "set-remote",
	Short: "Store the backend URL and API key",
	Long: `Store the remote backend's project URL and public API key.

Example:
  tpal config set-remote --url https://abc.supabase.co --key eyJhbGciOi...`,
	Run: func(cmd *cobra.Command, args []string) {
		if remoteURLFlag == "" || remoteKeyFlag == "" {
			fail("both --url and --key are required")
		}

		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		if err := a.cfg.SetRemote(remoteURLFlag, remoteKeyFlag); err != nil {
			fail("%v", err)
		}

		// Re-init against the new parameters so the status reflects them.
		s := a.cfg.Load()
		a.engine.Configure(s.URL, s.AnonKey)
		fmt.Printf("%s Remote configured (%s)\n", ui.RenderPass("✓"), a.engine.Status())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current connection settings",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		s := a.settings
		fmt.Printf("URL:    %s\n", orUnset(s.URL))
		fmt.Printf("Key:    %s\n", orUnset(maskKey(s.AnonKey)))
		fmt.Printf("Email:  %s\n", orUnset(s.Email))
		fmt.Printf("Status: %s\n", ui.RenderAccent(a.engine.Status()))
		fmt.Printf("Config: %s\n", ui.RenderMuted(a.cfg.Path()))
	},
}

func orUnset(s string) string {
	if s == "" {
		return ui.RenderMuted("(unset)")
	}
	return s
}

// maskKey shows just enough of the key to recognize it.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 8) + key[len(key)-4:]
}

func init() {
	configSetRemoteCmd.Flags().StringVar(&remoteURLFlag, "url", "", "backend project URL")
	configSetRemoteCmd.Flags().StringVar(&remoteKeyFlag, "key", "", "backend public API key")
	configCmd.AddCommand(configSetRemoteCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
