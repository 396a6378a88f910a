package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tpal-app/tpal/internal/engine"
	"github.com/tpal-app/tpal/internal/ui"
)

var emailFlag string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the sync backend",
	Run: func(cmd *cobra.Command, args []string) {
		runAuth(engine.SignIn)
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a sync account",
	Long: `Create an account on the configured backend.

Some projects require email confirmation; in that case no session is
established until the confirmation link is clicked, and tpal reports
"check your email to confirm".`,
	Run: func(cmd *cobra.Command, args []string) {
		runAuth(engine.SignUp)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and close the realtime channel",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		a.engine.Logout(context.Background())
		clearSession(a.dir)
		fmt.Printf("%s %s\n", ui.RenderPass("✓"), a.engine.Status())
	},
}

func runAuth(mode engine.AuthMode) {
	a, err := openApp(io.Discard)
	if err != nil {
		fail("%v", err)
	}
	defer a.close()

	if !a.settings.Configured() {
		fail("not configured; run 'tpal config set-remote' first")
	}

	email := emailFlag
	if email == "" {
		email = a.settings.Email
	}
	var password string

	var fields []huh.Field
	if email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Value(&email))
	}
	fields = append(fields, huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Value(&password))

	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		fail("%v", err)
	}

	a.engine.Authenticate(context.Background(), email, password, mode)
	status := a.engine.Status()

	switch status {
	case engine.StatusConnected, engine.StatusRealtime:
		// Remember the email and the session for later invocations.
		if err := a.cfg.SetEmail(email); err != nil {
			fail("%v", err)
		}
		if a.client != nil && a.client.Token() != "" {
			if err := saveSession(a.dir, a.client.Session(), a.client.Token()); err != nil {
				fail("%v", err)
			}
		}
		fmt.Printf("%s %s\n", ui.RenderPass("✓"), status)
	default:
		fmt.Printf("%s %s\n", ui.RenderErr("✗"), status)
	}
}

func init() {
	loginCmd.Flags().StringVar(&emailFlag, "email", "", "account email")
	signupCmd.Flags().StringVar(&emailFlag, "email", "", "account email")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
}
