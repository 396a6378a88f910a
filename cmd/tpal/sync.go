package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tpal-app/tpal/internal/engine"
	"github.com/tpal-app/tpal/internal/ui"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the local journal to the cloud now",
	Long: `Push the local journal to the cloud immediately, without debouncing.

The journal is stamped with the current wall-clock time and replaces the
remote copy for this account. No retry on failure; the local journal is
never modified by a push.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		a.engine.PushNow(context.Background(), nil)
		printStatus(a.engine.Status())
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch the cloud journal and reconcile it with the local one",
	Long: `Fetch the remote journal and reconcile.

The remote copy wins when its timestamp is newer than (or equal to) the
local journal's last sync position, or when this journal has never
synced; otherwise the local journal is kept. "cloud empty (push first)"
means this account has no remote copy yet.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		a.engine.PullNow(context.Background())
		printStatus(a.engine.Status())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		fmt.Printf("Sync:    %s\n", ui.RenderAccent(a.engine.Status()))

		synced, err := a.store.LastSyncedAt()
		if err != nil {
			fail("%v", err)
		}
		if synced.IsZero() {
			fmt.Printf("Synced:  %s\n", ui.RenderMuted("never"))
		} else {
			fmt.Printf("Synced:  %s\n", synced.Local().Format("2006-01-02 15:04:05"))
		}

		state, err := a.store.LoadState()
		if err != nil {
			fail("%v", err)
		}
		fmt.Printf("Journal: %d morning, %d review, %d habit entries\n",
			len(state.MorningEntries), len(state.ReviewEntries), len(state.HabitEntries))
	},
}

// printStatus renders an engine status line with a pass/fail marker.
func printStatus(status string) {
	marker := ui.RenderPass("✓")
	switch {
	case strings.HasPrefix(status, "error:"),
		status == engine.StatusNotConfigured,
		status == engine.StatusSignInFirst:
		marker = ui.RenderErr("✗")
	}
	fmt.Printf("%s %s\n", marker, status)
}

func init() {
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(statusCmd)
}
