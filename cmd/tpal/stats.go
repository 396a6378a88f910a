package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tpal-app/tpal/internal/journal"
	"github.com/tpal-app/tpal/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show streaks and weekly trading stats",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		state := mustLoad(a)
		now := time.Now()

		fmt.Println(ui.RenderBold("Streaks"))
		fmt.Printf("  Morning routine: %s\n", days(journal.MorningStreak(state.MorningEntries)))
		if len(state.Habits) > 0 {
			hs := journal.HabitStreaks(state, now.Format("2006-01-02"))
			fmt.Printf("  Habits (all %d): %s (longest %s)\n",
				len(state.Habits), days(hs.Current), days(hs.Longest))
		}

		week := journal.WeekStats(state, now)
		fmt.Println()
		fmt.Println(ui.RenderBold("Last 7 days"))
		fmt.Printf("  Sessions: %d\n", week.Sessions)
		fmt.Printf("  Trades:   %d\n", week.Trades)
		pnl := fmt.Sprintf("%+.2f", week.PnL)
		if week.PnL >= 0 {
			fmt.Printf("  PnL:      %s\n", ui.RenderPass(pnl))
		} else {
			fmt.Printf("  PnL:      %s\n", ui.RenderErr(pnl))
		}

		if followed, total := discipline(state, now); total > 0 {
			fmt.Printf("  Plan followed: %d/%d reviews\n", followed, total)
		}
	},
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// discipline counts reviews in the trailing week and how many followed
// the plan.
func discipline(s *journal.State, now time.Time) (followed, total int) {
	cutoff := now.Add(-7 * 24 * time.Hour)
	for _, r := range s.ReviewEntries {
		if r.Date.Before(cutoff) {
			continue
		}
		total++
		if r.Followed {
			followed++
		}
	}
	return followed, total
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
