package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/tpal-app/tpal/internal/engine"
	"github.com/tpal-app/tpal/internal/journal"
	"github.com/tpal-app/tpal/internal/ui"
)

var (
	morningPlanFlag bool
	morningRiskFlag bool
	morningCalmFlag bool
	morningDateFlag string

	reviewTradesFlag    int
	reviewPnLFlag       float64
	reviewFollowedFlag  bool
	reviewRuleBreakFlag string
	reviewNoteFlag      string
	reviewDateFlag      string

	habitDateFlag string
)

var morningCmd = &cobra.Command{
	Use:   "morning",
	Short: "Record today's morning routine",
	Long: `Record a completed morning routine with its three checks.

  tpal morning --plan --risk --calm
  tpal morning --plan --risk --date yesterday`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		date, err := parseDate(morningDateFlag, time.Now())
		if err != nil {
			fail("%v", err)
		}

		state := mustLoad(a)
		state.MorningEntries = append(state.MorningEntries, journal.MorningEntry{
			ID:   uuid.NewString(),
			Date: date,
			Checklist: journal.Checklist{
				Plan: morningPlanFlag,
				Risk: morningRiskFlag,
				Calm: morningCalmFlag,
			},
		})
		saveAndSync(a, state, fmt.Sprintf("morning routine recorded for %s",
			date.Format("2006-01-02")))
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Record an evening trade review",
	Long: `Record a trade review for the day.

  tpal review --trades 3 --pnl 120.50 --followed
  tpal review --trades 7 --pnl -80 --rule-break Overtrading --note "chased the open"`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		date, err := parseDate(reviewDateFlag, time.Now())
		if err != nil {
			fail("%v", err)
		}
		if reviewRuleBreakFlag != "" && reviewFollowedFlag {
			fail("--followed and --rule-break are mutually exclusive")
		}

		state := mustLoad(a)
		state.ReviewEntries = append(state.ReviewEntries, journal.ReviewEntry{
			ID:        uuid.NewString(),
			Date:      date,
			Trades:    reviewTradesFlag,
			PnL:       reviewPnLFlag,
			Followed:  reviewFollowedFlag,
			RuleBreak: reviewRuleBreakFlag,
			Note:      reviewNoteFlag,
		})
		saveAndSync(a, state, fmt.Sprintf("review recorded for %s",
			date.Format("2006-01-02")))
	},
}

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Manage tracked habits",
}

var habitAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Start tracking a habit",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		name := args[0]
		state := mustLoad(a)
		for _, h := range state.Habits {
			if h == name {
				fail("habit %q already tracked", name)
			}
		}
		state.Habits = append(state.Habits, name)
		saveAndSync(a, state, fmt.Sprintf("tracking %q", name))
	},
}

var habitRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Stop tracking a habit",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		name := args[0]
		state := mustLoad(a)
		kept := state.Habits[:0]
		found := false
		for _, h := range state.Habits {
			if h == name {
				found = true
				continue
			}
			kept = append(kept, h)
		}
		if !found {
			fail("habit %q not tracked", name)
		}
		state.Habits = kept
		saveAndSync(a, state, fmt.Sprintf("stopped tracking %q", name))
	},
}

var habitDoneCmd = &cobra.Command{
	Use:   "done <name>",
	Short: "Mark a habit completed for the day",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		name := args[0]

		date, err := parseDate(habitDateFlag, time.Now())
		if err != nil {
			fail("%v", err)
		}
		day := date.Format("2006-01-02")

		state := mustLoad(a)
		tracked := false
		for _, h := range state.Habits {
			if h == name {
				tracked = true
				break
			}
		}
		if !tracked {
			fail("habit %q not tracked; add it first", name)
		}

		state.HabitDayFor(day).MarkHabit(name)
		saveAndSync(a, state, fmt.Sprintf("%q done for %s", name, day))
	},
}

var habitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked habits and today's completion",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		state := mustLoad(a)
		if len(state.Habits) == 0 {
			fmt.Println(ui.RenderMuted("no habits tracked"))
			return
		}

		today := time.Now().Format("2006-01-02")
		var done []string
		for _, hd := range state.HabitEntries {
			if hd.Date == today {
				done = hd.Completed
				break
			}
		}
		for _, h := range state.Habits {
			mark := ui.RenderMuted("·")
			for _, c := range done {
				if c == h {
					mark = ui.RenderPass("✓")
					break
				}
			}
			fmt.Printf("%s %s\n", mark, h)
		}
	},
}

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage trading rules",
}

var ruleAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a trading rule",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		state := mustLoad(a)
		state.Rules = append(state.Rules, args[0])
		saveAndSync(a, state, "rule added")
	},
}

var ruleRmCmd = &cobra.Command{
	Use:   "rm <number>",
	Short: "Remove a trading rule by its list number",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		var n int
		if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil {
			fail("rule number must be an integer")
		}

		state := mustLoad(a)
		if n < 1 || n > len(state.Rules) {
			fail("rule %d does not exist (have %d)", n, len(state.Rules))
		}
		removed := state.Rules[n-1]
		state.Rules = append(state.Rules[:n-1], state.Rules[n:]...)
		saveAndSync(a, state, fmt.Sprintf("removed %q", removed))
	},
}

var ruleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trading rules",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(io.Discard)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		state := mustLoad(a)
		if len(state.Rules) == 0 {
			fmt.Println(ui.RenderMuted("no rules"))
			return
		}
		for i, r := range state.Rules {
			fmt.Printf("%2d. %s\n", i+1, r)
		}
	},
}

func mustLoad(a *app) *journal.State {
	state, err := a.store.LoadState()
	if err != nil {
		fail("%v", err)
	}
	return state
}

// saveAndSync persists the mutated journal and pushes it. When sync isn't
// set up the edit still lands locally; a running watch process (or the
// next signed-in command) will carry it to the cloud.
func saveAndSync(a *app, state *journal.State, did string) {
	if err := a.store.SaveState(state); err != nil {
		fail("%v", err)
	}
	fmt.Printf("%s %s\n", ui.RenderPass("✓"), did)

	a.engine.PushNow(context.Background(), state)
	switch status := a.engine.Status(); status {
	case engine.StatusNotConfigured, engine.StatusSignInFirst:
		fmt.Println(ui.RenderMuted("  saved locally (" + status + ")"))
	default:
		fmt.Println(ui.RenderMuted("  " + status))
	}
}

// parseDate resolves a --date value: empty means now, then YYYY-MM-DD,
// then natural language ("yesterday", "last friday").
func parseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return r.Time, nil
}

func init() {
	morningCmd.Flags().BoolVar(&morningPlanFlag, "plan", false, "reviewed the trading plan")
	morningCmd.Flags().BoolVar(&morningRiskFlag, "risk", false, "set risk limits")
	morningCmd.Flags().BoolVar(&morningCalmFlag, "calm", false, "calm and ready")
	morningCmd.Flags().StringVar(&morningDateFlag, "date", "", "entry date (default today)")

	reviewCmd.Flags().IntVar(&reviewTradesFlag, "trades", 0, "number of trades taken")
	reviewCmd.Flags().Float64Var(&reviewPnLFlag, "pnl", 0, "profit and loss for the day")
	reviewCmd.Flags().BoolVar(&reviewFollowedFlag, "followed", false, "followed the plan")
	reviewCmd.Flags().StringVar(&reviewRuleBreakFlag, "rule-break", "", "rule broken (Risk, FOMO, Overtrading, ...)")
	reviewCmd.Flags().StringVar(&reviewNoteFlag, "note", "", "free-form note")
	reviewCmd.Flags().StringVar(&reviewDateFlag, "date", "", "entry date (default today)")
	_ = reviewCmd.MarkFlagRequired("trades")

	habitDoneCmd.Flags().StringVar(&habitDateFlag, "date", "", "completion date (default today)")
	habitCmd.AddCommand(habitAddCmd, habitRmCmd, habitDoneCmd, habitListCmd)
	ruleCmd.AddCommand(ruleAddCmd, ruleRmCmd, ruleListCmd)

	rootCmd.AddCommand(morningCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(habitCmd)
	rootCmd.AddCommand(ruleCmd)
}
