package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tpal-app/tpal/internal/config"
	"github.com/tpal-app/tpal/internal/daemon"
	"github.com/tpal-app/tpal/internal/journal"
	"github.com/tpal-app/tpal/internal/ui"
)

var watchIntervalFlag time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run in the foreground, syncing continuously",
	Long: `Run tpal as a long-lived sync process.

Watch mode keeps the realtime subscription open so edits from other
devices land as they happen, pushes edits made by other tpal commands
on this machine, and pulls periodically as a safety net. Logs rotate in
the data directory (watch.log). Stop with Ctrl-C.`,
	Run: func(cmd *cobra.Command, args []string) {
		runWatch(cmd)
	},
}

func runWatch(cmd *cobra.Command) {
	dir := dataDirFlag
	if dir == "" {
		var err error
		dir, err = config.DefaultDir()
		if err != nil {
			fail("%v", err)
		}
	}

	logOut := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "watch.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	a, err := openApp(logOut)
	if err != nil {
		fail("%v", err)
	}
	defer a.close()

	logger := log.New(logOut, "[watch] ", log.LstdFlags)

	cfg := daemon.DefaultConfig()
	if watchIntervalFlag > 0 {
		cfg.PullInterval = watchIntervalFlag
	}
	cfg.Logger = logger

	d, err := daemon.New(a.engine, a.store, cfg)
	if err != nil {
		fail("%v", err)
	}
	a.onReplaced = func(*journal.State) { d.NoteRemoteApply() }
	a.onPushed = d.NotePush

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("%s watching (%s)\n", ui.RenderPass("✓"), a.engine.Status())
	fmt.Printf("  log: %s\n", ui.RenderMuted(logOut.Filename))

	if err := d.Start(ctx); err != nil {
		fail("%v", err)
	}
	fmt.Println(ui.RenderMuted("stopped"))
}

func init() {
	watchCmd.Flags().DurationVar(&watchIntervalFlag, "interval", 0, "safety-net pull interval (default 5m)")
	rootCmd.AddCommand(watchCmd)
}
