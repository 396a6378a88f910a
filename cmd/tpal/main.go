// Command tpal is a trading-discipline journal with best-effort cloud
// sync. Journal entries live in a local SQLite database; when a remote
// backend is configured, every local edit is pushed (debounced) and
// remote edits are reconciled with last-writer-wins semantics.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
