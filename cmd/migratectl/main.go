// Command migratectl migrates the application models, generates audit log
// tables with INSERT, UPDATE and DELETE triggers for each of them, and
// executes the generated script.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Run with signal cancellation
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a := &app{out: os.Stdout}
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()

	if err != nil {
		if a.log != nil {
			a.log.Error("migratectl failed", "err", err)
		} else {
			fmt.Fprintln(os.Stderr, "migratectl:", err)
		}
		os.Exit(1)
	}
}
