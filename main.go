// Command cncslice slices triangle meshes and job scripts into layered
// 2.5-axis G-code programs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(NewApp()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cncslice:", err)
		stop()
		os.Exit(1)
	}
}
