package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"qmunlock/internal/services"
)

func main() {
	cc := newCommandContext(os.Stdin)
	cmd := newRootCommandWithContext(cc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	if !errors.Is(err, context.Canceled) {
		reportError(os.Stderr, err)
	}
	cc.waitForEnter(os.Stdout)
	os.Exit(1)
}

func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	if hint := services.Hint(err); hint != "" {
		fmt.Fprintf(w, "hint: %s\n", hint)
	}
}
