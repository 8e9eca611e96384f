package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/batchelor-project/batchelor/control"
)

func main() {
	_ = godotenv.Load()

	// Only SIGTERM cancels the context directly; SIGINT is left to wait-task/
	// send-event's own handler so --wait-cancel can count repeated Ctrl-C
	// presses before anything aborts the command.
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if err := control.NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
