package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/AutoDone-AI/AutoDone-AI/application"
)

func main() {
	app := application.New()
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "autodone: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 优雅退出处理。
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	fmt.Println("[autodone] shutting down...")
	app.Shutdown(ctx)
}
