// Command chalet is a JSON-driven build orchestrator for native
// C/C++/Objective-C projects.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chalet-org/chalet-go/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(cli.Execute(ctx, os.Args[1:]))
}
