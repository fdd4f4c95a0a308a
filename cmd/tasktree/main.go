package main

import (
	"context"
	"os"

	"github.com/roach88/tasktree/internal/cli"
)

// Populated at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(cli.Execute(context.Background(), version))
}
