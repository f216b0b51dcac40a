// Command docqa indexes a user's documents and answers questions about them.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A .env file is optional.
	_ = godotenv.Load()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
