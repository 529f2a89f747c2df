// Command recipes serves the recipes HTTP API and its operator commands.
package main

import (
	"os"

	"github.com/tbourn/go-recipes-backend/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	os.Exit(cli.Execute(version))
}
