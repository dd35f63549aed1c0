// Command sommelier is the entry point for the wine retrieval assistant.
// It runs the Telegram bot and HTTP API, serves the tools over MCP, and
// loads the catalog into Qdrant.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/sommelier-go/cmd/sommelier/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
