// onionctl queries running onionmesh endpoints: liveness, relay and user introspection,
// the registry directory, and asking a user to send a message.
// Usage: go run ./cmd/onionctl inspect relay 2
package main

import (
	"os"

	"github.com/SWAI-Ltd/onionmesh/cmd/onionctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
