// Command agentctl runs the go-swarm demos: the sales-data chat assistant
// (HTTP or terminal) and the autonomous chess game.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
