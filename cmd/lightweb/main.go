// Command lightweb runs the HTTP and WebSocket servers side by side.
// Grounded on the teacher's examples/highlevel/*/main.go programs (flag
// parsing, goroutine-per-listener startup, signal.Notify-based graceful
// shutdown), restructured as a cobra command tree with viper-backed
// configuration instead of a single flat main.
//
// Author: momentics <momentics@gmail.com>
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
