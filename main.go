// ./main.go
package main

import (
	"github.com/veritas-qa/veritas-core/cmd"
)

// main is the entry point for the veritas CLI.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
