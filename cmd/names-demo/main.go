// Command names-demo drives the names sequences from the terminal.
package main

import (
	"os"
)

func main() {
	rootCmd := newRootCommand()
	rootCmd.AddCommand(newRunCommand(), newListCommand(), newVersionCommand())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
