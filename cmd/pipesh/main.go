package main

import (
	"os"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// run executes the command tree and returns the process exit status.
func run() int {
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return exitCode
}
