// Command riskctl prints the risk terminal's analyses from the command line.
// It reads the same CSV dataset as the server, so it is handy for scripting
// and for checking a fresh export before the server picks it up.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
