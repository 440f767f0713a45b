// Command freqbench counts letter frequencies on a worker pool and compares
// the pool engine with simpler parallel strategies.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
