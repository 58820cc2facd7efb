// Command boplot lays out build-order timelines, encodes and decodes
// build configurations and serves the live editor API.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
