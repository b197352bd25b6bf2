// Command nscat is a small introspection and exercise tool for the
// namespace catalog: it maps a ".ns" file, runs the handful of catalog
// operations spec.md describes, and prints the result, in the spirit of
// the teacher's tool subcommand tree (cockroachdb-pebble's cmd/pebble).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
