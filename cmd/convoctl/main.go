package main

import (
	"fmt"
	"os"
)

// A small CLI for operating convo: minting development tokens and
// inspecting rooms and their history.

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
