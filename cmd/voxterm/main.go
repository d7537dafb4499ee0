// Command voxterm wraps an interactive AI CLI in a pty and overlays a
// voice-dictation status banner on top of it.
package main

import (
	"fmt"
	"os"

	"github.com/voxterm/voxterm/internal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
