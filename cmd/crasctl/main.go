// Command crasctl inspects and controls a CRAS server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jfreymuth/cras"
)

func main() {
	cmd := newRootCommand(cras.NewClient)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
