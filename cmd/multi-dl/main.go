package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bowenkfan/multi-dl/internal/cli"
)

func main() {
	err := cli.Execute()
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "\nDownload cancelled.")
		os.Exit(130)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
