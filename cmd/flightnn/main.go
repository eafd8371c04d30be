package main

import (
	"fmt"
	"os"

	"github.com/viant/spatial-search/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flightnn:", err)
		os.Exit(1)
	}
}
