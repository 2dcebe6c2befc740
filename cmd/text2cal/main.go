package main

import (
	"fmt"
	"os"

	"github.com/hyChia88/Text2Cal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
