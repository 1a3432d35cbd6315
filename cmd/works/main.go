package main

import (
	"context"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "works: %v\n", err)
		os.Exit(1)
	}
}
