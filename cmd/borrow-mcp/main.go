package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rmax-ai/borrowd/pkg/mcp"
)

var Version = "v0.1.0"

// parseEndpoint reads -endpoint, falling back to BORROWD_URL.
func parseEndpoint(args []string) (string, error) {
	fs := flag.NewFlagSet("borrow-mcp", flag.ContinueOnError)
	endpoint := fs.String("endpoint", os.Getenv("BORROWD_URL"), "borrowd base URL")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() > 0 {
		return "", fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return *endpoint, nil
}

func main() {
	endpoint, err := parseEndpoint(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "borrow-mcp: %v\n", err)
		os.Exit(2)
	}

	// stdout carries the protocol; diagnostics go to stderr.
	if err := mcp.NewServer(endpoint, Version).Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "borrow-mcp: %v\n", err)
		os.Exit(1)
	}
}
