// Command simpleindex publishes Python package distributions to an
// S3-hosted package repository and keeps its index documents consistent.
package main

import (
	"fmt"
	"log/slog"
	"os"
)

var version = "dev"

var commands = map[string]func([]string) error{
	"upload":  runUpload,
	"reindex": runReindex,
	"check":   runCheck,
}

func usage() {
	fmt.Fprintf(os.Stderr, `simpleindex - S3-hosted Python package index (version %s)

Usage:
  simpleindex <command> [options]

Commands:
  upload     Upload one or more distribution files to the repository
  reindex    Rebuild index documents from stored artifacts, ignoring existing metadata
  check      Report missing or changed packages without writing anything

Run 'simpleindex <command> -h' for command-specific help.
`, version)
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		os.Exit(0)
	}
	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println(version)
		os.Exit(0)
	}

	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err := fn(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
