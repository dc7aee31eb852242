package main

import (
	"fmt"
	"os"

	cmd "github.com/eddieafk/bifrostql/cmd/goinmonster"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		if err := cmd.RunInit(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "generate", "gen":
		if err := cmd.RunGenerate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "serve":
		if err := cmd.RunServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "-v", "--version":
		fmt.Printf("goinmonster version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`goinmonster - derives a GraphQL API from a relational database

Usage:
  goinmonster <command> [options]

Commands:
  init        Initialize a new goinmonster project with config file
  generate    Introspect the configured database and print its derived GraphQL SDL (alias: gen)
  serve       Introspect the configured database and serve GraphQL over HTTP and WebSocket
  version     Print version information
  help        Show this help message

Examples:
  goinmonster init
  goinmonster generate
  goinmonster serve --config goinmonster.yaml

Configuration:
  By default, goinmonster looks for 'goinmonster.yaml' in the current directory.
  Use --config to specify a different configuration file.`)
}
