package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bigbes/tg-identity-store/cmd/identityd/commands"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		commands.Run(os.Args[2:], logger)
	case "migrate":
		commands.Migrate(os.Args[2:], logger)
	case "init":
		commands.Init(os.Args[2:], logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: identityd <command> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run       Start the identity store daemon")
	fmt.Fprintln(os.Stderr, "  migrate   Apply pending schema migrations and exit")
	fmt.Fprintln(os.Stderr, "  init      Generate a default config file")
}
