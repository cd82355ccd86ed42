// Command tinkerpen serves a live HTML/CSS/JS playground.
package main

import (
	"fmt"
	"os"

	"github.com/livetemplate/tinkerpen/cmd/tinkerpen/commands"
)

const version = "0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one CLI invocation and returns the process exit code.
func run(argv []string) int {
	if len(argv) < 1 {
		printUsage()
		return 1
	}

	command := argv[0]
	args := argv[1:]

	var err error
	switch command {
	case "serve":
		err = commands.ServeCommand(args)
	case "render":
		err = commands.RenderCommand(args, os.Stdout)
	case "share":
		err = commands.ShareCommand(args, os.Stdout)
	case "decode":
		err = commands.DecodeCommand(args, os.Stdout)
	case "new":
		err = commands.NewCommand(args)
	case "version":
		fmt.Printf("tinkerpen version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		return 1
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Println("tinkerpen - Live HTML/CSS/JS playground")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tinkerpen serve [directory]           Start the playground server")
	fmt.Println("  tinkerpen render [directory]          Print the preview document of a pen")
	fmt.Println("  tinkerpen share [directory]           Print the share link of a pen")
	fmt.Println("  tinkerpen decode <link|code>          Decode a share link")
	fmt.Println("  tinkerpen new <name>                  Create a new pen directory")
	fmt.Println("  tinkerpen version                     Show version")
	fmt.Println("  tinkerpen help                        Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  tinkerpen serve                       # Empty playground on :8080")
	fmt.Println("  tinkerpen serve ./my-pen --watch      # Start from a pen, reload on file changes")
	fmt.Println("  tinkerpen serve --storage sqlite      # Persist saves in SQLite")
	fmt.Println("  tinkerpen serve --read-only           # Disable saving")
	fmt.Println("  tinkerpen share ./my-pen --base https://pens.example.com/")
	fmt.Println("  tinkerpen decode 'https://pens.example.com/?code=...' --out ./copy")
	fmt.Println()
	fmt.Println("Documentation: https://github.com/livetemplate/tinkerpen")
}
