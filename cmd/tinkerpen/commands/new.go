package commands

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/store"
)

// NewCommand implements the new command.
func NewCommand(args []string) error {
	flagSet := flag.NewFlagSet("new", flag.ContinueOnError)
	title := flagSet.String("title", "", "Playground title (default: derived from the name)")
	storage := flagSet.String("storage", store.DriverDir, "Storage driver written to tinkerpen.yaml")

	// Custom usage
	flagSet.Usage = func() {
		fmt.Println("Usage: tinkerpen new [options] <name>")
		fmt.Println()
		fmt.Println("Create a pen directory with the default HTML boilerplate.")
		fmt.Println()
		fmt.Println("Options:")
		flagSet.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  tinkerpen new my-pen                     # Saves go back into the pen files")
		fmt.Println("  tinkerpen new my-pen --storage=sqlite    # Saves go to my-pen/pens.db")
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) < 1 {
		flagSet.Usage()
		return fmt.Errorf("pen name is required")
	}
	name := remainingArgs[0]

	if _, err := os.Stat(name); err == nil {
		return fmt.Errorf("directory %q already exists", name)
	}

	cfg := config.DefaultConfig()
	cfg.Title = *title
	if cfg.Title == "" {
		cfg.Title = toTitle(filepath.Base(name))
	}
	cfg.Storage.Driver = *storage
	switch *storage {
	case store.DriverDir:
		cfg.Storage.Path = "."
	case store.DriverFile:
		cfg.Storage.Path = ".saves"
	case store.DriverSQLite:
		cfg.Storage.Path = "pens.db"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := store.WritePen(name, tinkerpen.DefaultSnapshot()); err != nil {
		return fmt.Errorf("failed to create pen: %w", err)
	}
	if err := cfg.Save(filepath.Join(name, config.FileName)); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("✨ Created pen %q\n\n", name)
	fmt.Println("Next steps:")
	fmt.Printf("  cd %s\n", name)
	fmt.Println("  tinkerpen serve . --watch")
	return nil
}

// toTitle turns "my-first_pen" into "My First Pen".
func toTitle(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
