package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/gateway"
	"github.com/livetemplate/tinkerpen/internal/render"
	"github.com/livetemplate/tinkerpen/internal/store"
)

// RenderCommand prints the preview document of a pen directory.
func RenderCommand(args []string, out io.Writer) error {
	dir := "."
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return fmt.Errorf("unknown flag: %s", arg)
		}
		dir = arg
	}

	snap, err := readPen(dir)
	if err != nil {
		return err
	}
	_, err = out.Write(render.Render(snap).Bytes())
	return err
}

// ShareCommand prints the share link of a pen directory.
func ShareCommand(args []string, out io.Writer) error {
	dir := "."
	var base string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--base" || arg == "-b" {
			if i+1 < len(args) {
				base = args[i+1]
				i++
			}
		} else if strings.HasPrefix(arg, "--base=") {
			base = strings.TrimPrefix(arg, "--base=")
		} else if !strings.HasPrefix(arg, "-") {
			dir = arg
		} else {
			return fmt.Errorf("unknown flag: %s", arg)
		}
	}

	snap, err := readPen(dir)
	if err != nil {
		return err
	}

	if base == "" {
		// Fall back to the pen's configured public URL, then to a local server.
		cfg, err := config.LoadFromDir(dir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		base = cfg.Share.BaseURL
		if base == "" {
			base = fmt.Sprintf("http://%s:%d/", cfg.Server.Host, cfg.Server.Port)
		}
	}

	link, err := gateway.ShareURL(base, snap)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	_, err = fmt.Fprintln(out, link)
	return err
}

// DecodeCommand decodes a share link. The snapshot is printed as JSON, or
// written as a pen directory with --out.
func DecodeCommand(args []string, out io.Writer) error {
	var link, outDir string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--out" || arg == "-o" {
			if i+1 < len(args) {
				outDir = args[i+1]
				i++
			}
		} else if strings.HasPrefix(arg, "--out=") {
			outDir = strings.TrimPrefix(arg, "--out=")
		} else if link == "" && (!strings.HasPrefix(arg, "-") || arg == "-") {
			link = arg
		} else {
			return fmt.Errorf("unknown argument: %s", arg)
		}
	}

	if link == "" {
		return fmt.Errorf("usage: tinkerpen decode <link|code> [--out dir]")
	}
	if link == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		link = string(data)
	}

	snap, err := gateway.ParseShareLink(link)
	if err != nil {
		return err
	}

	if outDir != "" {
		if err := store.WritePen(outDir, snap); err != nil {
			return fmt.Errorf("failed to write pen: %w", err)
		}
		_, err = fmt.Fprintf(out, "Wrote %s, %s and %s to %s\n", store.HTMLFile, store.CSSFile, store.JSFile, outDir)
		return err
	}

	data, err := tinkerpen.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}

func readPen(dir string) (tinkerpen.Snapshot, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return tinkerpen.Snapshot{}, fmt.Errorf("directory does not exist: %s", dir)
	}
	snap, err := store.ReadPen(dir)
	if errors.Is(err, store.ErrNotFound) {
		return tinkerpen.Snapshot{}, fmt.Errorf("no pen files (%s) in %s", strings.Join(store.PenFiles, ", "), dir)
	}
	return snap, err
}
