package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/livetemplate/tinkerpen"
)

// File names of a pen directory.
const (
	HTMLFile = "index.html"
	CSSFile  = "style.css"
	JSFile   = "script.js"
)

// PenFiles lists the pen directory files in buffer order.
var PenFiles = []string{HTMLFile, CSSFile, JSFile}

// DirStore persists the snapshot as a pen directory: one plain file per
// buffer, so the pen can be edited with any text editor. The directory holds a
// single pen, so the key is ignored.
type DirStore struct {
	dir string
}

// NewDirStore creates a pen directory store rooted at dir.
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir store: directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("dir store: failed to create %s: %w", dir, err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the pen directory.
func (d *DirStore) Dir() string {
	return d.dir
}

func (d *DirStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := ReadPen(d.dir)
	if err != nil {
		return nil, err
	}
	return tinkerpen.MarshalSnapshot(s)
}

func (d *DirStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := tinkerpen.UnmarshalSnapshot(value)
	if err != nil {
		return fmt.Errorf("dir store: %w", err)
	}
	return WritePen(d.dir, s)
}

func (d *DirStore) Close() error { return nil }

// ReadPen reads a pen directory. Missing files read as empty buffers;
// ErrNotFound is returned only when none of the three files exist.
func ReadPen(dir string) (tinkerpen.Snapshot, error) {
	var (
		values [3]string
		found  bool
	)
	for i, name := range PenFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return tinkerpen.Snapshot{}, fmt.Errorf("read %s: %w", name, err)
		}
		values[i] = string(data)
		found = true
	}
	if !found {
		return tinkerpen.Snapshot{}, ErrNotFound
	}
	return tinkerpen.Snapshot{HTML: values[0], CSS: values[1], JS: values[2]}, nil
}

// WritePen writes all three buffers of s into dir. Every buffer is staged in
// a temp file before any pen file is replaced; if a replacement fails, the
// files already replaced get their previous contents back.
func WritePen(dir string, s tinkerpen.Snapshot) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	values := []string{s.HTML, s.CSS, s.JS}

	staged := make([]string, len(PenFiles))
	defer func() {
		for _, tmp := range staged {
			if tmp != "" {
				os.Remove(tmp)
			}
		}
	}()
	for i, name := range PenFiles {
		tmp, err := stageFile(dir, []byte(values[i]))
		if err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		staged[i] = tmp
	}

	replaced := make([]priorFile, 0, len(PenFiles))
	for i, name := range PenFiles {
		target := filepath.Join(dir, name)
		prior, err := readPrior(target)
		if err == nil {
			err = os.Rename(staged[i], target)
		}
		if err != nil {
			restorePen(dir, replaced)
			return fmt.Errorf("write %s: %w", name, err)
		}
		staged[i] = ""
		replaced = append(replaced, prior)
	}
	return nil
}

// priorFile is a pen file as it was before WritePen replaced it.
type priorFile struct {
	path    string
	data    []byte
	existed bool
}

func readPrior(path string) (priorFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return priorFile{path: path}, nil
	}
	if err != nil {
		return priorFile{}, err
	}
	return priorFile{path: path, data: data, existed: true}, nil
}

func restorePen(dir string, files []priorFile) {
	for i := len(files) - 1; i >= 0; i-- {
		f := files[i]
		if !f.existed {
			os.Remove(f.path)
			continue
		}
		tmp, err := stageFile(dir, f.data)
		if err == nil {
			if err = os.Rename(tmp, f.path); err != nil {
				os.Remove(tmp)
			}
		}
		if err != nil {
			log.Printf("[Store] Failed to restore %s: %v", f.path, err)
		}
	}
}

// stageFile writes data to a new temp file in dir and returns its name.
func stageFile(dir string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
