package save

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const slotExt = ".json"

// FileStore keeps one JSON file per slot in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating save dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(slot string) string {
	return filepath.Join(f.dir, slot+slotExt)
}

// Put writes the slot atomically through a temporary file.
func (f *FileStore) Put(_ context.Context, slot string, data []byte) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, "."+slot+"-*")
	if err != nil {
		return fmt.Errorf("writing slot %q: %w", slot, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing slot %q: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing slot %q: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), f.path(slot)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing slot %q: %w", slot, err)
	}
	return nil
}

func (f *FileStore) Get(_ context.Context, slot string) ([]byte, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%q: %w", slot, ErrSlotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %q: %w", slot, err)
	}
	return data, nil
}

func (f *FileStore) Slots(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("reading save dir: %w", err)
	}
	var slots []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, slotExt) {
			continue
		}
		slots = append(slots, strings.TrimSuffix(name, slotExt))
	}
	sort.Strings(slots)
	return slots, nil
}

func (f *FileStore) Delete(_ context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	err := os.Remove(f.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%q: %w", slot, ErrSlotNotFound)
	}
	return err
}

func (f *FileStore) Close() error { return nil }
